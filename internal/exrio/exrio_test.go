package exrio

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/mrjoshuak/go-stereo/internal/xdr"
)

func rampPlane(width, height int, scale float32) []float32 {
	p := make([]float32, width*height)
	for i := range p {
		p[i] = float32(i) * scale
	}
	return p
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		compression Compression
		width       int
		height      int
	}{
		{"none", CompressionNone, 7, 5},
		{"zips", CompressionZIPS, 13, 4},
		{"zip", CompressionZIP, 9, 37},
		{"zip single line", CompressionZIP, 64, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planes := map[string][]float32{
				"Y": rampPlane(tt.width, tt.height, 0.5),
				"Z": rampPlane(tt.width, tt.height, -2),
			}
			planes["Y"][0] = float32(math.NaN())

			var buf bytes.Buffer
			if err := Encode(&buf, tt.width, tt.height, planes, tt.compression); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			img, err := Decode(buf.Bytes())
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if img.Width != tt.width || img.Height != tt.height {
				t.Fatalf("Decode() size = %dx%d, want %dx%d", img.Width, img.Height, tt.width, tt.height)
			}
			if img.Compression != tt.compression {
				t.Errorf("Compression = %s, want %s", img.Compression, tt.compression)
			}
			for name, want := range planes {
				got, err := img.Plane(name)
				if err != nil {
					t.Fatalf("Plane(%q) error = %v", name, err)
				}
				for i := range want {
					if math.Float32bits(got[i]) != math.Float32bits(want[i]) {
						t.Fatalf("%s[%d] = %v, want %v", name, i, got[i], want[i])
					}
				}
			}
		})
	}
}

func TestLuminancePreference(t *testing.T) {
	planes := map[string][]float32{
		"A": {1, 1},
		"G": {2, 2},
		"R": {3, 3},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, 2, 1, planes, CompressionNone); err != nil {
		t.Fatal(err)
	}
	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	p, name, err := img.Luminance()
	if err != nil {
		t.Fatal(err)
	}
	if name != "R" || p[0] != 3 {
		t.Errorf("Luminance() = %q %v, want R [3 3]", name, p)
	}
	if img.Channels[0].Name != "A" {
		t.Errorf("Channels[0] = %q, want sorted order starting with A", img.Channels[0].Name)
	}
}

func TestDecodeHalfChannel(t *testing.T) {
	w := xdr.NewBufferWriter(256)
	w.WriteUint32(Magic)
	w.WriteUint32(versionNumber)
	writeAttribute(w, "channels", "chlist", func(v *xdr.BufferWriter) {
		v.WriteString("Y")
		v.WriteInt32(int32(PixelTypeHalf))
		v.WriteBytes([]byte{0, 0, 0, 0})
		v.WriteInt32(1)
		v.WriteInt32(1)
		v.WriteByte(0)
	})
	writeAttribute(w, "compression", "compression", func(v *xdr.BufferWriter) { v.WriteByte(0) })
	writeAttribute(w, "dataWindow", "box2i", func(v *xdr.BufferWriter) {
		v.WriteInt32(0)
		v.WriteInt32(0)
		v.WriteInt32(1)
		v.WriteInt32(0)
	})
	w.WriteByte(0)
	w.WriteUint64(uint64(w.Len() + 8))
	w.WriteInt32(0)
	w.WriteInt32(4)
	w.WriteUint16(0x3C00) // 1.0
	w.WriteUint16(0xC000) // -2.0

	img, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	y, _ := img.Plane("Y")
	if y[0] != 1 || y[1] != -2 {
		t.Errorf("Y = %v, want [1 -2]", y)
	}
}

func TestHalfToFloat32(t *testing.T) {
	tests := []struct {
		bits uint16
		want float32
	}{
		{0x0000, 0},
		{0x3C00, 1},
		{0x3800, 0.5},
		{0xC000, -2},
		{0x7BFF, 65504},
		{0x0001, float32(math.Ldexp(1, -24))},
		{0x0400, float32(math.Ldexp(1, -14))},
	}
	for _, tt := range tests {
		if got := halfToFloat32(tt.bits); got != tt.want {
			t.Errorf("halfToFloat32(0x%04X) = %v, want %v", tt.bits, got, tt.want)
		}
	}
	if got := halfToFloat32(0x7C00); !math.IsInf(float64(got), 1) {
		t.Errorf("halfToFloat32(0x7C00) = %v, want +Inf", got)
	}
	if got := halfToFloat32(0x7E00); !math.IsNaN(float64(got)) {
		t.Errorf("halfToFloat32(0x7E00) = %v, want NaN", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3, 4, 5, 6, 7, 8}); !errors.Is(err, ErrNotEXR) {
		t.Errorf("Decode(garbage) error = %v, want ErrNotEXR", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, 4, 4, map[string][]float32{"Y": rampPlane(4, 4, 1)}, CompressionZIP); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	if _, err := Decode(data[:len(data)-3]); !errors.Is(err, ErrCorrupted) {
		t.Errorf("Decode(truncated) error = %v, want ErrCorrupted", err)
	}

	tiled := append([]byte(nil), data...)
	xdr.ByteOrder.PutUint32(tiled[4:], versionNumber|flagTiled)
	if _, err := Decode(tiled); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Decode(tiled) error = %v, want ErrUnsupported", err)
	}
}

func TestEncodeErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, 2, 2, map[string][]float32{"Y": {1, 2, 3}}, CompressionNone); err == nil {
		t.Error("Encode() with short plane succeeded, want error")
	}
	if err := Encode(&buf, 2, 2, map[string][]float32{"Y": {1, 2, 3, 4}}, CompressionRLE); !errors.Is(err, ErrUnsupportedCompression) {
		t.Errorf("Encode(RLE) error = %v, want ErrUnsupportedCompression", err)
	}
	if err := Encode(&buf, 2, 2, nil, CompressionNone); !errors.Is(err, ErrNoChannel) {
		t.Errorf("Encode(no planes) error = %v, want ErrNoChannel", err)
	}
}
