package exrio

import (
	"fmt"
	"sort"

	"github.com/mrjoshuak/go-stereo/internal/xdr"
)

// Magic is the OpenEXR magic number.
const Magic uint32 = 20000630

const (
	versionNumber   = 2
	flagTiled       = 0x200
	flagLongNames   = 0x400
	flagNonImage    = 0x800
	flagMultiPart   = 0x1000
	unsupportedMask = flagTiled | flagNonImage | flagMultiPart
)

// PixelType is the storage type of a channel.
type PixelType int32

const (
	PixelTypeUint  PixelType = 0
	PixelTypeHalf  PixelType = 1
	PixelTypeFloat PixelType = 2
)

// Size returns the number of bytes per sample.
func (p PixelType) Size() int {
	switch p {
	case PixelTypeHalf:
		return 2
	case PixelTypeUint, PixelTypeFloat:
		return 4
	default:
		return 0
	}
}

func (p PixelType) String() string {
	switch p {
	case PixelTypeUint:
		return "uint"
	case PixelTypeHalf:
		return "half"
	case PixelTypeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Compression defines the compression method for pixel data.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionRLE  Compression = 1
	CompressionZIPS Compression = 2
	CompressionZIP  Compression = 3
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionRLE:
		return "rle"
	case CompressionZIPS:
		return "zips"
	case CompressionZIP:
		return "zip"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// linesPerChunk returns the number of scanlines stored in one chunk.
func (c Compression) linesPerChunk() int {
	if c == CompressionZIP {
		return 16
	}
	return 1
}

// ChannelInfo describes one channel of the channel list.
type ChannelInfo struct {
	Name      string
	Type      PixelType
	XSampling int32
	YSampling int32
}

// box2i is an inclusive integer rectangle.
type box2i struct {
	xMin, yMin, xMax, yMax int32
}

func (b box2i) width() int  { return int(b.xMax) - int(b.xMin) + 1 }
func (b box2i) height() int { return int(b.yMax) - int(b.yMin) + 1 }

// header holds the attributes a single-part scanline file needs.
type header struct {
	channels    []ChannelInfo
	compression Compression
	dataWindow  box2i
	lineOrder   uint8
}

func readHeader(r *xdr.Reader) (*header, error) {
	magic, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, ErrNotEXR
	}
	version, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if version&0xff != versionNumber {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupported, version&0xff)
	}
	if version&unsupportedMask != 0 {
		return nil, fmt.Errorf("%w: only single-part scanline files are supported", ErrUnsupported)
	}

	h := &header{}
	var haveChannels, haveWindow bool
	for {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		typeName, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		size, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		value, err := r.Next(int(size))
		if err != nil {
			return nil, err
		}

		vr := xdr.NewReader(value)
		switch {
		case name == "channels" && typeName == "chlist":
			h.channels, err = readChannelList(vr)
			haveChannels = true
		case name == "compression" && typeName == "compression":
			var b byte
			b, err = vr.ReadByte()
			h.compression = Compression(b)
		case name == "dataWindow" && typeName == "box2i":
			h.dataWindow, err = readBox2i(vr)
			haveWindow = true
		case name == "lineOrder" && typeName == "lineOrder":
			h.lineOrder, err = vr.ReadByte()
		}
		if err != nil {
			return nil, fmt.Errorf("exrio: attribute %q: %w", name, err)
		}
	}

	if !haveChannels || !haveWindow {
		return nil, ErrMissingAttribute
	}
	if h.dataWindow.width() <= 0 || h.dataWindow.height() <= 0 {
		return nil, fmt.Errorf("%w: empty data window", ErrCorrupted)
	}
	return h, nil
}

func readChannelList(r *xdr.Reader) ([]ChannelInfo, error) {
	var channels []ChannelInfo
	for {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		if name == "" {
			return channels, nil
		}
		pt, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		// pLinear + 3 reserved bytes
		if err := r.Skip(4); err != nil {
			return nil, err
		}
		xs, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		ys, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		channels = append(channels, ChannelInfo{Name: name, Type: PixelType(pt), XSampling: xs, YSampling: ys})
	}
}

func readBox2i(r *xdr.Reader) (box2i, error) {
	var b box2i
	var err error
	if b.xMin, err = r.ReadInt32(); err != nil {
		return b, err
	}
	if b.yMin, err = r.ReadInt32(); err != nil {
		return b, err
	}
	if b.xMax, err = r.ReadInt32(); err != nil {
		return b, err
	}
	b.yMax, err = r.ReadInt32()
	return b, err
}

// writeAttribute writes name, type, size and the value produced by fn.
func writeAttribute(w *xdr.BufferWriter, name, typeName string, fn func(v *xdr.BufferWriter)) {
	v := xdr.NewBufferWriter(32)
	fn(v)
	w.WriteString(name)
	w.WriteString(typeName)
	w.WriteInt32(int32(v.Len()))
	w.WriteBytes(v.Bytes())
}

func writeHeader(w *xdr.BufferWriter, channels []ChannelInfo, compression Compression, width, height int) {
	w.WriteUint32(Magic)
	w.WriteUint32(versionNumber)

	sorted := append([]ChannelInfo(nil), channels...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	writeAttribute(w, "channels", "chlist", func(v *xdr.BufferWriter) {
		for _, ch := range sorted {
			v.WriteString(ch.Name)
			v.WriteInt32(int32(ch.Type))
			v.WriteBytes([]byte{0, 0, 0, 0})
			v.WriteInt32(1)
			v.WriteInt32(1)
		}
		v.WriteByte(0)
	})
	writeAttribute(w, "compression", "compression", func(v *xdr.BufferWriter) {
		v.WriteByte(byte(compression))
	})
	window := func(v *xdr.BufferWriter) {
		v.WriteInt32(0)
		v.WriteInt32(0)
		v.WriteInt32(int32(width - 1))
		v.WriteInt32(int32(height - 1))
	}
	writeAttribute(w, "dataWindow", "box2i", window)
	writeAttribute(w, "displayWindow", "box2i", window)
	writeAttribute(w, "lineOrder", "lineOrder", func(v *xdr.BufferWriter) {
		v.WriteByte(0)
	})
	writeAttribute(w, "pixelAspectRatio", "float", func(v *xdr.BufferWriter) {
		v.WriteFloat32(1)
	})
	writeAttribute(w, "screenWindowCenter", "v2f", func(v *xdr.BufferWriter) {
		v.WriteFloat32(0)
		v.WriteFloat32(0)
	})
	writeAttribute(w, "screenWindowWidth", "float", func(v *xdr.BufferWriter) {
		v.WriteFloat32(1)
	})
	w.WriteByte(0)
}
