package costvolume

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/mrjoshuak/go-stereo/internal/xdr"
)

// Container layout, all values little-endian:
//
//	magic "CBCV" | version u8 | rows i32 | cols i32 | ndisp i32 |
//	disparities f64*ndisp | subpixel i32 | offset i32 | maxCost f64 |
//	aggregation str | measure str | measureType str |
//	rawLen u64 | zstd(float32 costs)
const (
	magic          = "CBCV"
	currentVersion = 1

	// maxCells bounds the decoded volume size (4 GiB of float32).
	maxCells = 1 << 30
)

var (
	ErrInvalidMagic       = errors.New("costvolume: not a cost volume container")
	ErrUnsupportedVersion = errors.New("costvolume: unsupported container version")
	ErrCorrupted          = errors.New("costvolume: corrupted container")
)

var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder
	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

func zstdEncoder() *zstd.Encoder {
	encoderOnce.Do(func() {
		encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return encoder
}

func zstdDecoder() *zstd.Decoder {
	decoderOnce.Do(func() {
		decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(4*maxCells))
	})
	return decoder
}

// Encode writes v to w in the container format.
func Encode(w io.Writer, v *Volume) error {
	if err := v.Validate(); err != nil {
		return err
	}

	hdr := xdr.NewBufferWriter(256 + 8*len(v.Disparities))
	hdr.WriteBytes([]byte(magic))
	hdr.WriteByte(currentVersion)
	hdr.WriteInt32(int32(v.Rows))
	hdr.WriteInt32(int32(v.Cols))
	hdr.WriteInt32(int32(len(v.Disparities)))
	for _, d := range v.Disparities {
		hdr.WriteFloat64(d)
	}
	hdr.WriteInt32(int32(v.Attrs.SubpixelFactor))
	hdr.WriteInt32(int32(v.Attrs.BorderOffset))
	hdr.WriteFloat64(v.Attrs.MaxPossibleCost)
	hdr.WriteString(v.Attrs.Aggregation)
	hdr.WriteString(v.Attrs.Measure)
	hdr.WriteString(v.Attrs.MeasureType)

	raw := xdr.NewBufferWriter(4 * len(v.Data))
	raw.WriteFloat32s(v.Data)
	hdr.WriteUint64(uint64(raw.Len()))

	payload := zstdEncoder().EncodeAll(raw.Bytes(), nil)

	if _, err := w.Write(hdr.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// Decode reads a container written by Encode.
func Decode(r io.Reader) (*Volume, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	v, err := decode(xdr.NewReader(data))
	if errors.Is(err, xdr.ErrShortBuffer) {
		return nil, fmt.Errorf("%w: truncated header", ErrCorrupted)
	}
	return v, err
}

func decode(r *xdr.Reader) (*Volume, error) {
	m, err := r.Next(len(magic))
	if err != nil || string(m) != magic {
		return nil, ErrInvalidMagic
	}
	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != currentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	rows, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	cols, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	ndisp, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if rows <= 0 || cols <= 0 || ndisp <= 0 || int64(rows)*int64(cols)*int64(ndisp) > maxCells {
		return nil, fmt.Errorf("%w: shape %dx%dx%d", ErrCorrupted, rows, cols, ndisp)
	}

	v := &Volume{Rows: int(rows), Cols: int(cols), Disparities: make([]float64, ndisp)}
	for i := range v.Disparities {
		if v.Disparities[i], err = r.ReadFloat64(); err != nil {
			return nil, err
		}
	}

	subpix, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	offset, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	v.Attrs.SubpixelFactor = int(subpix)
	v.Attrs.BorderOffset = int(offset)
	if v.Attrs.MaxPossibleCost, err = r.ReadFloat64(); err != nil {
		return nil, err
	}
	if v.Attrs.Aggregation, err = r.ReadString(); err != nil {
		return nil, err
	}
	if v.Attrs.Measure, err = r.ReadString(); err != nil {
		return nil, err
	}
	if v.Attrs.MeasureType, err = r.ReadString(); err != nil {
		return nil, err
	}

	rawLen, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	cells := v.Rows * v.Cols * len(v.Disparities)
	if rawLen != uint64(4*cells) {
		return nil, fmt.Errorf("%w: payload of %d bytes, want %d", ErrCorrupted, rawLen, 4*cells)
	}

	payload, _ := r.Next(r.Len())
	raw, err := zstdDecoder().DecodeAll(payload, make([]byte, 0, rawLen))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if len(raw) != int(rawLen) {
		return nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrCorrupted, len(raw), rawLen)
	}

	v.Data = make([]float32, cells)
	xdr.DecodeFloat32s(v.Data, raw)
	if err := checkAxis(v.Disparities); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return v, nil
}

// ReadFile loads a cost volume container from path.
func ReadFile(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile stores v at path.
func WriteFile(path string, v *Volume) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
