// Package exrio reads and writes single-part scanline OpenEXR files holding
// planar float rasters.
//
// Only the subset needed for stereo rasters is implemented: NONE, ZIPS and
// ZIP compression, HALF, FLOAT and UINT channels with 1x1 sampling. Samples
// are always returned as float32 planes in row-major order.
package exrio

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/mrjoshuak/go-stereo/internal/xdr"
)

var (
	ErrNotEXR                 = errors.New("exrio: not an OpenEXR file")
	ErrUnsupported            = errors.New("exrio: unsupported file layout")
	ErrUnsupportedCompression = errors.New("exrio: unsupported compression")
	ErrMissingAttribute       = errors.New("exrio: missing required attribute")
	ErrCorrupted              = errors.New("exrio: corrupted data")
	ErrNoChannel              = errors.New("exrio: channel not found")
)

// Image is a decoded OpenEXR image.
type Image struct {
	Width       int
	Height      int
	Compression Compression
	// Channels is sorted by name, as stored in the file.
	Channels []ChannelInfo
	Planes   map[string][]float32
}

// Plane returns the samples of the named channel.
func (img *Image) Plane(name string) ([]float32, error) {
	p, ok := img.Planes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoChannel, name)
	}
	return p, nil
}

// Luminance returns the first available channel out of Y, R, G, B, or
// failing that the first channel of the file.
func (img *Image) Luminance() ([]float32, string, error) {
	for _, name := range []string{"Y", "R", "G", "B"} {
		if p, ok := img.Planes[name]; ok {
			return p, name, nil
		}
	}
	if len(img.Channels) == 0 {
		return nil, "", ErrNoChannel
	}
	name := img.Channels[0].Name
	return img.Planes[name], name, nil
}

// Decode parses a complete OpenEXR file held in memory.
func Decode(data []byte) (*Image, error) {
	r := xdr.NewReader(data)
	h, err := readHeader(r)
	if err != nil {
		if errors.Is(err, xdr.ErrShortBuffer) {
			return nil, fmt.Errorf("%w: truncated header", ErrCorrupted)
		}
		return nil, err
	}

	switch h.compression {
	case CompressionNone, CompressionZIPS, CompressionZIP:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, h.compression)
	}

	bytesPerPixel := 0
	for _, ch := range h.channels {
		if ch.XSampling != 1 || ch.YSampling != 1 {
			return nil, fmt.Errorf("%w: channel %q is subsampled", ErrUnsupported, ch.Name)
		}
		if ch.Type.Size() == 0 {
			return nil, fmt.Errorf("%w: channel %q has pixel type %d", ErrUnsupported, ch.Name, ch.Type)
		}
		bytesPerPixel += ch.Type.Size()
	}

	width, height := h.dataWindow.width(), h.dataWindow.height()
	img := &Image{
		Width:       width,
		Height:      height,
		Compression: h.compression,
		Channels:    h.channels,
		Planes:      make(map[string][]float32, len(h.channels)),
	}
	for _, ch := range h.channels {
		img.Planes[ch.Name] = make([]float32, width*height)
	}

	lpc := h.compression.linesPerChunk()
	numChunks := (height + lpc - 1) / lpc
	offsets := make([]uint64, numChunks)
	for i := range offsets {
		if offsets[i], err = r.ReadUint64(); err != nil {
			return nil, fmt.Errorf("%w: truncated offset table", ErrCorrupted)
		}
	}

	bytesPerLine := width * bytesPerPixel
	for _, off := range offsets {
		if off > uint64(len(data)) {
			return nil, fmt.Errorf("%w: chunk offset %d out of range", ErrCorrupted, off)
		}
		if err := r.SetPos(int(off)); err != nil {
			return nil, ErrCorrupted
		}
		y, err := r.ReadInt32()
		if err != nil {
			return nil, ErrCorrupted
		}
		size, err := r.ReadInt32()
		if err != nil || size < 0 {
			return nil, ErrCorrupted
		}
		payload, err := r.Next(int(size))
		if err != nil {
			return nil, ErrCorrupted
		}

		first := int(y) - int(h.dataWindow.yMin)
		if first < 0 || first >= height {
			return nil, fmt.Errorf("%w: chunk scanline %d outside data window", ErrCorrupted, y)
		}
		lines := min(lpc, height-first)
		raw := payload
		if rawSize := lines * bytesPerLine; len(payload) != rawSize {
			if h.compression == CompressionNone {
				return nil, fmt.Errorf("%w: chunk size %d, want %d", ErrCorrupted, len(payload), rawSize)
			}
			raw = make([]byte, rawSize)
			if err := zipDecompress(raw, payload); err != nil {
				return nil, err
			}
		}
		img.unpack(raw, first, lines)
	}

	return img, nil
}

// unpack converts interleaved scanline bytes into the float planes.
func (img *Image) unpack(raw []byte, first, lines int) {
	pos := 0
	for l := 0; l < lines; l++ {
		row := (first + l) * img.Width
		for _, ch := range img.Channels {
			plane := img.Planes[ch.Name][row : row+img.Width]
			switch ch.Type {
			case PixelTypeHalf:
				for x := range plane {
					plane[x] = halfToFloat32(xdr.ByteOrder.Uint16(raw[pos:]))
					pos += 2
				}
			case PixelTypeFloat:
				xdr.DecodeFloat32s(plane, raw[pos:])
				pos += 4 * len(plane)
			case PixelTypeUint:
				for x := range plane {
					plane[x] = float32(xdr.ByteOrder.Uint32(raw[pos:]))
					pos += 4
				}
			}
		}
	}
}

// Encode writes planes as FLOAT channels of a single-part scanline file.
// Every plane must hold width*height samples.
func Encode(w io.Writer, width, height int, planes map[string][]float32, compression Compression) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("exrio: invalid dimensions %dx%d", width, height)
	}
	switch compression {
	case CompressionNone, CompressionZIPS, CompressionZIP:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedCompression, compression)
	}
	if len(planes) == 0 {
		return ErrNoChannel
	}

	names := make([]string, 0, len(planes))
	for name, p := range planes {
		if len(p) != width*height {
			return fmt.Errorf("exrio: channel %q has %d samples, want %d", name, len(p), width*height)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	channels := make([]ChannelInfo, len(names))
	for i, name := range names {
		channels[i] = ChannelInfo{Name: name, Type: PixelTypeFloat, XSampling: 1, YSampling: 1}
	}

	lpc := compression.linesPerChunk()
	numChunks := (height + lpc - 1) / lpc
	bytesPerLine := width * 4 * len(names)

	chunks := make([][]byte, numChunks)
	for c := range chunks {
		first := c * lpc
		lines := min(lpc, height-first)
		raw := xdr.NewBufferWriter(lines * bytesPerLine)
		for l := 0; l < lines; l++ {
			row := (first + l) * width
			for _, name := range names {
				raw.WriteFloat32s(planes[name][row : row+width])
			}
		}
		data := raw.Bytes()
		if compression != CompressionNone {
			packed, err := zipCompress(data)
			if err != nil {
				return err
			}
			// Stored uncompressed when compression does not pay off.
			if len(packed) < len(data) {
				data = packed
			}
		}
		chunks[c] = data
	}

	out := xdr.NewBufferWriter(1024)
	writeHeader(out, channels, compression, width, height)

	offset := uint64(out.Len() + 8*numChunks)
	for _, chunk := range chunks {
		out.WriteUint64(offset)
		offset += uint64(8 + len(chunk))
	}
	for c, chunk := range chunks {
		out.WriteInt32(int32(c * lpc))
		out.WriteInt32(int32(len(chunk)))
		out.WriteBytes(chunk)
	}

	_, err := w.Write(out.Bytes())
	return err
}
