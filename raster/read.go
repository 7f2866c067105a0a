package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrjoshuak/go-jpeg2000"
	"golang.org/x/image/tiff"

	"github.com/mrjoshuak/go-stereo/internal/exrio"
)

// Format identifies an on-disk raster encoding.
type Format int

const (
	FormatUnknown Format = iota
	FormatEXR
	FormatTIFF
	FormatJPEG2000
	FormatPNG
)

func (f Format) String() string {
	switch f {
	case FormatEXR:
		return "exr"
	case FormatTIFF:
		return "tiff"
	case FormatJPEG2000:
		return "jpeg2000"
	case FormatPNG:
		return "png"
	default:
		return "unknown"
	}
}

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exr":
		return FormatEXR
	case ".tif", ".tiff":
		return FormatTIFF
	case ".jp2", ".j2k", ".j2c", ".jpc":
		return FormatJPEG2000
	case ".png":
		return FormatPNG
	default:
		return FormatUnknown
	}
}

// ReadOptions carries the no-data and mask conventions of an input image.
type ReadOptions struct {
	// NoData is the sample value marking missing data. NaN disables it.
	NoData float64
	// MaskPath optionally names a mask image; samples > 0 are invalid.
	MaskPath string
	// ValidPixels and NoDataCode are the codes written into Raster.Mask.
	ValidPixels int16
	NoDataCode  int16
}

// DefaultReadOptions returns the conventional options: no-data -9999,
// valid pixels 0, no-data code 1 and no mask file.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		NoData:      DefaultNoDataValue,
		ValidPixels: DefaultValidPixels,
		NoDataCode:  DefaultNoDataMask,
	}
}

// ReadFile loads a single-band raster and builds its mask.
//
// A mask is only allocated when a mask file is given or when at least one
// sample equals the no-data value. Samples rejected by the mask file get
// ValidPixels+NoDataCode+1; no-data samples get NoDataCode, which wins when
// both apply.
func ReadFile(path string, opts ReadOptions) (*Raster, error) {
	rows, cols, data, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	r := &Raster{
		Rows:        rows,
		Cols:        cols,
		Data:        data,
		ValidPixels: opts.ValidPixels,
		NoDataMask:  opts.NoDataCode,
		NoDataValue: opts.NoData,
	}

	var noData []int
	if !math.IsNaN(opts.NoData) {
		nd := float32(opts.NoData)
		for i, v := range data {
			if v == nd {
				noData = append(noData, i)
			}
		}
	}
	if opts.MaskPath == "" && len(noData) == 0 {
		return r, nil
	}

	r.Mask = make([]int16, len(data))
	for i := range r.Mask {
		r.Mask[i] = opts.ValidPixels
	}

	if opts.MaskPath != "" {
		mr, mc, mdata, err := decodeFile(opts.MaskPath)
		if err != nil {
			return nil, fmt.Errorf("raster: reading mask: %w", err)
		}
		if mr != rows || mc != cols {
			return nil, fmt.Errorf("%w: mask %dx%d, image %dx%d", ErrSizeMismatch, mr, mc, rows, cols)
		}
		invalid := r.InvalidCode()
		for i, v := range mdata {
			if v > 0 {
				r.Mask[i] = invalid
			}
		}
	}

	for _, i := range noData {
		r.Mask[i] = opts.NoDataCode
	}
	return r, nil
}

func decodeFile(path string) (rows, cols int, data []float32, err error) {
	format := FormatFromPath(path)
	if format == FormatUnknown {
		return 0, 0, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, err
	}
	defer f.Close()
	return Decode(f, format)
}

// Decode reads a single band from r.
// Multi-channel images are reduced to luminance: EXR picks Y, R, G, B or the
// first channel; other formats are converted to 16-bit gray.
func Decode(r io.Reader, format Format) (rows, cols int, data []float32, err error) {
	switch format {
	case FormatEXR:
		buf, err := io.ReadAll(r)
		if err != nil {
			return 0, 0, nil, err
		}
		img, err := exrio.Decode(buf)
		if err != nil {
			return 0, 0, nil, err
		}
		plane, _, err := img.Luminance()
		if err != nil {
			return 0, 0, nil, err
		}
		return img.Height, img.Width, plane, nil
	case FormatTIFF:
		img, err := tiff.Decode(r)
		if err != nil {
			return 0, 0, nil, fmt.Errorf("raster: tiff: %w", err)
		}
		rows, cols, data := fromImage(img)
		return rows, cols, data, nil
	case FormatJPEG2000:
		img, err := jpeg2000.Decode(r)
		if err != nil {
			return 0, 0, nil, fmt.Errorf("raster: jpeg2000: %w", err)
		}
		rows, cols, data := fromImage(img)
		return rows, cols, data, nil
	case FormatPNG:
		img, err := png.Decode(r)
		if err != nil {
			return 0, 0, nil, fmt.Errorf("raster: png: %w", err)
		}
		rows, cols, data := fromImage(img)
		return rows, cols, data, nil
	default:
		return 0, 0, nil, ErrUnsupportedFormat
	}
}

func fromImage(img image.Image) (rows, cols int, data []float32) {
	b := img.Bounds()
	rows, cols = b.Dy(), b.Dx()
	data = make([]float32, rows*cols)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				data[y*cols+x] = float32(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray16:
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				data[y*cols+x] = float32(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				data[y*cols+x] = float32(g.Y)
			}
		}
	}
	return rows, cols, data
}

// WriteEXR stores the raster samples as a single FLOAT "Y" channel.
func (r *Raster) WriteEXR(w io.Writer) error {
	return exrio.Encode(w, r.Cols, r.Rows, map[string][]float32{"Y": r.Data}, exrio.CompressionZIP)
}

// WriteEXRFile writes the raster to path as OpenEXR.
func (r *Raster) WriteEXRFile(path string) error {
	var buf bytes.Buffer
	if err := r.WriteEXR(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
