// Package raster holds single-band float32 images together with the
// optional validity mask used by the stereo pipeline.
//
// A Raster is stored row-major. Invalid samples are identified through the
// mask convention (ValidPixels / NoDataMask codes) and turned into NaN by
// Masked before any neighbourhood computation.
package raster

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrSizeMismatch      = errors.New("raster: size mismatch")
	ErrUnsupportedFormat = errors.New("raster: unsupported file format")
	ErrInvalidFactor     = errors.New("raster: subpixel factor must be 1, 2 or 4")
)

// Default mask convention.
const (
	DefaultValidPixels int16   = 0
	DefaultNoDataMask  int16   = 1
	DefaultNoDataValue float64 = -9999
)

// Raster is a dense single-band image.
type Raster struct {
	Rows int
	Cols int
	Data []float32

	// Mask is nil when every sample is valid. Otherwise it has Rows*Cols
	// entries and a sample is valid iff its mask value equals ValidPixels.
	Mask        []int16
	ValidPixels int16
	NoDataMask  int16
	NoDataValue float64
}

// New returns a zero-filled raster with the default mask convention.
func New(rows, cols int) *Raster {
	return &Raster{
		Rows:        rows,
		Cols:        cols,
		Data:        make([]float32, rows*cols),
		ValidPixels: DefaultValidPixels,
		NoDataMask:  DefaultNoDataMask,
		NoDataValue: DefaultNoDataValue,
	}
}

// FromSlice wraps data as a rows x cols raster without copying.
func FromSlice(rows, cols int, data []float32) (*Raster, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d samples for %dx%d", ErrSizeMismatch, len(data), rows, cols)
	}
	r := New(0, 0)
	r.Rows, r.Cols, r.Data = rows, cols, data
	return r, nil
}

// At returns the sample at (row, col).
func (r *Raster) At(row, col int) float32 {
	return r.Data[row*r.Cols+col]
}

// Set stores v at (row, col).
func (r *Raster) Set(row, col int, v float32) {
	r.Data[row*r.Cols+col] = v
}

// Contains reports whether (row, col) lies inside the raster.
func (r *Raster) Contains(row, col int) bool {
	return row >= 0 && row < r.Rows && col >= 0 && col < r.Cols
}

// InvalidCode is the mask value given to samples rejected by an input mask.
func (r *Raster) InvalidCode() int16 {
	return r.ValidPixels + r.NoDataMask + 1
}

// IsValid reports whether the sample at index i passes the mask.
func (r *Raster) IsValid(i int) bool {
	return r.Mask == nil || r.Mask[i] == r.ValidPixels
}

// Clone returns a deep copy of r.
func (r *Raster) Clone() *Raster {
	c := *r
	c.Data = append([]float32(nil), r.Data...)
	if r.Mask != nil {
		c.Mask = append([]int16(nil), r.Mask...)
	}
	return &c
}

// Masked returns a copy of the samples where every masked-out or
// non-finite sample is NaN.
func (r *Raster) Masked() []float32 {
	out := make([]float32, len(r.Data))
	nan := float32(math.NaN())
	for i, v := range r.Data {
		if !r.IsValid(i) || !isFinite(v) {
			out[i] = nan
			continue
		}
		out[i] = v
	}
	return out
}

// Trim removes offset rows and columns from every side of r.
func (r *Raster) Trim(offset int) *Raster {
	if offset <= 0 {
		return r
	}
	data, rows, cols := TrimSlice(r.Data, r.Rows, r.Cols, offset)
	t := *r
	t.Rows, t.Cols, t.Data = rows, cols, data
	if r.Mask != nil {
		t.Mask = trim(r.Mask, r.Rows, r.Cols, offset)
	}
	return &t
}

// TrimSlice removes offset rows and columns from every side of a row-major
// rows x cols grid. Grids smaller than 2*offset come back empty.
func TrimSlice(data []float32, rows, cols, offset int) ([]float32, int, int) {
	if offset <= 0 {
		return data, rows, cols
	}
	return trim(data, rows, cols, offset), max(rows-2*offset, 0), max(cols-2*offset, 0)
}

func trim[T any](data []T, rows, cols, offset int) []T {
	nr, nc := max(rows-2*offset, 0), max(cols-2*offset, 0)
	out := make([]T, nr*nc)
	for y := 0; y < nr; y++ {
		src := (y+offset)*cols + offset
		copy(out[y*nc:(y+1)*nc], data[src:src+nc])
	}
	return out
}

func isFinite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}
