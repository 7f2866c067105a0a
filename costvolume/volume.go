// Package costvolume holds a stereo matching cost volume: a dense
// (row, col, disparity) grid of float32 costs with its disparity axis and
// pipeline metadata.
//
// NaN costs mark (row, col, disparity) combinations that have no valid
// match. The package also provides a compressed on-disk container and
// summary statistics.
package costvolume

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrShape     = errors.New("costvolume: invalid shape")
	ErrNoDisp    = errors.New("costvolume: empty disparity axis")
	ErrDispOrder = errors.New("costvolume: disparity axis must be strictly increasing")
)

// Attrs is the metadata carried alongside the costs.
type Attrs struct {
	// SubpixelFactor is the number of disparity steps per pixel: 1, 2 or 4.
	SubpixelFactor int
	// BorderOffset is the number of raster pixels excluded on every side
	// of the volume relative to the source images.
	BorderOffset int
	// MaxPossibleCost is the worst cost a cell can take.
	MaxPossibleCost float64
	// Aggregation names the aggregation applied so far, "" for none.
	Aggregation string
	// Measure names the matching cost function and MeasureType tells
	// whether the best match is the "min" or the "max" cost.
	Measure     string
	MeasureType string
}

// Volume is a dense cost volume.
type Volume struct {
	Rows        int
	Cols        int
	Disparities []float64
	// Data holds Rows*Cols*len(Disparities) costs, disparity varying fastest.
	Data  []float32
	Attrs Attrs
}

// New returns a NaN-filled volume.
func New(rows, cols int, disparities []float64, attrs Attrs) (*Volume, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrShape, rows, cols)
	}
	if err := checkAxis(disparities); err != nil {
		return nil, err
	}
	v := &Volume{
		Rows:        rows,
		Cols:        cols,
		Disparities: append([]float64(nil), disparities...),
		Data:        make([]float32, rows*cols*len(disparities)),
		Attrs:       attrs,
	}
	nan := float32(math.NaN())
	for i := range v.Data {
		v.Data[i] = nan
	}
	return v, nil
}

// DisparityRange returns the axis from dmin to dmax in 1/subpixel steps.
func DisparityRange(dmin, dmax, subpixel int) []float64 {
	if subpixel <= 0 || dmax < dmin {
		return nil
	}
	n := (dmax-dmin)*subpixel + 1
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = float64(dmin) + float64(i)/float64(subpixel)
	}
	return axis
}

func checkAxis(disparities []float64) error {
	if len(disparities) == 0 {
		return ErrNoDisp
	}
	for i := 1; i < len(disparities); i++ {
		if !(disparities[i] > disparities[i-1]) {
			return ErrDispOrder
		}
	}
	return nil
}

// Validate checks that the data length matches the shape.
func (v *Volume) Validate() error {
	if v.Rows <= 0 || v.Cols <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrShape, v.Rows, v.Cols)
	}
	if err := checkAxis(v.Disparities); err != nil {
		return err
	}
	if want := v.Rows * v.Cols * len(v.Disparities); len(v.Data) != want {
		return fmt.Errorf("%w: %d costs, want %d", ErrShape, len(v.Data), want)
	}
	return nil
}

// NumDisparities returns the length of the disparity axis.
func (v *Volume) NumDisparities() int {
	return len(v.Disparities)
}

func (v *Volume) index(row, col, d int) int {
	return (row*v.Cols+col)*len(v.Disparities) + d
}

// At returns the cost at (row, col, disparity index d).
func (v *Volume) At(row, col, d int) float32 {
	return v.Data[v.index(row, col, d)]
}

// Set stores a cost at (row, col, disparity index d).
func (v *Volume) Set(row, col, d int, cost float32) {
	v.Data[v.index(row, col, d)] = cost
}

// Layer copies the costs of disparity index d into dst, row-major, and
// returns it. dst is allocated when it is too small.
func (v *Volume) Layer(d int, dst []float32) []float32 {
	n := v.Rows * v.Cols
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	nd := len(v.Disparities)
	for i := range dst {
		dst[i] = v.Data[i*nd+d]
	}
	return dst
}

// SetLayer writes a row-major Rows*Cols grid into disparity index d.
func (v *Volume) SetLayer(d int, src []float32) {
	nd := len(v.Disparities)
	for i, c := range src {
		v.Data[i*nd+d] = c
	}
}

// Clone returns a deep copy of v.
func (v *Volume) Clone() *Volume {
	c := *v
	c.Disparities = append([]float64(nil), v.Disparities...)
	c.Data = append([]float32(nil), v.Data...)
	return &c
}
