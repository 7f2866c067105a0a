package raster

import "fmt"

// Shifts returns the fractional column offsets of the right-image variants
// used for a subpixel factor.
func Shifts(factor int) ([]float64, error) {
	switch factor {
	case 1:
		return []float64{0}, nil
	case 2:
		return []float64{0, 0.5}, nil
	case 4:
		return []float64{0, 0.25, 0.5, 0.75}, nil
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFactor, factor)
	}
}

// ShiftRight returns factor variants of r: r itself followed by copies
// resampled at the fractional offsets of Shifts.
//
// Shifted variants are linearly interpolated between columns c and c+1 and
// therefore have Cols-1 columns. When r carries a mask, a shifted sample is
// invalid as soon as either source column is invalid.
func ShiftRight(r *Raster, factor int) ([]*Raster, error) {
	shifts, err := Shifts(factor)
	if err != nil {
		return nil, err
	}
	out := make([]*Raster, len(shifts))
	out[0] = r
	for i, s := range shifts[1:] {
		out[i+1] = shift(r, s)
	}
	return out, nil
}

func shift(r *Raster, frac float64) *Raster {
	cols := max(r.Cols-1, 0)
	s := *r
	s.Cols = cols
	s.Data = make([]float32, r.Rows*cols)
	if r.Mask != nil {
		s.Mask = make([]int16, r.Rows*cols)
	}

	for y := 0; y < r.Rows; y++ {
		src := r.Data[y*r.Cols : (y+1)*r.Cols]
		dst := s.Data[y*cols : (y+1)*cols]
		for x := range dst {
			dst[x] = float32((1-frac)*float64(src[x]) + frac*float64(src[x+1]))
		}
		if r.Mask == nil {
			continue
		}
		msrc := r.Mask[y*r.Cols : (y+1)*r.Cols]
		mdst := s.Mask[y*cols : (y+1)*cols]
		for x := range mdst {
			switch {
			case msrc[x] != r.ValidPixels:
				mdst[x] = msrc[x]
			case msrc[x+1] != r.ValidPixels:
				mdst[x] = msrc[x+1]
			default:
				mdst[x] = r.ValidPixels
			}
		}
	}
	return &s
}
