package raster

import (
	"math"
	"sort"

	"github.com/mrjoshuak/go-stereo/internal/parallel"
)

// MedianFilter applies a size x size median filter to a row-major grid and
// returns a new grid.
//
// Samples closer than size/2 to a border are copied unchanged. Non-finite
// samples stay NaN and are ignored by their neighbours' medians; a window
// without any finite sample yields NaN.
func MedianFilter(data []float32, rows, cols, size int) []float32 {
	out := make([]float32, len(data))
	copy(out, data)
	radius := size / 2
	if radius <= 0 || rows <= 2*radius || cols <= 2*radius {
		return out
	}
	nan := float32(math.NaN())

	parallel.For(rows-2*radius, func(i int) {
		y := i + radius
		window := make([]float32, 0, size*size)
		for x := radius; x < cols-radius; x++ {
			if !isFinite(data[y*cols+x]) {
				out[y*cols+x] = nan
				continue
			}
			window = window[:0]
			for wy := y - radius; wy <= y+radius; wy++ {
				row := data[wy*cols : (wy+1)*cols]
				for wx := x - radius; wx <= x+radius; wx++ {
					if v := row[wx]; isFinite(v) {
						window = append(window, v)
					}
				}
			}
			out[y*cols+x] = median(window)
		}
	})
	return out
}

// median sorts values in place and returns their median, averaging the two
// middle values for an even count.
func median(values []float32) float32 {
	n := len(values)
	if n == 0 {
		return float32(math.NaN())
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	if n%2 == 1 {
		return values[n/2]
	}
	return float32((float64(values[n/2-1]) + float64(values[n/2])) / 2)
}
