package aggregation

import (
	"math"

	"github.com/mrjoshuak/go-stereo/internal/parallel"
)

// Arm directions, in channel order of CrossSupport.Arms.
const (
	ArmLeft = iota
	ArmRight
	ArmTop
	ArmBottom
)

// CrossSupport holds four arm lengths per pixel of a raster.
type CrossSupport struct {
	Rows int
	Cols int
	// Arms holds Rows*Cols*4 lengths ordered left, right, top, bottom.
	Arms []int16
}

// At returns the four arms of (row, col).
func (c *CrossSupport) At(row, col int) [4]int16 {
	i := (row*c.Cols + col) * 4
	return [4]int16{c.Arms[i], c.Arms[i+1], c.Arms[i+2], c.Arms[i+3]}
}

// Arm returns one arm of (row, col).
func (c *CrossSupport) Arm(row, col, dir int) int16 {
	return c.Arms[(row*c.Cols+col)*4+dir]
}

// Channel extracts one direction as a row-major grid.
func (c *CrossSupport) Channel(dir int) []float32 {
	out := make([]float32, c.Rows*c.Cols)
	for i := range out {
		out[i] = float32(c.Arms[i*4+dir])
	}
	return out
}

// ComputeCrossSupport measures the cross support of every pixel of a
// row-major rows x cols grid.
//
// An arm grows while the probed neighbour is finite and differs from the
// anchor by less than threshold, for at most maxArm samples. An arm that
// stops at once is still 1 when the immediate neighbour exists and is
// finite. Non-finite anchors get four zero arms.
func ComputeCrossSupport(data []float32, rows, cols, maxArm int, threshold float64) *CrossSupport {
	return computeCrossSupport(parallel.GetConfig(), data, rows, cols, maxArm, threshold)
}

func computeCrossSupport(pc parallel.Config, data []float32, rows, cols, maxArm int, threshold float64) *CrossSupport {
	cs := &CrossSupport{Rows: rows, Cols: cols, Arms: make([]int16, rows*cols*4)}
	t := float32(threshold)

	pc.For(rows, func(y int) {
		for x := 0; x < cols; x++ {
			i := y*cols + x
			anchor := data[i]
			if !finite(anchor) {
				continue
			}
			arms := cs.Arms[i*4 : i*4+4]
			arms[ArmLeft] = arm(data, i, -1, x, maxArm, anchor, t)
			arms[ArmRight] = arm(data, i, 1, cols-1-x, maxArm, anchor, t)
			arms[ArmTop] = arm(data, i, -cols, y, maxArm, anchor, t)
			arms[ArmBottom] = arm(data, i, cols, rows-1-y, maxArm, anchor, t)
		}
	})
	return cs
}

// arm walks from index i in steps of step. room is the number of samples
// before the border in that direction.
func arm(data []float32, i, step, room, maxArm int, anchor, t float32) int16 {
	if room == 0 {
		return 0
	}
	n := min(room, maxArm)
	length := 0
	for k := 1; k <= n; k++ {
		v := data[i+k*step]
		if !finite(v) || abs32(anchor-v) >= t {
			break
		}
		length++
	}
	if length == 0 && finite(data[i+step]) {
		return 1
	}
	return int16(length)
}

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

func abs32(v float32) float32 {
	return math.Float32frombits(math.Float32bits(v) &^ (1 << 31))
}
