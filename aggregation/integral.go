package aggregation

import (
	"math"
	"sync"
)

// span is the set of layer columns whose disparity-shifted counterpart lies
// inside the right cross support.
type span struct {
	first, last int // [first, last)
	disp        float64
}

func validSpan(cols, rightCols int, disp float64) span {
	s := span{first: cols, last: cols, disp: disp}
	for x := 0; x < cols; x++ {
		if r := float64(x) + disp; r >= 0 && r < float64(rightCols) {
			if s.first == cols {
				s.first = x
			}
			s.last = x + 1
		}
	}
	if s.first == cols {
		s.first, s.last = 0, 0
	}
	return s
}

func (s span) empty() bool { return s.first >= s.last }

func (s span) right(x int) int { return int(float64(x) + s.disp) }

// layerScratch holds the intermediate grids of one layer.
type layerScratch struct {
	cost   []float32 // rows*cols
	hsum   []float32 // rows*(cols+1)
	hcost  []float32 // rows*cols
	hcount []int32   // rows*cols
	vsum   []float32 // (rows+1)*cols
	agg    []float32 // rows*cols
	count  []int32   // rows*cols
}

var scratchPool sync.Pool

func getScratch(rows, cols int) *layerScratch {
	s, _ := scratchPool.Get().(*layerScratch)
	if s == nil {
		s = &layerScratch{}
	}
	n := rows * cols
	s.cost = grow(s.cost, n)
	s.hsum = grow(s.hsum, rows*(cols+1))
	s.hcost = grow(s.hcost, n)
	s.hcount = grow(s.hcount, n)
	s.vsum = grow(s.vsum, (rows+1)*cols)
	s.agg = grow(s.agg, n)
	s.count = grow(s.count, n)
	return s
}

func putScratch(s *layerScratch) {
	scratchPool.Put(s)
}

func grow[T any](buf []T, n int) []T {
	if cap(buf) < n {
		return make([]T, n)
	}
	return buf[:n]
}

// horizontalIntegral writes the row prefix sums of cost into dst, which has
// one leading zero column per row. NaN costs add nothing.
func horizontalIntegral(dst, cost []float32, rows, cols int) {
	w := cols + 1
	for y := 0; y < rows; y++ {
		row := cost[y*cols : (y+1)*cols]
		out := dst[y*w : (y+1)*w]
		out[0] = 0
		for x, c := range row {
			if math.IsNaN(float64(c)) {
				out[x+1] = out[x]
				continue
			}
			out[x+1] = out[x] + c
		}
	}
}

// horizontalCost sums every row over the horizontal arms shared by both
// cross supports. Columns outside sp get zero cost and count.
func horizontalCost(dst []float32, count []int32, hsum []float32, rows, cols int, left, right *CrossSupport, sp span) {
	clear(dst)
	clear(count)
	w := cols + 1
	for y := 0; y < rows; y++ {
		sum := hsum[y*w : (y+1)*w]
		for x := sp.first; x < sp.last; x++ {
			la := left.At(y, x)
			ra := right.At(y, sp.right(x))
			l := int(min(la[ArmLeft], ra[ArmLeft]))
			r := int(min(la[ArmRight], ra[ArmRight]))
			dst[y*cols+x] = sum[x+r+1] - sum[x-l]
			count[y*cols+x] = int32(l + r)
		}
	}
}

// verticalIntegral writes the column prefix sums of hcost into dst, which
// has one leading zero row.
func verticalIntegral(dst, hcost []float32, rows, cols int) {
	clear(dst[:cols])
	for y := 0; y < rows; y++ {
		prev := dst[y*cols : (y+1)*cols]
		next := dst[(y+1)*cols : (y+2)*cols]
		row := hcost[y*cols : (y+1)*cols]
		for x := range row {
			next[x] = prev[x] + row[x]
		}
	}
}

// verticalCost sums the horizontal aggregates over the vertical arms shared
// by both cross supports. count receives the number of support samples
// besides the anchor: the vertical arms plus the horizontal count of every
// row in the column window.
func verticalCost(agg []float32, count []int32, vsum []float32, hcount []int32, rows, cols int, left, right *CrossSupport, sp span) {
	for y := 0; y < rows; y++ {
		for x := sp.first; x < sp.last; x++ {
			la := left.At(y, x)
			ra := right.At(y, sp.right(x))
			top := int(min(la[ArmTop], ra[ArmTop]))
			bot := int(min(la[ArmBottom], ra[ArmBottom]))

			agg[y*cols+x] = vsum[(y+bot+1)*cols+x] - vsum[(y-top)*cols+x]

			n := hcount[y*cols+x] + int32(top+bot)
			for k := y - top; k < y; k++ {
				n += hcount[k*cols+x]
			}
			for k := y + 1; k <= y+bot; k++ {
				n += hcount[k*cols+x]
			}
			count[y*cols+x] = n
		}
	}
}
