package costvolume

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the finite costs of a volume or of one layer.
type Summary struct {
	Cells   int
	Finite  int
	Invalid int
	Min     float64
	Max     float64
	Mean    float64
	StdDev  float64
}

// Summarize computes statistics over every finite cost in v.
func Summarize(v *Volume) Summary {
	return summarize(v.Data)
}

// SummarizeLayer computes statistics over disparity index d.
func SummarizeLayer(v *Volume, d int) Summary {
	return summarize(v.Layer(d, nil))
}

func summarize(costs []float32) Summary {
	s := Summary{Cells: len(costs)}
	finite := make([]float64, 0, len(costs))
	for _, c := range costs {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		finite = append(finite, f)
	}
	s.Finite = len(finite)
	s.Invalid = s.Cells - s.Finite
	if s.Finite == 0 {
		s.Min, s.Max, s.Mean, s.StdDev = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Min = floats.Min(finite)
	s.Max = floats.Max(finite)
	if s.Finite == 1 {
		s.Mean = finite[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(finite, nil)
	return s
}
