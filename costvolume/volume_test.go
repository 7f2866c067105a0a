package costvolume

import (
	"errors"
	"math"
	"testing"
)

func TestNewFillsNaN(t *testing.T) {
	v, err := New(2, 3, []float64{-1, 0, 1}, Attrs{SubpixelFactor: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(v.Data) != 18 {
		t.Fatalf("len(Data) = %d, want 18", len(v.Data))
	}
	for i, c := range v.Data {
		if !math.IsNaN(float64(c)) {
			t.Fatalf("Data[%d] = %v, want NaN", i, c)
		}
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name  string
		rows  int
		cols  int
		disps []float64
		want  error
	}{
		{"zero rows", 0, 3, []float64{0}, ErrShape},
		{"negative cols", 2, -1, []float64{0}, ErrShape},
		{"empty axis", 2, 2, nil, ErrNoDisp},
		{"unsorted axis", 2, 2, []float64{1, 0}, ErrDispOrder},
		{"duplicate", 2, 2, []float64{0, 0}, ErrDispOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.rows, tt.cols, tt.disps, Attrs{})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDisparityRange(t *testing.T) {
	got := DisparityRange(-1, 1, 2)
	want := []float64{-1, -0.5, 0, 0.5, 1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("axis[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if DisparityRange(2, 1, 1) != nil {
		t.Error("inverted range should be nil")
	}
}

func TestLayerRoundTrip(t *testing.T) {
	v, _ := New(2, 2, []float64{0, 1, 2}, Attrs{})
	v.SetLayer(1, []float32{1, 2, 3, 4})

	if got := v.At(1, 0, 1); got != 3 {
		t.Errorf("At(1,0,1) = %v, want 3", got)
	}
	layer := v.Layer(1, nil)
	for i, want := range []float32{1, 2, 3, 4} {
		if layer[i] != want {
			t.Errorf("layer[%d] = %v, want %v", i, layer[i], want)
		}
	}
	if !math.IsNaN(float64(v.At(0, 0, 0))) {
		t.Error("other layers must be untouched")
	}

	buf := make([]float32, 0, 16)
	if got := v.Layer(1, buf); &got[0] != &buf[:1][0] {
		t.Error("Layer should reuse a large enough dst")
	}
}

func TestValidate(t *testing.T) {
	v, _ := New(2, 2, []float64{0}, Attrs{})
	if err := v.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	v.Data = v.Data[:3]
	if err := v.Validate(); !errors.Is(err, ErrShape) {
		t.Errorf("err = %v, want ErrShape", err)
	}
}

func TestClone(t *testing.T) {
	v, _ := New(1, 1, []float64{0}, Attrs{Measure: "sad"})
	c := v.Clone()
	c.Data[0] = 7
	c.Disparities[0] = 3
	if !math.IsNaN(float64(v.Data[0])) || v.Disparities[0] != 0 {
		t.Error("Clone shares storage with the original")
	}
	if c.Attrs.Measure != "sad" {
		t.Errorf("Measure = %q, want sad", c.Attrs.Measure)
	}
}

func TestSummarize(t *testing.T) {
	v, _ := New(1, 2, []float64{0, 1, 2}, Attrs{})
	copy(v.Data, []float32{1, 2, 3, float32(math.NaN()), float32(math.Inf(1)), 6})

	s := Summarize(v)
	if s.Cells != 6 || s.Finite != 4 || s.Invalid != 2 {
		t.Fatalf("counts = %d/%d/%d, want 6/4/2", s.Cells, s.Finite, s.Invalid)
	}
	if s.Min != 1 || s.Max != 6 {
		t.Errorf("min/max = %v/%v, want 1/6", s.Min, s.Max)
	}
	if s.Mean != 3 {
		t.Errorf("mean = %v, want 3", s.Mean)
	}
	// sample standard deviation of {1,2,3,6}
	if want := math.Sqrt(14.0 / 3.0); math.Abs(s.StdDev-want) > 1e-12 {
		t.Errorf("stddev = %v, want %v", s.StdDev, want)
	}

	l := SummarizeLayer(v, 1)
	if l.Finite != 1 || l.Mean != 2 || l.StdDev != 0 {
		t.Errorf("layer summary = %+v", l)
	}
}

func TestSummarizeAllInvalid(t *testing.T) {
	v, _ := New(2, 2, []float64{0}, Attrs{})
	s := Summarize(v)
	if s.Finite != 0 || !math.IsNaN(s.Mean) {
		t.Errorf("summary = %+v, want no finite values and NaN mean", s)
	}
}
