package raster

import (
	"errors"
	"math"
	"testing"
)

func TestFromSlice(t *testing.T) {
	r, err := FromSlice(2, 3, []float32{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("FromSlice() error = %v", err)
	}
	if got := r.At(1, 2); got != 6 {
		t.Errorf("At(1, 2) = %v, want 6", got)
	}
	r.Set(0, 1, 9)
	if got := r.Data[1]; got != 9 {
		t.Errorf("Data[1] after Set = %v, want 9", got)
	}
	if _, err := FromSlice(2, 2, []float32{1}); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("FromSlice(short) error = %v, want ErrSizeMismatch", err)
	}
}

func TestContains(t *testing.T) {
	r := New(3, 4)
	tests := []struct {
		row, col int
		want     bool
	}{
		{0, 0, true},
		{2, 3, true},
		{3, 0, false},
		{0, 4, false},
		{-1, 1, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.row, tt.col); got != tt.want {
			t.Errorf("Contains(%d, %d) = %v, want %v", tt.row, tt.col, got, tt.want)
		}
	}
}

func TestMasked(t *testing.T) {
	r, _ := FromSlice(1, 4, []float32{1, 2, float32(math.Inf(1)), 4})
	r.Mask = []int16{0, 1, 0, 2}

	got := r.Masked()
	if got[0] != 1 {
		t.Errorf("Masked()[0] = %v, want 1", got[0])
	}
	for _, i := range []int{1, 2, 3} {
		if !math.IsNaN(float64(got[i])) {
			t.Errorf("Masked()[%d] = %v, want NaN", i, got[i])
		}
	}
	if r.Data[1] != 2 {
		t.Error("Masked() modified the raster")
	}
}

func TestTrim(t *testing.T) {
	data := make([]float32, 5*6)
	for i := range data {
		data[i] = float32(i)
	}
	r, _ := FromSlice(5, 6, data)
	r.Mask = make([]int16, len(data))
	r.Mask[1*6+1] = 7

	tr := r.Trim(1)
	if tr.Rows != 3 || tr.Cols != 4 {
		t.Fatalf("Trim(1) size = %dx%d, want 3x4", tr.Rows, tr.Cols)
	}
	if got := tr.At(0, 0); got != 7 {
		t.Errorf("Trim(1).At(0, 0) = %v, want 7", got)
	}
	if got := tr.At(2, 3); got != 22 {
		t.Errorf("Trim(1).At(2, 3) = %v, want 22", got)
	}
	if tr.Mask[0] != 7 {
		t.Errorf("Trim(1).Mask[0] = %d, want 7", tr.Mask[0])
	}
	if r.Trim(0) != r {
		t.Error("Trim(0) should return the raster itself")
	}

	_, rows, cols := TrimSlice(data, 5, 6, 3)
	if rows != 0 || cols != 0 {
		t.Errorf("TrimSlice(offset 3) size = %dx%d, want 0x0", rows, cols)
	}
}

func TestClone(t *testing.T) {
	r, _ := FromSlice(1, 2, []float32{1, 2})
	r.Mask = []int16{0, 0}
	c := r.Clone()
	c.Data[0] = 5
	c.Mask[0] = 3
	if r.Data[0] != 1 || r.Mask[0] != 0 {
		t.Error("Clone() shares storage with the original")
	}
}
