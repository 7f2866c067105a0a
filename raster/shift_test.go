package raster

import (
	"errors"
	"testing"
)

func TestShiftRightFactors(t *testing.T) {
	r, _ := FromSlice(1, 3, []float32{0, 4, 8})

	for _, factor := range []int{1, 2, 4} {
		got, err := ShiftRight(r, factor)
		if err != nil {
			t.Fatalf("ShiftRight(%d) error = %v", factor, err)
		}
		if len(got) != factor {
			t.Fatalf("ShiftRight(%d) returned %d rasters, want %d", factor, len(got), factor)
		}
		if got[0] != r {
			t.Errorf("ShiftRight(%d)[0] is not the original raster", factor)
		}
	}

	if _, err := ShiftRight(r, 3); !errors.Is(err, ErrInvalidFactor) {
		t.Errorf("ShiftRight(3) error = %v, want ErrInvalidFactor", err)
	}
}

func TestShiftRightValues(t *testing.T) {
	r, _ := FromSlice(2, 3, []float32{
		0, 4, 8,
		1, 1, 3,
	})
	got, _ := ShiftRight(r, 4)

	want := [][]float32{
		{1, 5, 1, 1.5}, // 0.25
		{2, 6, 1, 2},   // 0.5
		{3, 7, 1, 2.5}, // 0.75
	}
	for i, w := range want {
		s := got[i+1]
		if s.Rows != 2 || s.Cols != 2 {
			t.Fatalf("variant %d size = %dx%d, want 2x2", i+1, s.Rows, s.Cols)
		}
		for j := range w {
			if s.Data[j] != w[j] {
				t.Errorf("variant %d Data[%d] = %v, want %v", i+1, j, s.Data[j], w[j])
			}
		}
	}
}

func TestShiftRightMask(t *testing.T) {
	r, _ := FromSlice(1, 4, []float32{1, 2, 3, 4})
	r.Mask = []int16{0, 1, 0, 0}

	got, _ := ShiftRight(r, 2)
	m := got[1].Mask
	want := []int16{1, 1, 0}
	for i := range want {
		if m[i] != want[i] {
			t.Errorf("shifted Mask[%d] = %d, want %d", i, m[i], want[i])
		}
	}
	if got[1].IsValid(0) || !got[1].IsValid(2) {
		t.Errorf("shifted validity = %v %v, want false true", got[1].IsValid(0), got[1].IsValid(2))
	}
}
