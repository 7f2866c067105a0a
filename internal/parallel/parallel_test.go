package parallel

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestFor(t *testing.T) {
	n := 1000

	var count int64
	For(n, func(i int) {
		atomic.AddInt64(&count, 1)
	})

	if count != int64(n) {
		t.Errorf("For processed %d items, want %d", count, n)
	}
}

func TestForSmall(t *testing.T) {
	n := 4
	results := make([]int, n)

	For(n, func(i int) {
		results[i] = i * 2
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestForEachIndexOnce(t *testing.T) {
	cfg := Config{Workers: 7, GrainSize: 1}
	n := 103
	hits := make([]int32, n)

	cfg.For(n, func(i int) {
		atomic.AddInt32(&hits[i], 1)
	})

	for i, h := range hits {
		if h != 1 {
			t.Errorf("index %d visited %d times, want 1", i, h)
		}
	}
}

func TestForWithError(t *testing.T) {
	n := 100

	if err := ForWithError(n, func(i int) error { return nil }); err != nil {
		t.Errorf("ForWithError returned error: %v", err)
	}

	errBoom := errors.New("boom")
	err := Config{Workers: 4}.ForWithError(n, func(i int) error {
		if i == 50 {
			return errBoom
		}
		return nil
	})
	if err != errBoom {
		t.Errorf("ForWithError returned %v, want %v", err, errBoom)
	}
}

func TestForZero(t *testing.T) {
	called := false
	For(0, func(i int) { called = true })
	if called {
		t.Error("For(0) invoked fn")
	}
}

func TestSetConfig(t *testing.T) {
	orig := GetConfig()
	defer SetConfig(orig)

	SetConfig(Config{Workers: 3, GrainSize: 8})
	got := GetConfig()
	if got.Workers != 3 || got.GrainSize != 8 {
		t.Errorf("GetConfig() = %+v, want Workers=3 GrainSize=8", got)
	}
	if w := got.EffectiveWorkers(); w != 3 {
		t.Errorf("EffectiveWorkers() = %d, want 3", w)
	}
}
