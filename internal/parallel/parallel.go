// Package parallel splits index ranges across worker goroutines.
//
// Work is divided into contiguous chunks, one per worker, so callers that
// write to disjoint index-addressed outputs need no further synchronization.
package parallel

import (
	"runtime"
	"sync"
)

// Config configures parallel processing behavior.
type Config struct {
	// Workers is the number of worker goroutines. 0 means runtime.GOMAXPROCS(0).
	Workers int

	// GrainSize is the minimum work items per worker before parallelization.
	// If total work items <= GrainSize * Workers, runs sequentially.
	GrainSize int
}

// DefaultConfig returns the default parallel configuration.
func DefaultConfig() Config {
	return Config{
		Workers:   0,
		GrainSize: 1,
	}
}

var (
	config   = DefaultConfig()
	configMu sync.RWMutex
)

// SetConfig sets the package-wide configuration used by For and ForWithError.
func SetConfig(c Config) {
	configMu.Lock()
	defer configMu.Unlock()
	config = c
}

// GetConfig returns the current package-wide configuration.
func GetConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return config
}

// EffectiveWorkers returns the number of workers c resolves to.
func (c Config) EffectiveWorkers() int {
	if c.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Workers
}

// For runs fn(i) for i in [0, n) using the package-wide configuration.
func For(n int, fn func(i int)) {
	GetConfig().For(n, fn)
}

// ForWithError runs fn(i) for i in [0, n) using the package-wide configuration.
func ForWithError(n int, fn func(i int) error) error {
	return GetConfig().ForWithError(n, fn)
}

// For runs fn(i) for i in [0, n) in parallel.
// If n is small or there's only one worker, runs sequentially.
func (c Config) For(n int, fn func(i int)) {
	_ = c.ForWithError(n, func(i int) error {
		fn(i)
		return nil
	})
}

// ForWithError runs fn(i) for i in [0, n) in parallel.
// Returns the first error encountered (order not guaranteed). A worker stops
// at its first error; other workers finish their chunks.
func (c Config) ForWithError(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	workers := c.EffectiveWorkers()
	grain := c.GrainSize
	if grain < 1 {
		grain = 1
	}

	if n <= grain*workers || workers == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error
	chunkSize := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				if err := fn(i); err != nil {
					errOnce.Do(func() {
						firstErr = err
					})
					return
				}
			}
		}(start, end)
	}

	wg.Wait()
	return firstErr
}
