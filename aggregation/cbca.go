package aggregation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mrjoshuak/go-stereo/costvolume"
	"github.com/mrjoshuak/go-stereo/internal/parallel"
	"github.com/mrjoshuak/go-stereo/raster"
)

// medianSize is the window of the filter applied before cross supports.
const medianSize = 3

var (
	ErrShapeMismatch = errors.New("aggregation: shape mismatch")
	ErrNilInput      = errors.New("aggregation: nil raster or cost volume")
)

// ShapeError reports a raster whose trimmed size differs from the volume.
type ShapeError struct {
	Image      string
	Rows, Cols int
	WantRows   int
	WantCols   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("aggregation: %s image is %dx%d after trimming, cost volume is %dx%d",
		e.Image, e.Rows, e.Cols, e.WantRows, e.WantCols)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

// LayerObserver is called after each disparity layer is aggregated. It may
// be called from several goroutines at once.
type LayerObserver func(layer int, disparity float64, elapsed time.Duration)

// CrossObserver is called after each cross support is computed.
type CrossObserver func(rows, cols int, elapsed time.Duration)

// Option configures a CrossBased method.
type Option func(*CrossBased)

// WithWorkers sets the number of goroutines used for cross supports and
// layers. 0 uses the package-wide parallel configuration.
func WithWorkers(n int) Option {
	return func(c *CrossBased) {
		if n > 0 {
			c.par.Workers = n
		}
	}
}

// WithLayerObserver registers fn to be called after every layer.
func WithLayerObserver(fn LayerObserver) Option {
	return func(c *CrossBased) { c.onLayer = fn }
}

// WithCrossObserver registers fn to be called after every cross support.
func WithCrossObserver(fn CrossObserver) Option {
	return func(c *CrossBased) { c.onCross = fn }
}

// CrossBased is the cross-based cost aggregation method.
type CrossBased struct {
	intensity float64
	distance  int
	par       parallel.Config
	onLayer   LayerObserver
	onCross   CrossObserver
}

// NewCrossBased validates cfg and returns the method. cfg.Method may be
// empty or MethodCBCA.
func NewCrossBased(cfg Config, opts ...Option) (*CrossBased, error) {
	if cfg.Method == "" {
		cfg.Method = MethodCBCA
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Method != MethodCBCA {
		return nil, &ConfigError{Fields: []FieldError{{Field: keyMethod, Reason: fmt.Sprintf("want %q, got %q", MethodCBCA, cfg.Method)}}}
	}
	c := &CrossBased{
		intensity: cfg.Intensity,
		distance:  cfg.Distance,
		par:       parallel.GetConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name implements Method.
func (c *CrossBased) Name() string { return MethodCBCA }

// Intensity returns the cross support similarity threshold.
func (c *CrossBased) Intensity() float64 { return c.intensity }

// Distance returns the configured support distance.
func (c *CrossBased) Distance() int { return c.distance }

// MaxArm returns the longest arm a cross support may have.
func (c *CrossBased) MaxArm() int { return c.distance - 1 }

// CostFactor is the factor applied to the maximum possible cost: the area of
// the largest support window.
func (c *CrossBased) CostFactor() float64 {
	side := float64(2*c.distance - 1)
	return side * side
}

// CrossSupport prepares r (mask, 3x3 median, border trim) and measures its
// cross support.
func (c *CrossBased) CrossSupport(r *raster.Raster, offset int) *CrossSupport {
	start := time.Now()
	data := raster.MedianFilter(r.Masked(), r.Rows, r.Cols, medianSize)
	inf := float32(math.Inf(1))
	for i, v := range data {
		if math.IsNaN(float64(v)) {
			data[i] = inf
		}
	}
	data, rows, cols := raster.TrimSlice(data, r.Rows, r.Cols, offset)
	cs := computeCrossSupport(c.par, data, rows, cols, c.MaxArm(), c.intensity)
	if c.onCross != nil {
		c.onCross(rows, cols, time.Since(start))
	}
	return cs
}

// CrossSupports measures the left cross support and one right cross support
// per subpixel shift of the right image.
func (c *CrossBased) CrossSupports(left, right *raster.Raster, subpixel, offset int) (*CrossSupport, []*CrossSupport, error) {
	shifted, err := raster.ShiftRight(right, subpixel)
	if err != nil {
		return nil, nil, err
	}
	crossLeft := c.CrossSupport(left, offset)
	crossRight := make([]*CrossSupport, len(shifted))
	for i, s := range shifted {
		crossRight[i] = c.CrossSupport(s, offset)
	}
	return crossLeft, crossRight, nil
}

// Aggregate implements Method.
//
// Every layer is averaged over the adaptive support of each pixel. Columns
// whose match falls outside the right image keep their cost, and NaN costs
// stay NaN. On success the volume is tagged "cbca" and its maximum possible
// cost grows by CostFactor. Nothing is written when an error is returned.
func (c *CrossBased) Aggregate(left, right *raster.Raster, v *costvolume.Volume) error {
	if left == nil || right == nil || v == nil {
		return ErrNilInput
	}
	if err := c.check(left, right, v); err != nil {
		return err
	}
	log := Logger()
	start := time.Now()

	crossLeft, crossRight, err := c.CrossSupports(left, right, v.Attrs.SubpixelFactor, v.Attrs.BorderOffset)
	if err != nil {
		return err
	}
	log.Debug("aggregation: cross supports built",
		"rows", crossLeft.Rows, "cols", crossLeft.Cols,
		"variants", len(crossRight), "max_arm", c.MaxArm(),
		"elapsed", time.Since(start))

	c.par.For(v.NumDisparities(), func(d int) {
		layerStart := time.Now()
		cr := crossRight[shiftIndex(v.Disparities[d], v.Attrs.SubpixelFactor, len(crossRight))]
		c.aggregateLayer(v, d, crossLeft, cr)
		if c.onLayer != nil {
			c.onLayer(d, v.Disparities[d], time.Since(layerStart))
		}
	})

	v.Attrs.Aggregation = MethodCBCA
	v.Attrs.MaxPossibleCost *= c.CostFactor()

	log.Debug("aggregation: cost volume aggregated",
		"method", MethodCBCA, "layers", v.NumDisparities(),
		"max_cost", v.Attrs.MaxPossibleCost, "elapsed", time.Since(start))
	return nil
}

// check rejects inputs before any cell is written.
func (c *CrossBased) check(left, right *raster.Raster, v *costvolume.Volume) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if _, err := raster.Shifts(v.Attrs.SubpixelFactor); err != nil {
		return err
	}
	if v.Attrs.BorderOffset < 0 {
		return fmt.Errorf("%w: negative border offset %d", ErrShapeMismatch, v.Attrs.BorderOffset)
	}
	for _, img := range []struct {
		name string
		r    *raster.Raster
	}{{"left", left}, {"right", right}} {
		if len(img.r.Data) != img.r.Rows*img.r.Cols {
			return fmt.Errorf("%w: %s image holds %d samples for %dx%d",
				raster.ErrSizeMismatch, img.name, len(img.r.Data), img.r.Rows, img.r.Cols)
		}
		rows := max(img.r.Rows-2*v.Attrs.BorderOffset, 0)
		cols := max(img.r.Cols-2*v.Attrs.BorderOffset, 0)
		if rows != v.Rows || cols != v.Cols {
			return &ShapeError{Image: img.name, Rows: rows, Cols: cols, WantRows: v.Rows, WantCols: v.Cols}
		}
	}
	return nil
}

// shiftIndex selects the right image variant of a disparity from its
// fractional part.
func shiftIndex(disp float64, subpixel, variants int) int {
	frac := disp - math.Floor(disp)
	i := int(frac * float64(subpixel))
	return min(max(i, 0), variants-1)
}

func (c *CrossBased) aggregateLayer(v *costvolume.Volume, d int, left, right *CrossSupport) {
	rows, cols := v.Rows, v.Cols
	sp := validSpan(cols, right.Cols, v.Disparities[d])
	if sp.empty() {
		return
	}

	s := getScratch(rows, cols)
	defer putScratch(s)

	cost := v.Layer(d, s.cost)
	horizontalIntegral(s.hsum, cost, rows, cols)
	horizontalCost(s.hcost, s.hcount, s.hsum, rows, cols, left, right, sp)
	verticalIntegral(s.vsum, s.hcost, rows, cols)
	verticalCost(s.agg, s.count, s.vsum, s.hcount, rows, cols, left, right, sp)

	nd := v.NumDisparities()
	for y := 0; y < rows; y++ {
		for x := sp.first; x < sp.last; x++ {
			i := y*cols + x
			if math.IsNaN(float64(cost[i])) {
				continue
			}
			v.Data[i*nd+d] = s.agg[i] / float32(s.count[i]+1)
		}
	}
}
