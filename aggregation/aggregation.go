// Package aggregation refines a stereo matching cost volume by aggregating
// each cost over an adaptive support region.
//
// The cross-based method (CBCA) measures, for every pixel of the left and
// right images, a cross of similar-intensity neighbours, then averages each
// disparity layer of the cost volume over the intersection of the left and
// right crosses using orthogonal integral images.
//
// Methods are selected from a Config:
//
//	cfg, err := aggregation.ParseConfig([]byte(`{"aggregation_method": "cbca", "cbca_distance": 5}`))
//	if err != nil {
//		return err
//	}
//	m, err := aggregation.New(cfg)
//	if err != nil {
//		return err
//	}
//	err = m.Aggregate(left, right, volume)
package aggregation

import (
	"github.com/mrjoshuak/go-stereo/costvolume"
	"github.com/mrjoshuak/go-stereo/raster"
)

// Method aggregates a cost volume in place.
type Method interface {
	// Name returns the configuration name of the method.
	Name() string

	// Aggregate overwrites the costs of v using the left and right images
	// the volume was computed from.
	Aggregate(left, right *raster.Raster, v *costvolume.Volume) error
}

// None leaves the cost volume unchanged.
type None struct{}

// Name implements Method.
func (None) Name() string { return MethodNone }

// Aggregate implements Method. It only validates v.
func (None) Aggregate(_, _ *raster.Raster, v *costvolume.Volume) error {
	return v.Validate()
}

// New returns the method selected by cfg, the cross-based one when
// cfg.Method is empty. Options apply to the cross-based method only.
func New(cfg Config, opts ...Option) (Method, error) {
	if cfg.Method == "" {
		cfg.Method = MethodCBCA
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Method == MethodNone {
		return None{}, nil
	}
	return NewCrossBased(cfg, opts...)
}
