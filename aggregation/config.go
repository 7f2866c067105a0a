package aggregation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Method names accepted by the aggregation_method option.
const (
	MethodCBCA = "cbca"
	MethodNone = "none"
)

// Defaults for the cross-based options.
const (
	DefaultIntensity = 30.0
	DefaultDistance  = 5

	// MaxDistance keeps every arm length representable as an int16.
	MaxDistance = math.MaxInt16
)

// Option keys of the aggregation configuration section.
const (
	keyMethod    = "aggregation_method"
	keyIntensity = "cbca_intensity"
	keyDistance  = "cbca_distance"
)

// Config selects and parameterizes the aggregation method.
type Config struct {
	// Method is MethodCBCA or MethodNone.
	Method string `json:"aggregation_method"`

	// Intensity is the similarity threshold of the cross support search:
	// a neighbour stops an arm once |anchor - neighbour| >= Intensity.
	Intensity float64 `json:"cbca_intensity"`

	// Distance bounds the support arms. It counts the anchor pixel, so
	// arms are at most Distance-1 samples long.
	Distance int `json:"cbca_distance"`
}

// DefaultConfig returns the cross-based configuration with default values.
func DefaultConfig() Config {
	return Config{
		Method:    MethodCBCA,
		Intensity: DefaultIntensity,
		Distance:  DefaultDistance,
	}
}

// FieldError describes one rejected configuration option.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Reason
}

// ConfigError lists every rejected option of a configuration.
type ConfigError struct {
	Fields []FieldError
}

func (e *ConfigError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "aggregation: invalid configuration: " + strings.Join(parts, "; ")
}

// Has reports whether field is among the rejected options.
func (e *ConfigError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ConfigError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
}

func (e *ConfigError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Validate checks the ranges of every option.
func (c Config) Validate() error {
	cerr := &ConfigError{}
	c.check(cerr)
	return cerr.orNil()
}

func (c Config) check(cerr *ConfigError) {
	switch c.Method {
	case MethodCBCA, MethodNone:
	default:
		cerr.add(keyMethod, "unknown method %q", c.Method)
	}
	if !(c.Intensity > 0) || math.IsInf(c.Intensity, 0) {
		cerr.add(keyIntensity, "must be a finite number > 0, got %v", c.Intensity)
	}
	if c.Distance <= 0 || c.Distance > MaxDistance {
		cerr.add(keyDistance, "must be in [1, %d], got %d", MaxDistance, c.Distance)
	}
}

// NewConfig builds a Config from decoded options. Missing options take their
// defaults. Unknown keys, wrong types and out-of-range values are all
// reported in a single *ConfigError.
func NewConfig(options map[string]any) (Config, error) {
	cfg := DefaultConfig()
	cerr := &ConfigError{}

	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := options[k]
		switch k {
		case keyMethod:
			s, ok := v.(string)
			if !ok {
				cerr.add(k, "must be a string, got %T", v)
				continue
			}
			cfg.Method = s
		case keyIntensity:
			f, ok := toFloat(v)
			if !ok {
				cerr.add(k, "must be a number, got %T", v)
				continue
			}
			cfg.Intensity = f
		case keyDistance:
			f, ok := toFloat(v)
			if !ok || f != math.Trunc(f) {
				cerr.add(k, "must be an integer, got %v", v)
				continue
			}
			if f < 0 || f > MaxDistance {
				cerr.add(k, "must be in [1, %d], got %v", MaxDistance, v)
				continue
			}
			cfg.Distance = int(f)
		default:
			cerr.add(k, "unknown option")
		}
	}

	// Range checks only for options that were well typed.
	rangeErr := &ConfigError{}
	cfg.check(rangeErr)
	for _, f := range rangeErr.Fields {
		if !cerr.Has(f.Field) {
			cerr.Fields = append(cerr.Fields, f)
		}
	}
	return cfg, cerr.orNil()
}

// ParseConfig decodes a JSON object holding the aggregation options.
func ParseConfig(data []byte) (Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var options map[string]any
	if err := dec.Decode(&options); err != nil {
		return Config{}, fmt.Errorf("aggregation: parse configuration: %w", err)
	}
	return NewConfig(options)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
