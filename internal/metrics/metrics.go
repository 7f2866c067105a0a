// Package metrics records aggregation runs in a private Prometheus registry.
//
// Batch runs have no scrape endpoint, so the registry is written once per
// run in the text exposition format, ready for the node exporter textfile
// collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns the run metrics.
type Recorder struct {
	reg *prometheus.Registry

	layers         prometheus.Counter
	layerDuration  prometheus.Histogram
	crossSupports  prometheus.Counter
	crossDuration  prometheus.Histogram
	crossPixels    prometheus.Counter
	runs           *prometheus.CounterVec
	runDuration    prometheus.Gauge
	lastRunSuccess prometheus.Gauge
}

// New returns a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		layers: f.NewCounter(prometheus.CounterOpts{
			Name: "cbca_layers_aggregated_total",
			Help: "Disparity layers aggregated",
		}),
		layerDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cbca_layer_duration_seconds",
			Help:    "Time to aggregate one disparity layer",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
		}),
		crossSupports: f.NewCounter(prometheus.CounterOpts{
			Name: "cbca_cross_supports_total",
			Help: "Cross supports computed, one per image variant",
		}),
		crossDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cbca_cross_support_duration_seconds",
			Help:    "Time to filter an image and compute its cross support",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),
		crossPixels: f.NewCounter(prometheus.CounterOpts{
			Name: "cbca_cross_support_pixels_total",
			Help: "Pixels covered by computed cross supports",
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cbca_runs_total",
			Help: "Aggregation runs by method and status",
		}, []string{"method", "status"}),
		runDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "cbca_run_duration_seconds",
			Help: "Duration of the last aggregation run",
		}),
		lastRunSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "cbca_last_run_success",
			Help: "1 if the last aggregation run succeeded, 0 otherwise",
		}),
	}
}

// ObserveLayer records one aggregated layer. Safe for concurrent use.
func (r *Recorder) ObserveLayer(_ int, _ float64, elapsed time.Duration) {
	r.layers.Inc()
	r.layerDuration.Observe(elapsed.Seconds())
}

// ObserveCrossSupport records one cross support of a rows x cols image.
func (r *Recorder) ObserveCrossSupport(rows, cols int, elapsed time.Duration) {
	r.crossSupports.Inc()
	r.crossPixels.Add(float64(rows * cols))
	r.crossDuration.Observe(elapsed.Seconds())
}

// ObserveRun records the outcome of a whole run.
func (r *Recorder) ObserveRun(method string, elapsed time.Duration, err error) {
	status := "ok"
	success := 1.0
	if err != nil {
		status = "error"
		success = 0
	}
	r.runs.WithLabelValues(method, status).Inc()
	r.runDuration.Set(elapsed.Seconds())
	r.lastRunSuccess.Set(success)
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile writes the registry to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
