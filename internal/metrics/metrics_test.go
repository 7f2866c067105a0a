package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func value(t *testing.T, r *Recorder, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metric
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestRecorder(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.ObserveLayer(i, float64(i), time.Millisecond)
		}(i)
	}
	wg.Wait()
	r.ObserveCrossSupport(10, 20, 5*time.Millisecond)
	r.ObserveCrossSupport(10, 19, 5*time.Millisecond)
	r.ObserveRun("cbca", 2*time.Second, nil)
	r.ObserveRun("cbca", time.Second, errors.New("boom"))

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"cbca_layers_aggregated_total", nil, 8},
		{"cbca_layer_duration_seconds", nil, 8},
		{"cbca_cross_supports_total", nil, 2},
		{"cbca_cross_support_pixels_total", nil, 390},
		{"cbca_runs_total", map[string]string{"method": "cbca", "status": "ok"}, 1},
		{"cbca_runs_total", map[string]string{"method": "cbca", "status": "error"}, 1},
		{"cbca_run_duration_seconds", nil, 1},
		{"cbca_last_run_success", nil, 0},
	}
	for _, tt := range tests {
		if got := value(t, r, tt.name, tt.labels); got != tt.want {
			t.Errorf("%s%v = %v, want %v", tt.name, tt.labels, got, tt.want)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveLayer(0, 0, time.Millisecond)
	r.ObserveRun("cbca", time.Second, nil)

	path := filepath.Join(t.TempDir(), "cbca.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for _, want := range []string{
		"# TYPE cbca_layers_aggregated_total counter",
		"cbca_layers_aggregated_total 1",
		`cbca_runs_total{method="cbca",status="ok"} 1`,
		"cbca_last_run_success 1",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile lacks %q:\n%s", want, data)
		}
	}
}
