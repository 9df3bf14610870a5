package otel

import (
	"context"
	"sync"
	"testing"

	goRelay "github.com/MrEthical07/goRelay"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goRelay.MetricsSnapshot
	dropped  map[string]uint64
}

func (f *fakeSource) MetricsSnapshot() goRelay.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goRelay.MetricsSnapshot{
		Counters:   make(map[goRelay.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goRelay.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDroppedByType() map[string]uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]uint64, len(f.dropped))
	for k, v := range f.dropped {
		out[k] = v
	}
	return out
}

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findSum(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	return findPoint(rm, name, "", "")
}

// findPoint returns the value of the named metric's data point whose attribute
// key equals value. An empty key matches the first point.
func findPoint(rm metricdata.ResourceMetrics, name, key, value string) (int64, bool) {
	match := func(set attribute.Set) bool {
		if key == "" {
			return true
		}
		v, ok := set.Value(attribute.Key(key))
		return ok && v.AsString() == value
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			var points []metricdata.DataPoint[int64]
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				points = data.DataPoints
			case metricdata.Gauge[int64]:
				points = data.DataPoints
			}
			for _, p := range points {
				if match(p.Attributes) {
					return p.Value, true
				}
			}
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("gorelay-test")

	src := &fakeSource{
		snapshot: goRelay.MetricsSnapshot{
			Counters: map[goRelay.MetricID]uint64{
				goRelay.MetricTokenMinted: 3,
			},
			Histograms: map[goRelay.MetricID][]uint64{
				goRelay.MetricGitHubLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: map[string]uint64{goRelay.AuditAppDispatch: 1, goRelay.AuditTagDispatch: 0},
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if v, ok := findSum(rm, "gorelay_token_minted_total"); !ok || v != 3 {
		t.Fatalf("expected token minted 3, got %d (found=%v)", v, ok)
	}
	if v, ok := findPoint(rm, "gorelay_github_latency_seconds_bucket", "le", "+Inf"); !ok || v != 8 {
		t.Fatalf("expected +Inf bucket 8, got %d (found=%v)", v, ok)
	}
	if v, ok := findPoint(rm, "gorelay_github_latency_seconds_bucket", "le", "0.25"); !ok || v != 3 {
		t.Fatalf("expected le=0.25 bucket 3, got %d (found=%v)", v, ok)
	}
	if v, ok := findSum(rm, "gorelay_github_latency_seconds_count"); !ok || v != 8 {
		t.Fatalf("expected count 8, got %d (found=%v)", v, ok)
	}
	if v, ok := findPoint(rm, "gorelay_audit_dropped_total", "event_type", goRelay.AuditAppDispatch); !ok || v != 1 {
		t.Fatalf("expected app_dispatch drops 1, got %d (found=%v)", v, ok)
	}
	if v, ok := findPoint(rm, "gorelay_audit_dropped_total", "event_type", goRelay.AuditTagDispatch); !ok || v != 0 {
		t.Fatalf("expected tag_dispatch drops 0, got %d (found=%v)", v, ok)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newTestMeter()
	meter := provider.Meter("gorelay-test")

	if _, err := NewExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := NewExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil relay, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("gorelay-test")

	src := &fakeSource{
		snapshot: goRelay.MetricsSnapshot{
			Counters: map[goRelay.MetricID]uint64{
				goRelay.MetricDispatchSuccess: 1,
			},
			Histograms: map[goRelay.MetricID][]uint64{
				goRelay.MetricGitHubLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goRelay.MetricDispatchSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
