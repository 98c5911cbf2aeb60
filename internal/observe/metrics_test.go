package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the value of the int64 sum data point carrying key=value,
// or the first data point when key is empty.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", name)
	}
	for _, dp := range sum.DataPoints {
		if key == "" {
			return dp.Value
		}
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == key && kv.Value.AsString() == value {
				return dp.Value
			}
		}
	}
	t.Fatalf("metric %q: no data point with %s=%s", name, key, value)
	return 0
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordCommand(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCommand(ctx, "set-alarm", 0.0002)
	m.RecordCommand(ctx, "set-alarm", 0.0003)
	m.RecordCommand(ctx, "fallback", 0.0001)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "shifra.commands", "rule", "set-alarm"); got != 2 {
		t.Errorf("set-alarm commands = %d, want 2", got)
	}

	met := findMetric(rm, "shifra.command.duration")
	if met == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("duration metric is not a histogram")
	}
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	if total != 3 {
		t.Errorf("sample count = %d, want 3", total)
	}
}

func TestRecordResolution(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordResolution(ctx, "domain")
	m.RecordResolution(ctx, "guess")
	m.RecordResolution(ctx, "guess")

	rm := collect(t, reader)
	if got := sumFor(t, rm, "shifra.resolutions", "kind", "guess"); got != 2 {
		t.Errorf("guess resolutions = %d, want 2", got)
	}
}

func TestAlarmLifecycleCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.AlarmsScheduled.Add(ctx, 3)
	m.PendingAlarms.Add(ctx, 3)
	m.RecordAlarmFired(ctx, "timer")
	m.RecordAlarmCanceled(ctx, true)
	m.RecordAlarmCanceled(ctx, false)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "shifra.alarms.scheduled", "", ""); got != 3 {
		t.Errorf("scheduled = %d, want 3", got)
	}
	if got := sumFor(t, rm, "shifra.alarms.fired", "trigger", "timer"); got != 1 {
		t.Errorf("fired = %d, want 1", got)
	}
	if got := sumFor(t, rm, "shifra.alarms.canceled", "status", "not_found"); got != 1 {
		t.Errorf("canceled not_found = %d, want 1", got)
	}
	// 3 added, one fired, one canceled; the not-found cancel is not pending.
	if got := sumFor(t, rm, "shifra.alarms.pending", "", ""); got != 1 {
		t.Errorf("pending = %d, want 1", got)
	}
}

func TestRecordStoreError(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordStoreError(context.Background(), "save")

	rm := collect(t, reader)
	if got := sumFor(t, rm, "shifra.store.errors", "op", "save"); got != 1 {
		t.Errorf("store errors = %d, want 1", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
