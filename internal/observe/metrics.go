// Package observe provides application-wide observability primitives for
// Shifra: OpenTelemetry metrics, tracing helpers, trace-aware logging and
// HTTP middleware.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported in
// Prometheus format via [InitProvider]. A package-level default [Metrics]
// instance ([DefaultMetrics]) backs components that are not handed one
// explicitly; tests should use [NewMetrics] with a manual reader to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Shifra metrics.
const meterName = "github.com/MrWong99/shifra"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// CommandDuration tracks how long the interpreter takes to dispatch one
	// utterance (decision logic only; capabilities are fire-and-forget).
	CommandDuration metric.Float64Histogram

	// Commands counts dispatched utterances. Use with attribute:
	//   attribute.String("rule", ...)
	Commands metric.Int64Counter

	// Resolutions counts destination resolutions. Use with attribute:
	//   attribute.String("kind", ...)
	Resolutions metric.Int64Counter

	// AlarmsScheduled counts alarms created by users.
	AlarmsScheduled metric.Int64Counter

	// AlarmsFired counts alarms that rang. Use with attribute:
	//   attribute.String("trigger", "timer"|"overdue")
	AlarmsFired metric.Int64Counter

	// AlarmsCanceled counts user cancellations. Use with attribute:
	//   attribute.String("status", "ok"|"not_found")
	AlarmsCanceled metric.Int64Counter

	// PendingAlarms tracks the number of alarms waiting to fire.
	PendingAlarms metric.Int64UpDownCounter

	// StoreErrors counts failed persistence operations. Use with attribute:
	//   attribute.String("op", "load"|"save")
	StoreErrors metric.Int64Counter

	// BridgeClients tracks the number of connected browser clients.
	BridgeClients metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// dispatchBuckets defines histogram bucket boundaries (in seconds) for
// in-process command dispatch, which should stay well under a millisecond.
var dispatchBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CommandDuration, err = m.Float64Histogram("shifra.command.duration",
		metric.WithDescription("Time spent dispatching one utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(dispatchBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Commands, err = m.Int64Counter("shifra.commands",
		metric.WithDescription("Total dispatched utterances by matching rule."),
	); err != nil {
		return nil, err
	}
	if met.Resolutions, err = m.Int64Counter("shifra.resolutions",
		metric.WithDescription("Total destination resolutions by resolution kind."),
	); err != nil {
		return nil, err
	}
	if met.AlarmsScheduled, err = m.Int64Counter("shifra.alarms.scheduled",
		metric.WithDescription("Total alarms created."),
	); err != nil {
		return nil, err
	}
	if met.AlarmsFired, err = m.Int64Counter("shifra.alarms.fired",
		metric.WithDescription("Total alarms fired by trigger."),
	); err != nil {
		return nil, err
	}
	if met.AlarmsCanceled, err = m.Int64Counter("shifra.alarms.canceled",
		metric.WithDescription("Total alarm cancellation requests by status."),
	); err != nil {
		return nil, err
	}
	if met.StoreErrors, err = m.Int64Counter("shifra.store.errors",
		metric.WithDescription("Total failed persistence operations by op."),
	); err != nil {
		return nil, err
	}

	if met.PendingAlarms, err = m.Int64UpDownCounter("shifra.alarms.pending",
		metric.WithDescription("Number of alarms waiting to fire."),
	); err != nil {
		return nil, err
	}
	if met.BridgeClients, err = m.Int64UpDownCounter("shifra.bridge.clients",
		metric.WithDescription("Number of connected browser clients."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("shifra.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordCommand records one dispatched utterance for rule.
func (m *Metrics) RecordCommand(ctx context.Context, rule string, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("rule", rule))
	m.Commands.Add(ctx, 1, attrs)
	m.CommandDuration.Record(ctx, seconds, attrs)
}

// RecordResolution records one destination resolution of the given kind.
func (m *Metrics) RecordResolution(ctx context.Context, kind string) {
	m.Resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordAlarmFired records a fired alarm and decrements the pending gauge.
func (m *Metrics) RecordAlarmFired(ctx context.Context, trigger string) {
	m.AlarmsFired.Add(ctx, 1, metric.WithAttributes(attribute.String("trigger", trigger)))
	m.PendingAlarms.Add(ctx, -1)
}

// RecordAlarmCanceled records a cancellation request. Successful
// cancellations also decrement the pending gauge.
func (m *Metrics) RecordAlarmCanceled(ctx context.Context, found bool) {
	status := "ok"
	if !found {
		status = "not_found"
	}
	m.AlarmsCanceled.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	if found {
		m.PendingAlarms.Add(ctx, -1)
	}
}

// RecordStoreError records a failed persistence operation.
func (m *Metrics) RecordStoreError(ctx context.Context, op string) {
	m.StoreErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
