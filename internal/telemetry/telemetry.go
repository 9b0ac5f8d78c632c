package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/aqueduct-go/aqueduct"

// Tracer returns this module's instrumentation-scoped tracer. No backend
// starts spans from it; the only span in the module is the one
// ServeNATSWorker starts from its own otel tracer. Returns the global no-op
// tracer until a real TracerProvider is installed with otel.SetTracerProvider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Instruments bundles the counters and histogram SPEC_FULL.md's
// observability section names, built once per process and shared by every
// Resolver/Backend so a collector sees one consistent instrument set
// regardless of which backend executed a given task.
type Instruments struct {
	TasksExecuted metric.Int64Counter
	TasksCached   metric.Int64Counter
	TasksFailed   metric.Int64Counter
	TaskDuration  metric.Float64Histogram
}

// NewInstruments registers the standard instrument set against the global
// MeterProvider. Registration only fails if the underlying SDK rejects an
// instrument name/unit combination, which does not happen with these fixed,
// compile-time-constant definitions; the error return exists because the
// otel/metric API requires it, not because callers need to branch on it.
func NewInstruments() (*Instruments, error) {
	meter := otel.Meter(instrumentationName)

	executed, err := meter.Int64Counter("aqueduct_tasks_executed_total",
		metric.WithDescription("tasks whose Run/Map/Reduce completed successfully"))
	if err != nil {
		return nil, err
	}
	cached, err := meter.Int64Counter("aqueduct_tasks_cached_total",
		metric.WithDescription("tasks served from an existing artifact without executing"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("aqueduct_tasks_failed_total",
		metric.WithDescription("tasks whose Run/Map/Reduce returned an error"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("aqueduct_task_duration_seconds",
		metric.WithDescription("wall-clock duration of one task's Run/Map/Reduce call"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		TasksExecuted: executed,
		TasksCached:   cached,
		TasksFailed:   failed,
		TaskDuration:  duration,
	}, nil
}

// RecordExecuted records one successful task execution and its duration.
func (i *Instruments) RecordExecuted(ctx context.Context, elapsed time.Duration) {
	if i == nil {
		return
	}
	i.TasksExecuted.Add(ctx, 1)
	i.TaskDuration.Record(ctx, elapsed.Seconds())
}

// RecordCached records a cache hit that skipped execution entirely.
func (i *Instruments) RecordCached(ctx context.Context) {
	if i == nil {
		return
	}
	i.TasksCached.Add(ctx, 1)
}

// RecordFailed records a task execution failure.
func (i *Instruments) RecordFailed(ctx context.Context) {
	if i == nil {
		return
	}
	i.TasksFailed.Add(ctx, 1)
}

type instrumentsContextKey struct{}

// WithInstruments installs instruments as the current context's metrics
// destination. A context with none installed yields a nil *Instruments,
// whose Record* methods are no-ops.
func WithInstruments(ctx context.Context, instruments *Instruments) context.Context {
	return context.WithValue(ctx, instrumentsContextKey{}, instruments)
}

// FromContext returns the Instruments installed on ctx, or nil if none.
func FromContext(ctx context.Context) *Instruments {
	instruments, _ := ctx.Value(instrumentsContextKey{}).(*Instruments)
	return instruments
}
