package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
	"github.com/aqueduct-go/aqueduct/internal/codec"
	"github.com/aqueduct-go/aqueduct/internal/journal"
	"github.com/aqueduct-go/aqueduct/internal/telemetry"
	"github.com/aqueduct-go/aqueduct/internal/trace"
)

// Backend is the one contract spec.md §4.6 requires of every execution
// strategy: run(work_tree, force_tasks) -> result_tree. The three
// implementations under internal/backend/{immediate,workerpool,distributed}
// satisfy this interface; Resolver is backend-agnostic and only handles
// context installation and restoration (invariant 6).
type Backend interface {
	Run(ctx context.Context, work aqueduct.WorkTree, forceTasks []string) (any, error)
	Close() error
}

// Resolver orchestrates a single top-level run call (spec.md §4.5):
//
//  1. Install configuration, backend spec, and the force set into context.
//  2. Record the outer backend in context (done by Install itself).
//  3. Delegate cache probing and requirement expansion to the Tree walker,
//     threaded through to whichever Backend is configured.
//  4. Hand the scheduled DAG to the backend.
//
// Dispatches across pluggable backends while keeping a single
// set-up/tear-down shape around every backend call.
type Resolver struct {
	Config   *aqcontext.Config
	Backend  Backend
	Spec     aqcontext.BackendSpec
	Registry *codec.Registry

	// Journal is an optional side-channel audit trail (not in spec.md;
	// supplemented ambient infrastructure, see internal/journal). A nil
	// Journal disables run recording entirely.
	Journal *journal.Store

	// Trace is an optional deterministic decision log (see internal/trace).
	// A nil Trace disables event recording entirely.
	Trace trace.Sink

	// Instruments is an optional otel metrics bundle (see internal/telemetry).
	// A nil Instruments makes every Record* call a no-op.
	Instruments *telemetry.Instruments
}

// New returns a Resolver with a default JSON-fallback codec registry.
func New(cfg *aqcontext.Config, backend Backend, spec aqcontext.BackendSpec) *Resolver {
	return &Resolver{Config: cfg, Backend: backend, Spec: spec, Registry: codec.NewRegistry()}
}

// Run installs context for the duration of the call and restores it on
// return, satisfying invariant 6 ("after any run(w) returns, normally or
// exceptionally, the current-backend and current-config in context equal
// their pre-call values") by construction: Install only ever affects the
// derived context it returns, never the parent passed in.
func (r *Resolver) Run(parent context.Context, work aqueduct.WorkTree, forceTasks []string) (any, error) {
	ctx := aqcontext.Install(parent, r.Config, r.Spec, forceTasks)
	ctx = trace.WithSink(ctx, r.Trace)
	ctx = telemetry.WithInstruments(ctx, r.Instruments)

	runID := uuid.NewString()
	r.recordRunStart(runID)

	result, err := r.Backend.Run(ctx, work, forceTasks)
	closeErr := r.Backend.Close()
	if err == nil {
		err = closeErr
	}

	if err != nil {
		r.recordRunFailure(runID, err)
		return nil, err
	}
	r.recordRunSuccess(runID)
	return result, nil
}

func (r *Resolver) recordRunStart(runID string) {
	if r.Journal == nil {
		return
	}
	_ = r.Journal.SaveRun(journal.Run{
		RunID:     runID,
		Backend:   r.Spec.Type,
		StartTime: time.Now(),
		Status:    journal.RunStatusStarted,
	})
}

func (r *Resolver) recordRunSuccess(runID string) {
	if r.Journal == nil {
		return
	}
	run, err := r.Journal.LoadRun(runID)
	if err != nil {
		return
	}
	run.EndTime = time.Now()
	run.Status = journal.RunStatusSucceeded
	_ = r.Journal.SaveRun(run)
}

func (r *Resolver) recordRunFailure(runID string, runErr error) {
	if r.Journal == nil {
		return
	}
	run, err := r.Journal.LoadRun(runID)
	if err == nil {
		run.EndTime = time.Now()
		run.Status = journal.RunStatusFailed
		_ = r.Journal.SaveRun(run)
	}
	_ = r.Journal.SaveFailure(runID, journal.FailureFromError(runErr))
}

// VisitFunc builds the aqueduct.Visit callback shared by the immediate
// backend and by any backend that drives execution through the tree walker
// directly (as opposed to building its own graph, as the worker-pool and
// distributed backends do). It implements the load-or-execute branch of
// spec.md §4.5 together with the save policy; execute is responsible for
// dispatching on the task's own kind (SimpleTask.Run vs the MapReduceTask
// fold), since that dispatch differs per backend (immediate runs map() calls
// sequentially, worker-pool/distributed run them in parallel; all three run
// reduce() calls one after another).
func VisitFunc(registry *codec.Registry, execute func(ctx context.Context, t aqueduct.Task, requirements any) (any, error)) aqueduct.Visit {
	return func(ctx context.Context, t aqueduct.Task, resolvedRequirements any, hadRequirements bool) (any, error) {
		sink := trace.FromContext(ctx)
		instruments := telemetry.FromContext(ctx)
		key, _ := aqueduct.ComputeUniqueKey(t)

		cached, err := IsCached(ctx, t)
		if err != nil {
			return nil, err
		}
		if cached && !hadRequirements && !t.Force() {
			sink.Record(trace.TraceEvent{Kind: trace.EventTaskCached, UniqueKey: key.String()})
			instruments.RecordCached(ctx)
			if !t.Autoload() {
				return nil, nil
			}
			value, err := LoadResult(ctx, t, registry)
			if err != nil {
				return nil, err
			}
			sink.Record(trace.TraceEvent{Kind: trace.EventTaskArtifactsRestored, UniqueKey: key.String()})
			return value, nil
		}

		start := time.Now()
		value, err := execute(ctx, t, resolvedRequirements)
		if err != nil {
			sink.Record(trace.TraceEvent{Kind: trace.EventTaskFailed, UniqueKey: key.String()})
			instruments.RecordFailed(ctx)
			return nil, aqueduct.WrapError(aqueduct.KindTaskExecution, key, err)
		}
		sink.Record(trace.TraceEvent{Kind: trace.EventTaskExecuted, UniqueKey: key.String()})
		instruments.RecordExecuted(ctx, time.Since(start))
		return SaveResult(ctx, t, value, registry)
	}
}

// DefaultExecute dispatches a task to SimpleTask.Run or to the sequential
// map-reduce fold, rejecting anything else as an unsupported task kind
// (spec.md §9, "three task kinds ... form a closed variant set"). This is
// the immediate backend's execute function; parallel backends supply their
// own.
func DefaultExecute(ctx context.Context, t aqueduct.Task, requirements any) (any, error) {
	switch task := t.(type) {
	case aqueduct.MapReduceTask:
		return aqueduct.FoldSequential(ctx, task, requirements)
	case aqueduct.SimpleTask:
		return task.Run(ctx, requirements)
	default:
		return nil, aqueduct.NewError(aqueduct.KindUnsupportedNode, "",
			fmt.Sprintf("task %s is neither a SimpleTask nor a MapReduceTask", t.ClassName()))
	}
}
