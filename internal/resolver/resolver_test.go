package resolver

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
	"github.com/aqueduct-go/aqueduct/internal/codec"
	"github.com/aqueduct-go/aqueduct/internal/trace"
)

// numberTask is a SimpleTask whose artifact is an in-memory blob, used
// across this package's tests to exercise the cache gate and save/load
// policy without touching the filesystem.
type numberTask struct {
	aqueduct.BaseTask
	Class    aqueduct.ClassName
	A        aqueduct.Args
	Value    int64
	artifact *aqueduct.InMemoryArtifact
	runCount *int
}

func (t *numberTask) ClassName() aqueduct.ClassName { return t.Class }
func (t *numberTask) Args() aqueduct.Args           { return t.A }
func (t *numberTask) Requirements(ctx context.Context) (aqueduct.WorkTree, error) {
	return nil, nil
}
func (t *numberTask) Artifact(ctx context.Context) (aqueduct.Artifact, error) {
	return t.artifact, nil
}
func (t *numberTask) Run(ctx context.Context, requirements any) (any, error) {
	if t.runCount != nil {
		*t.runCount++
	}
	return t.Value, nil
}

// fakeImmediateBackend walks the tree synchronously via aqueduct.Resolve,
// standing in for internal/backend/immediate in tests that only need the
// Resolver/Backend seam exercised, not a specific backend's internals.
type fakeImmediateBackend struct {
	registry *codec.Registry
	closed   bool
}

func (b *fakeImmediateBackend) Run(ctx context.Context, work aqueduct.WorkTree, forceTasks []string) (any, error) {
	visit := VisitFunc(b.registry, DefaultExecute)
	return aqueduct.Resolve(ctx, work, false, IsCached, visit)
}

func (b *fakeImmediateBackend) Close() error {
	b.closed = true
	return nil
}

func TestResolver_Run_ExecutesUncachedTaskAndSaves(t *testing.T) {
	artifact := &aqueduct.InMemoryArtifact{}
	runs := 0
	task := &numberTask{Class: "Number", Value: 42, artifact: artifact, runCount: &runs,
		BaseTask: aqueduct.BaseTask{}}

	backend := &fakeImmediateBackend{registry: codec.NewRegistry()}
	r := New(aqcontext.NewConfig(), backend, aqcontext.BackendSpec{Type: "immediate"})

	result, err := r.Run(context.Background(), task, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result)
	assert.Equal(t, 1, runs)
	assert.True(t, backend.closed)

	exists, _ := artifact.Exists()
	assert.True(t, exists, "autosave should have written the in-memory artifact")
}

func TestResolver_Run_SkipsExecutionWhenCached(t *testing.T) {
	artifact := &aqueduct.InMemoryArtifact{}
	require.NoError(t, artifact.Write(func(w io.Writer, v any) error { return nil }, int64(99)))

	runs := 0
	task := &numberTask{Class: "Number", Value: 42, artifact: artifact, runCount: &runs}

	backend := &fakeImmediateBackend{registry: codec.NewRegistry()}
	r := New(aqcontext.NewConfig(), backend, aqcontext.BackendSpec{Type: "immediate"})

	result, err := r.Run(context.Background(), task, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(99), result, "cached value should be loaded, not recomputed")
	assert.Equal(t, 0, runs)
}

func TestResolver_Run_RecordsTraceEventsForExecutedAndCachedTasks(t *testing.T) {
	recorder := trace.NewRecorder()

	executed := &numberTask{Class: "Number", Value: 1, artifact: &aqueduct.InMemoryArtifact{}}

	cachedArtifact := &aqueduct.InMemoryArtifact{}
	require.NoError(t, cachedArtifact.Write(func(w io.Writer, v any) error { return nil }, int64(2)))
	cached := &numberTask{Class: "Number", Value: 2, artifact: cachedArtifact}

	backend := &fakeImmediateBackend{registry: codec.NewRegistry()}
	r := New(aqcontext.NewConfig(), backend, aqcontext.BackendSpec{Type: "immediate"})
	r.Trace = recorder

	_, err := r.Run(context.Background(), executed, nil)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), cached, nil)
	require.NoError(t, err)

	kinds := make([]trace.TraceEventKind, 0)
	for _, e := range recorder.Snapshot() {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, trace.EventTaskExecuted)
	assert.Contains(t, kinds, trace.EventTaskCached)
	assert.Contains(t, kinds, trace.EventTaskArtifactsRestored)
}

func TestResolver_Run_RestoresContextAfterError(t *testing.T) {
	cfg := aqcontext.NewConfig()
	cfg.Set("marker", "outer")
	backend := &erroringBackend{}
	r := New(cfg, backend, aqcontext.BackendSpec{Type: "immediate"})

	ctx := context.Background()
	_, err := r.Run(ctx, &numberTask{Class: "Boom"}, nil)
	require.Error(t, err)
	assert.True(t, backend.closed, "Close must run even when Run fails")

	outerCfg, outerSpec, _ := aqcontext.Current(ctx)
	assert.Equal(t, "immediate", outerSpec.Type, "Install must not have mutated the parent context")
	assert.False(t, outerCfg.Has("marker"), "the outer/default config must be unaffected by the run's config")
}

type erroringBackend struct{ closed bool }

func (b *erroringBackend) Run(ctx context.Context, work aqueduct.WorkTree, forceTasks []string) (any, error) {
	return nil, assert.AnError
}

func (b *erroringBackend) Close() error {
	b.closed = true
	return nil
}
