package composite

import (
	"context"
	"time"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
)

// Fn transforms a task's run result into the wrapper task's own result.
type Fn func(any) (any, error)

// applyTask is the Go realization of apply.py's TaskWithApply: it shares
// inner's requirements, artifact, and cache policy verbatim, and only
// intercepts Run to post-process the result through fn. Since Run already
// applies fn before the save policy writes the result, a stored artifact
// always holds the post-fn value; unlike the Python original's class-
// wrapping branch, this wrapper never needs to compose a separate Load with
// fn (SPEC_FULL.md's resolution of that ambiguity).
type applyTask struct {
	inner  aqueduct.SimpleTask
	fn     Fn
	fnName string
}

// Apply produces a wrapper task whose Run is fn(inner.Run(...)). Its unique
// key differs from inner's because ClassName gains a "*<fnName>" suffix
// (spec.md §4.7); Args is inherited unchanged, so the hash portion of the
// key still reflects inner's bound arguments.
func Apply(fn Fn, fnName string, inner aqueduct.SimpleTask) aqueduct.SimpleTask {
	return &applyTask{inner: inner, fn: fn, fnName: fnName}
}

func (t *applyTask) ClassName() aqueduct.ClassName {
	return aqueduct.ClassName(string(t.inner.ClassName()) + "*" + t.fnName)
}

func (t *applyTask) Args() aqueduct.Args { return t.inner.Args() }

func (t *applyTask) Requirements(ctx context.Context) (aqueduct.WorkTree, error) {
	return t.inner.Requirements(ctx)
}

func (t *applyTask) Artifact(ctx context.Context) (aqueduct.Artifact, error) {
	return t.inner.Artifact(ctx)
}

func (t *applyTask) UpdatedAt() time.Time  { return t.inner.UpdatedAt() }
func (t *applyTask) Autosave() bool        { return t.inner.Autosave() }
func (t *applyTask) Autoload() bool        { return t.inner.Autoload() }
func (t *applyTask) Force() bool           { return t.inner.Force() }
func (t *applyTask) ConfigSection() string { return t.inner.ConfigSection() }

func (t *applyTask) Run(ctx context.Context, requirements any) (any, error) {
	value, err := t.inner.Run(ctx, requirements)
	if err != nil {
		return nil, err
	}
	return t.fn(value)
}
