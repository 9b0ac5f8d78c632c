package cli

import (
	"context"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
)

// fixtureTask is a minimal SimpleTask used across this package's tests: a
// single int64 value, an optional single child requirement, and an
// optional on-disk artifact path.
type fixtureTask struct {
	aqueduct.BaseTask
	Class        aqueduct.ClassName
	Value        int64
	Child        aqueduct.Task
	ArtifactPath string
	RunCount     *int
}

func (t *fixtureTask) ClassName() aqueduct.ClassName { return t.Class }

func (t *fixtureTask) Args() aqueduct.Args {
	return aqueduct.Args{Keyed: map[string]any{"value": t.Value}}
}

func (t *fixtureTask) Requirements(ctx context.Context) (aqueduct.WorkTree, error) {
	if t.Child == nil {
		return nil, nil
	}
	return t.Child, nil
}

func (t *fixtureTask) Artifact(ctx context.Context) (aqueduct.Artifact, error) {
	if t.ArtifactPath == "" {
		return nil, nil
	}
	return &aqueduct.LocalFilesystemArtifact{Path: t.ArtifactPath}, nil
}

func (t *fixtureTask) Run(ctx context.Context, requirements any) (any, error) {
	if t.RunCount != nil {
		*t.RunCount++
	}
	return t.Value, nil
}

// newFixtureRegistry registers "root" (requiring "child") and bare "child"
// task factories, reading "value" out of provided params or config.
func newFixtureRegistry() *Registry {
	registry := NewRegistry()
	registry.Register("child", []string{"value"}, func(cfg *aqcontext.Config, provided map[string]any) (aqueduct.Task, error) {
		bound, err := aqueduct.ApplyConfigDefaults(cfg, "tasks.child", aqueduct.CtorParams{Names: []string{"value"}, Provided: provided})
		if err != nil {
			return nil, err
		}
		return &fixtureTask{BaseTask: aqueduct.BaseTask{Section: "tasks.child"}, Class: "child", Value: toInt64(bound["value"])}, nil
	})
	registry.Register("root", []string{"value"}, func(cfg *aqcontext.Config, provided map[string]any) (aqueduct.Task, error) {
		bound, err := aqueduct.ApplyConfigDefaults(cfg, "tasks.root", aqueduct.CtorParams{Names: []string{"value"}, Provided: provided})
		if err != nil {
			return nil, err
		}
		return &fixtureTask{
			BaseTask: aqueduct.BaseTask{Section: "tasks.root"},
			Class:    "root",
			Value:    toInt64(bound["value"]),
			Child:    &fixtureTask{BaseTask: aqueduct.BaseTask{Section: "tasks.child"}, Class: "child", Value: 1},
		}, nil
	})
	return registry
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
