package resolver

import (
	"context"
	"fmt"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
	"github.com/aqueduct-go/aqueduct/internal/codec"
)

// SaveResult implements spec.md §4.5's save policy: if t has an artifact and
// autosave is on and v is non-nil, write v through the artifact; otherwise
// do nothing. Returns v unchanged (the policy never transforms the value).
//
// When check_storage is enabled in the task's resolved config section and
// the artifact still reports !exists() after a successful write, this
// returns an ArtifactMissing error (spec.md §7); when the flag is absent or
// false, the same condition only logs a warning (SPEC_FULL.md's resolution
// of the corresponding Open Question) and the caller proceeds with v.
func SaveResult(ctx context.Context, t aqueduct.Task, v any, registry *codec.Registry) (any, error) {
	if v == nil || !t.Autosave() {
		return v, nil
	}

	artifact, err := t.Artifact(ctx)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return v, nil
	}

	blob, ok := artifact.(aqueduct.BlobArtifact)
	if !ok {
		return v, nil
	}

	key, _ := aqueduct.ComputeUniqueKey(t)

	c := registry.For(v)
	if err := blob.Write(c.Write, v); err != nil {
		return nil, aqueduct.WrapError(aqueduct.KindTaskExecution, key, fmt.Errorf("save artifact: %w", err))
	}

	checkStorage := checkStorageEnabled(ctx, t)
	exists, err := artifact.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		if checkStorage {
			return nil, aqueduct.NewError(aqueduct.KindArtifactMissing, key,
				"side-effect task did not create its artifact after a successful run")
		}
		logWarnArtifactMissing(ctx, key)
	}

	return v, nil
}

// LoadResult implements spec.md §4.5's load policy: a task implementing
// aqueduct.Loader controls its own deserialization; everything else goes
// through the codec registry's default reader.
func LoadResult(ctx context.Context, t aqueduct.Task, registry *codec.Registry) (any, error) {
	artifact, err := t.Artifact(ctx)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, aqueduct.NewError(aqueduct.KindArgumentBinding, "", "load requested for task with no artifact")
	}

	if loader, ok := t.(aqueduct.Loader); ok {
		return loader.Load(ctx, artifact)
	}

	blob, ok := artifact.(aqueduct.BlobArtifact)
	if !ok {
		return nil, fmt.Errorf("artifact does not support reading and task does not implement Loader")
	}
	return blob.Read(registry.ForRead().Read)
}

func checkStorageEnabled(ctx context.Context, t aqueduct.Task) bool {
	cfg, _, _ := aqcontext.Current(ctx)
	section := cfg.Section(aqueduct.ResolveConfigSection(t))
	v, ok := section.Get("check_storage")
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
