package resolver

import (
	"context"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
)

// IsCached implements spec.md §4.3's cache gate: resolve the task's artifact
// description; absent means not cached; present means cached iff it exists
// and its last-modified time is not older than the task's UpdatedAt. A class
// name present in the run's force_tasks set (spec.md §4.5 step 1) is always
// treated as not cached, regardless of artifact freshness.
//
// Cache freshness is decided by artifact existence and modification time,
// not by a content hash comparison.
func IsCached(ctx context.Context, t aqueduct.Task) (bool, error) {
	if aqcontext.IsForced(ctx, string(t.ClassName())) {
		return false, nil
	}

	artifact, err := t.Artifact(ctx)
	if err != nil {
		return false, err
	}
	if artifact == nil {
		return false, nil
	}

	exists, err := artifact.Exists()
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	lastModified, err := artifact.LastModified()
	if err != nil {
		return false, err
	}

	updatedAt := t.UpdatedAt()
	if updatedAt.IsZero() {
		return true, nil
	}
	return !lastModified.Before(updatedAt), nil
}
