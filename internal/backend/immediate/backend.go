package immediate

import (
	"context"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
	"github.com/aqueduct-go/aqueduct/internal/codec"
	"github.com/aqueduct-go/aqueduct/internal/logging"
	"github.com/aqueduct-go/aqueduct/internal/resolver"
)

// Backend implements resolver.Backend with no concurrency at all.
type Backend struct {
	Registry *codec.Registry
}

// New returns an immediate Backend with a default JSON-fallback registry.
func New() *Backend {
	return &Backend{Registry: codec.NewRegistry()}
}

func (b *Backend) Run(ctx context.Context, work aqueduct.WorkTree, forceTasks []string) (any, error) {
	log := logging.FromContext(ctx).WithField("backend", "immediate")
	log.Debug("run start")

	visit := resolver.VisitFunc(b.Registry, resolver.DefaultExecute)

	// force_tasks is applied inside resolver.IsCached via aqcontext.IsForced,
	// not via the walker's own ignoreCache flag, so that it can be scoped to
	// specific classes rather than the whole tree.
	result, err := aqueduct.Resolve(ctx, work, false, resolver.IsCached, visit)
	if err != nil {
		log.WithError(err).Error("run failed")
		return nil, err
	}
	log.Debug("run complete")
	return result, nil
}

// Close is a no-op: the immediate backend owns no worker resources.
func (b *Backend) Close() error { return nil }
