package aqcontext

import "context"

// BackendSpec is the wire form of a backend description (spec.md §6): a
// small keyed record sufficient to reconstruct a backend handle on a worker.
// Recognized Type values: "immediate", "concurrent", "multiprocessing",
// "dask".
type BackendSpec struct {
	Type      string `json:"type"`
	NWorkers  int    `json:"n_workers,omitempty"`
	Address   string `json:"address,omitempty"`
}

// ctxValue is the payload installed on a context.Context: current
// configuration, current backend spec, and the force set (spec.md §3's
// Context plus §4.5's force_tasks).
type ctxValue struct {
	config   *Config
	backend  BackendSpec
	force    map[string]bool // by ClassName, string-keyed to avoid an import cycle on aqueduct
}

type contextKey struct{}

var key = contextKey{}

// Install returns a child of parent carrying cfg/backend/forceTasks as the
// current Context (spec.md §4.5 step 1-2: "Bind force_tasks into context.
// Record the outer backend in context."). The returned context is a new
// value; parent is never mutated, which is how invariant 5 ("no ambient
// leakage") is satisfied without an explicit restore step — see doc.go.
func Install(parent context.Context, cfg *Config, backend BackendSpec, forceTasks []string) context.Context {
	force := make(map[string]bool, len(forceTasks))
	for _, f := range forceTasks {
		force[f] = true
	}
	return context.WithValue(parent, key, &ctxValue{config: cfg, backend: backend, force: force})
}

// Current returns the installed Config, BackendSpec, and force set, or zero
// values if none was ever installed on this context (a reasonable default
// for code paths that run outside of any Resolver.Run, e.g. unit tests
// constructing a task directly).
func Current(ctx context.Context) (*Config, BackendSpec, map[string]bool) {
	v, ok := ctx.Value(key).(*ctxValue)
	if !ok {
		return NewConfig(), BackendSpec{Type: "immediate"}, nil
	}
	return v.config, v.backend, v.force
}

// IsForced reports whether className is in the current context's force set.
func IsForced(ctx context.Context, className string) bool {
	_, _, force := Current(ctx)
	return force[className]
}
