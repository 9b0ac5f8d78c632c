package cli

import (
	"fmt"
	"sort"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
)

// TaskFactory builds a task instance from whatever param=value pairs the
// caller supplied on the command line, applying config defaults for
// anything left unspecified (see aqueduct.ApplyConfigDefaults). It is the
// CLI's equivalent of original_source's task-lookup-by-name: a process
// embedding this package registers one factory per task kind it wants
// reachable from `run <task_name>`.
type TaskFactory func(cfg *aqcontext.Config, provided map[string]any) (aqueduct.Task, error)

// Registration pairs a factory with the declared parameter names the `ls`
// subcommand prints as a task's signature.
type Registration struct {
	Factory TaskFactory
	Params  []string
}

// Registry maps a CLI-facing task name to the factory that reconstructs it.
// A task name is usually the task's own ClassName, but nothing requires
// that; Registry is independent of internal/backend/distributed.Registry,
// which reconstructs tasks from wire (ClassName, Args) pairs rather than
// from CLI strings.
type Registry struct {
	entries map[string]Registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// Register installs the factory for name, overwriting any prior
// registration under the same name.
func (r *Registry) Register(name string, params []string, factory TaskFactory) {
	r.entries[name] = Registration{Factory: factory, Params: params}
}

// Names returns every registered task name in sorted order, used by `ls`.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the registration for name, or an ArgumentBinding error
// naming it if nothing is registered.
func (r *Registry) Lookup(name string) (Registration, error) {
	reg, ok := r.entries[name]
	if !ok {
		return Registration{}, aqueduct.NewError(aqueduct.KindArgumentBinding, "", "no task registered under name %q", name)
	}
	return reg, nil
}

// Build reconstructs the named task from provided param=value pairs.
func (r *Registry) Build(cfg *aqcontext.Config, name string, provided map[string]any) (aqueduct.Task, error) {
	reg, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	t, err := reg.Factory(cfg, provided)
	if err != nil {
		return nil, fmt.Errorf("build task %q: %w", name, err)
	}
	return t, nil
}
