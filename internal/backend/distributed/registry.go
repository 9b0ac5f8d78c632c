package distributed

import (
	"fmt"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
)

// TaskFactory reconstructs a concrete Task from its bound Args. Every task
// kind that might be scheduled onto a worker by this backend must register
// one under its ClassName.
type TaskFactory func(args aqueduct.Args) (aqueduct.Task, error)

// Registry maps ClassName to the factory that rebuilds it, standing in for
// the pickling the Python original relies on to ship a task's class and
// state to a worker (original_source's `backend/distributed.py` round-trips
// the task object itself; Go has no equivalent of that without reflection
// over unregistered types, so each task kind opts in explicitly).
type Registry struct {
	factories map[aqueduct.ClassName]TaskFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[aqueduct.ClassName]TaskFactory)}
}

// Register installs the factory for a ClassName, overwriting any prior
// registration for the same name.
func (r *Registry) Register(class aqueduct.ClassName, factory TaskFactory) {
	r.factories[class] = factory
}

// Reconstruct rebuilds a Task from a wire node's ClassName and Args using
// the registered factory for that ClassName.
func (r *Registry) Reconstruct(class aqueduct.ClassName, args aqueduct.Args) (aqueduct.Task, error) {
	factory, ok := r.factories[class]
	if !ok {
		return nil, fmt.Errorf("distributed: no TaskFactory registered for class %q", class)
	}
	return factory(args)
}
