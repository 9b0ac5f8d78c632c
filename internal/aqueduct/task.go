package aqueduct

import (
	"context"
	"fmt"
	"time"
)

// ClassName is the stable string identifier of a task kind. It is usually
// the task type's fully-qualified Go name, but callers are free to assign
// their own as long as it is stable across runs.
type ClassName string

// UniqueKey is the deterministic identifier of one bound task instance:
// "<ClassName>-<hex_hash>". It is the memoization key used by every backend
// and the node key in the distributed-graph backend.
type UniqueKey string

func (k UniqueKey) String() string { return string(k) }

// Args are the canonical bound arguments of a task descriptor: an ordered
// positional list plus a keyed map, exactly as spec.md §3 describes. Both
// are optional; most tasks use only one form.
type Args struct {
	Positional []any
	Keyed      map[string]any
}

// Task is the common shape shared by every task descriptor, independent of
// whether it executes as a simple task or a map-reduce task (spec.md §3,
// "Task descriptor"). Task values are meant to be immutable once
// constructed; mutating Args after construction invalidates the unique key.
//
// Task is an interface rather than a fixed struct so that user code can
// define arbitrary task kinds, not just a single shell-command shape.
type Task interface {
	// ClassName returns the stable identifier of this task's kind.
	ClassName() ClassName

	// Args returns the fully-bound constructor arguments used for identity
	// computation. Must be stable for the lifetime of the descriptor.
	Args() Args

	// Requirements returns this task's dependency work tree, or (nil, nil)
	// if it has none. Called by the resolver only when the task is not
	// pruned by the cache gate (spec.md §4.3).
	Requirements(ctx context.Context) (WorkTree, error)

	// Artifact returns this task's cache handle, or (nil, nil) if the task
	// is not cached (always re-run, never saved).
	Artifact(ctx context.Context) (Artifact, error)

	// UpdatedAt is the staleness floor for this task's artifact. The zero
	// value means "any existing artifact is fresh enough" (spec.md §4.3).
	UpdatedAt() time.Time

	// Autosave reports whether a successful Run's result should be written
	// through Artifact automatically. Defaults to true for descriptors that
	// embed a zero-value BaseTask.
	Autosave() bool

	// Autoload reports whether a cache hit should be served via Load instead
	// of re-running. Defaults to true.
	Autoload() bool

	// Force reports whether this particular instance bypasses the cache
	// gate regardless of freshness (an instance-level override distinct from
	// the resolver's force set).
	Force() bool

	// ConfigSection names the configuration section this task reads its
	// argument defaults from. Empty means "use the fully-qualified class
	// name" (spec.md §4.4).
	ConfigSection() string
}

// SimpleTask is a task whose result is produced by a single Run call over
// its resolved requirements (spec.md §3, "Simple task").
type SimpleTask interface {
	Task
	Run(ctx context.Context, requirements any) (any, error)
}

// Loader is implemented by tasks that need non-default deserialization of a
// cached artifact. Tasks that don't implement it are loaded through the
// codec registry (see internal/codec).
type Loader interface {
	Load(ctx context.Context, artifact Artifact) (any, error)
}

// BaseTask supplies the common, rarely-overridden parts of Task so that
// concrete task kinds only need to implement ClassName/Args/Requirements/
// Artifact and their execution method. Embed it by value.
type BaseTask struct {
	Section       string
	UpdatedAtTime time.Time
	NoAutosave    bool
	NoAutoload    bool
	Forced        bool
}

func (b BaseTask) UpdatedAt() time.Time  { return b.UpdatedAtTime }
func (b BaseTask) Autosave() bool        { return !b.NoAutosave }
func (b BaseTask) Autoload() bool        { return !b.NoAutoload }
func (b BaseTask) Force() bool           { return b.Forced }
func (b BaseTask) ConfigSection() string { return b.Section }

// FullyQualifiedName is the config-section fallback used when a task
// declares no ConfigSection (spec.md §4.4): the class name itself, since Go
// has no separate module/qualname split the way Python does.
func FullyQualifiedName(t Task) string { return string(t.ClassName()) }

// ResolveConfigSection returns the section a task's argument defaults and
// runtime configuration should be read from.
func ResolveConfigSection(t Task) string {
	if s := t.ConfigSection(); s != "" {
		return s
	}
	return FullyQualifiedName(t)
}

func (a Args) String() string {
	return fmt.Sprintf("Args{Positional:%v, Keyed:%v}", a.Positional, a.Keyed)
}
