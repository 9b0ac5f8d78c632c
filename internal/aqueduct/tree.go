package aqueduct

import "context"

// WorkTree is a possibly-nested container of Task values and leaves
// (spec.md §3, "Work tree"). Dynamically, a WorkTree value is one of:
//
//   - Task
//   - []any            (ordered list)
//   - Tuple             (fixed-size tuple)
//   - Mapping           (keyed mapping, insertion order preserved)
//   - anything else     (leaf)
//
// There is no static WorkTree type beyond `any`; the walker below is the
// single place that knows this container set (spec.md §9, "Heterogeneous
// requirement containers").
type WorkTree = any

// Tuple is a fixed-size ordered work tree node, distinct from an ordinary
// list so the walker can tell them apart when rebuilding (spec.md §3 lists
// list and tuple as separate container kinds).
type Tuple []any

// KeyedEntry is one entry of a Mapping.
type KeyedEntry struct {
	Key   string
	Value any
}

// Mapping is a keyed work tree node that preserves insertion order, since
// spec.md §5 requires map traversal "by insertion order" and a bare Go map
// cannot provide that.
type Mapping []KeyedEntry

func (m Mapping) Get(key string) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// MustGet panics if key is absent; intended for task Run implementations
// pulling a named requirement out of a resolved Mapping, where absence is a
// programmer error rather than a recoverable condition.
func (m Mapping) MustGet(key string) any {
	v, ok := m.Get(key)
	if !ok {
		panic("aqueduct: missing key " + key + " in resolved requirements mapping")
	}
	return v
}

// Predicate matches leaves during MapOfType/ReduceOfType.
type Predicate func(v any) bool

// IsTask is the predicate most callers want: true for anything implementing
// Task.
func IsTask(v any) bool {
	_, ok := v.(Task)
	return ok
}

// MapOfType returns a tree of the same shape as tree where every value
// matching predicate is replaced by fn(value) (spec.md §4.1).
func MapOfType(tree any, predicate Predicate, fn func(any) any) (any, error) {
	switch node := tree.(type) {
	case []any:
		out := make([]any, len(node))
		for i, v := range node {
			mapped, err := MapOfType(v, predicate, fn)
			if err != nil {
				return nil, err
			}
			out[i] = mapped
		}
		return out, nil
	case Tuple:
		out := make(Tuple, len(node))
		for i, v := range node {
			mapped, err := MapOfType(v, predicate, fn)
			if err != nil {
				return nil, err
			}
			out[i] = mapped
		}
		return out, nil
	case Mapping:
		out := make(Mapping, len(node))
		for i, e := range node {
			mapped, err := MapOfType(e.Value, predicate, fn)
			if err != nil {
				return nil, err
			}
			out[i] = KeyedEntry{Key: e.Key, Value: mapped}
		}
		return out, nil
	default:
		if predicate(node) {
			return fn(node), nil
		}
		return node, nil
	}
}

// ReduceOfType left-folds fold over every value matching predicate, visited
// in natural traversal order: list/tuple by index, mapping by insertion
// order (spec.md §4.1, §5).
func ReduceOfType(tree any, predicate Predicate, fold func(acc, v any) any, initial any) (any, error) {
	acc := initial
	var walk func(node any) error
	walk = func(node any) error {
		switch n := node.(type) {
		case []any:
			for _, v := range n {
				if err := walk(v); err != nil {
					return err
				}
			}
		case Tuple:
			for _, v := range n {
				if err := walk(v); err != nil {
					return err
				}
			}
		case Mapping:
			for _, e := range n {
				if err := walk(e.Value); err != nil {
					return err
				}
			}
		default:
			if predicate(n) {
				acc = fold(acc, n)
			}
		}
		return nil
	}
	if err := walk(tree); err != nil {
		return nil, err
	}
	return acc, nil
}

// GatherTasks returns every Task reachable in tree, in traversal order,
// without deduplication. Grounded on original_source/src/aqueduct/task_tree.py's
// gather_tasks_in_tree.
func GatherTasks(tree any) ([]Task, error) {
	acc, err := ReduceOfType(tree, IsTask, func(acc, v any) any {
		return append(acc.([]Task), v.(Task))
	}, []Task{})
	if err != nil {
		return nil, err
	}
	return acc.([]Task), nil
}

// CacheProbe decides whether a task is currently cached; it is the resolver's
// is_cached hook (spec.md §4.3), threaded into the walker so that Resolve can
// decide whether to expand a task's requirements at all.
type CacheProbe func(ctx context.Context, t Task) (bool, error)

// Visit is invoked once per task node that Resolve decides to expand or
// prune. hadRequirements is false when the task was pruned by the cache gate
// or declared no requirements; resolvedRequirements is nil in that case.
type Visit func(ctx context.Context, t Task, resolvedRequirements any, hadRequirements bool) (any, error)

// Resolve walks tree depth-first (spec.md §4.1). For each task node it
// consults isCached (honoring ignoreCache); if the task is cached and not
// ignored, its requirements are never evaluated and visit is called with
// hadRequirements=false. Otherwise its requirements are resolved recursively
// first, then visit is called with the resolved sub-tree. Non-task
// containers recurse into their children and are rebuilt with the same
// shape (spec.md invariant 4).
//
// A task's unique key is memoized for the duration of one Resolve call: a
// task that occurs more than once in tree (a shared subtree reachable
// through two different parents) is cache-checked, expanded, and visited
// exactly once, and every occurrence is substituted with that single result
// (spec.md invariant 3, §8.3). This matters even for a tree walked by a
// single goroutine — without it, a diamond-shaped requirement graph would
// run its shared dependency once per edge into it rather than once overall.
//
// A depth-first traversal over Aqueduct's recursive container shapes.
func Resolve(ctx context.Context, tree any, ignoreCache bool, isCached CacheProbe, visit Visit) (any, error) {
	memo := make(map[UniqueKey]*resolveMemoEntry)
	return resolveMemoized(ctx, tree, ignoreCache, isCached, visit, memo)
}

// resolveMemoEntry caches the outcome of resolving one unique key so a
// second occurrence of the same task replays the result instead of
// re-running isCached/Requirements/visit.
type resolveMemoEntry struct {
	result any
	err    error
}

func resolveMemoized(ctx context.Context, tree any, ignoreCache bool, isCached CacheProbe, visit Visit, memo map[UniqueKey]*resolveMemoEntry) (any, error) {
	switch node := tree.(type) {
	case Task:
		key, err := ComputeUniqueKey(node)
		if err != nil {
			return nil, err
		}
		if entry, ok := memo[key]; ok {
			return entry.result, entry.err
		}

		result, err := resolveTaskNode(ctx, node, ignoreCache, isCached, visit, memo)
		memo[key] = &resolveMemoEntry{result: result, err: err}
		return result, err

	case []any:
		out := make([]any, len(node))
		for i, v := range node {
			resolved, err := resolveMemoized(ctx, v, ignoreCache, isCached, visit, memo)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil

	case Tuple:
		out := make(Tuple, len(node))
		for i, v := range node {
			resolved, err := resolveMemoized(ctx, v, ignoreCache, isCached, visit, memo)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil

	case Mapping:
		out := make(Mapping, len(node))
		for i, e := range node {
			resolved, err := resolveMemoized(ctx, e.Value, ignoreCache, isCached, visit, memo)
			if err != nil {
				return nil, err
			}
			out[i] = KeyedEntry{Key: e.Key, Value: resolved}
		}
		return out, nil

	case nil:
		return nil, nil

	default:
		// Reject container-shaped values the walker doesn't know about
		// (spec.md §4.1: "fails with UnsupportedTreeNode").
		if isUnsupportedContainer(node) {
			return nil, NewError(KindUnsupportedNode, "", "unsupported tree node of type %T", node)
		}
		return node, nil
	}
}

func resolveTaskNode(ctx context.Context, node Task, ignoreCache bool, isCached CacheProbe, visit Visit, memo map[UniqueKey]*resolveMemoEntry) (any, error) {
	cached, err := isCached(ctx, node)
	if err != nil {
		return nil, err
	}
	if cached && !ignoreCache && !node.Force() {
		return visit(ctx, node, nil, false)
	}

	reqs, err := node.Requirements(ctx)
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		return visit(ctx, node, nil, false)
	}

	resolvedReqs, err := resolveMemoized(ctx, reqs, ignoreCache, isCached, visit, memo)
	if err != nil {
		return nil, err
	}
	return visit(ctx, node, resolvedReqs, true)
}
