package aqueduct

import "context"

// MapReduceTask is the second task subkind from spec.md §3: semantically
// equivalent to folding Reduce over Map(Items()) starting from Accumulator,
// then applying Post. Reduce must be associative; backends are free to
// re-parenthesize (spec.md §5, "Ordering guarantees").
//
// Grounded on original_source/src/aqueduct/task/mapreduce.go's Python
// counterpart (AbstractMapReduceTask / MapReduceTask in mapreduce.py).
type MapReduceTask interface {
	Task

	// Items returns the elements to map over. An empty or nil result is
	// valid (spec.md §8, "Empty map-reduce").
	Items(ctx context.Context, requirements any) ([]any, error)

	// Map transforms one item given the resolved requirements.
	Map(ctx context.Context, item any, requirements any) (any, error)

	// Accumulator produces the fold's starting value.
	Accumulator(ctx context.Context, requirements any) (any, error)

	// Reduce combines two partial results. Must be associative.
	Reduce(ctx context.Context, left, right any) (any, error)

	// Post transforms the fully-reduced accumulator into the task's result.
	Post(ctx context.Context, accumulated any, requirements any) (any, error)
}

// FoldSequential runs a MapReduceTask's fold left-to-right on the driver,
// with no parallelism. It is the reference semantics every backend's
// parallel fold must agree with (spec.md §4.6.1 "used as the reference
// semantics").
func FoldSequential(ctx context.Context, t MapReduceTask, requirements any) (any, error) {
	items, err := t.Items(ctx, requirements)
	if err != nil {
		return nil, err
	}

	acc, err := t.Accumulator(ctx, requirements)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		mapped, err := t.Map(ctx, item, requirements)
		if err != nil {
			return nil, err
		}
		acc, err = t.Reduce(ctx, acc, mapped)
		if err != nil {
			return nil, err
		}
	}

	return t.Post(ctx, acc, requirements)
}

// BalancedReduceIndex implements spec.md §4.6.3's balanced binary reduce
// tree layout: item i at index idx produces a reduce node whose two inputs
// are the reduce nodes at indices 2*idx+1 and 2*idx+2, falling back to the
// accumulator index (-1) when an index is out of range (n is the item
// count). Returns (leftIdx, rightIdx), either of which may be -1.
func BalancedReduceIndex(idx, n int) (left, right int) {
	left = 2*idx + 1
	right = 2*idx + 2
	if left >= n {
		left = -1
	}
	if right >= n {
		right = -1
	}
	return left, right
}
