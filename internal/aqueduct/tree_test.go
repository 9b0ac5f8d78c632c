package aqueduct

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolve_ShapePreservation verifies invariant 4 / testable property 2:
// "For all work trees w and result trees r = run(w), shape(w) = shape(r)."
func TestResolve_ShapePreservation(t *testing.T) {
	ctx := context.Background()

	leaf := &constTask{Class: "Leaf", A: Args{Keyed: map[string]any{"v": int64(1)}}, Value: int64(1)}
	tree := []any{
		leaf,
		Tuple{leaf, "literal"},
		Mapping{{Key: "a", Value: leaf}, {Key: "b", Value: "literal"}},
	}

	neverCached := func(ctx context.Context, tsk Task) (bool, error) { return false, nil }
	visit := func(ctx context.Context, tsk Task, resolved any, had bool) (any, error) {
		st := tsk.(SimpleTask)
		return st.Run(ctx, resolved)
	}

	result, err := Resolve(ctx, tree, false, neverCached, visit)
	require.NoError(t, err)

	resultList, ok := result.([]any)
	require.True(t, ok)
	require.Len(t, resultList, 3)
	assert.Equal(t, int64(1), resultList[0])

	resultTuple, ok := resultList[1].(Tuple)
	require.True(t, ok)
	assert.Equal(t, Tuple{int64(1), "literal"}, resultTuple)

	resultMapping, ok := resultList[2].(Mapping)
	require.True(t, ok)
	v, ok := resultMapping.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), v)
	v, ok = resultMapping.Get("b")
	require.True(t, ok)
	assert.Equal(t, "literal", v)
}

// TestResolve_CachedTaskPrunesRequirements verifies spec.md §4.3's pruning
// rule: a cached, unforced task's Requirements() must never be called.
func TestResolve_CachedTaskPrunesRequirements(t *testing.T) {
	ctx := context.Background()
	calledRequirements := false

	task := &countingTask{
		constTask: constTask{Class: "Cached", Value: int64(42)},
		onRequirements: func() {
			calledRequirements = true
		},
	}

	alwaysCached := func(ctx context.Context, tsk Task) (bool, error) { return true, nil }
	visit := func(ctx context.Context, tsk Task, resolved any, had bool) (any, error) {
		assert.False(t, had)
		assert.Nil(t, resolved)
		return tsk.(SimpleTask).Run(ctx, resolved)
	}

	result, err := Resolve(ctx, task, false, alwaysCached, visit)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result)
	assert.False(t, calledRequirements, "cached task's Requirements must not be evaluated")
}

type countingTask struct {
	constTask
	onRequirements   func()
	requirementCalls int
}

func (t *countingTask) Requirements(ctx context.Context) (WorkTree, error) {
	t.onRequirements()
	return nil, nil
}

func TestMapOfType_ReplacesMatchingLeaves(t *testing.T) {
	tree := []any{int64(1), "two", int64(3)}
	isInt := func(v any) bool {
		_, ok := v.(int64)
		return ok
	}
	doubled, err := MapOfType(tree, isInt, func(v any) any { return v.(int64) * 2 })
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), "two", int64(6)}, doubled)
}

func TestReduceOfType_NaturalTraversalOrder(t *testing.T) {
	tree := Mapping{
		{Key: "a", Value: int64(1)},
		{Key: "b", Value: int64(2)},
		{Key: "c", Value: int64(3)},
	}
	sum, err := ReduceOfType(tree, func(v any) bool { _, ok := v.(int64); return ok },
		func(acc, v any) any { return acc.(int64) + v.(int64) }, int64(0))
	require.NoError(t, err)
	assert.Equal(t, int64(6), sum)
}

// TestResolve_SharedTaskVisitedOnce verifies invariant 3 / spec.md §8.3:
// "no task with a given unique key is executed more than once ... regardless
// of how many times it appears in the tree."
func TestResolve_SharedTaskVisitedOnce(t *testing.T) {
	ctx := context.Background()

	shared := &countingTask{constTask: constTask{Class: "Shared", A: Args{Keyed: map[string]any{"v": int64(10)}}, Value: int64(10)}}
	shared.onRequirements = func() { shared.requirementCalls++ }
	tree := Tuple{shared, Tuple{shared, shared}}

	neverCached := func(ctx context.Context, tsk Task) (bool, error) { return false, nil }
	visitCount := 0
	visit := func(ctx context.Context, tsk Task, resolved any, had bool) (any, error) {
		visitCount++
		return tsk.(SimpleTask).Run(ctx, resolved)
	}

	result, err := Resolve(ctx, tree, false, neverCached, visit)
	require.NoError(t, err)

	resultTuple := result.(Tuple)
	assert.Equal(t, int64(10), resultTuple[0])
	assert.Equal(t, Tuple{int64(10), int64(10)}, resultTuple[1])
	assert.Equal(t, 1, visitCount, "shared task must be visited exactly once despite three occurrences")
	assert.Equal(t, 1, shared.requirementCalls, "shared task's Requirements must be evaluated exactly once")
}

func TestResolve_UnsupportedContainerRejected(t *testing.T) {
	ctx := context.Background()
	neverCached := func(ctx context.Context, tsk Task) (bool, error) { return false, nil }
	visit := func(ctx context.Context, tsk Task, resolved any, had bool) (any, error) { return nil, nil }

	_, err := Resolve(ctx, map[string]any{"x": int64(1)}, false, neverCached, visit)
	require.Error(t, err)

	var aqErr *Error
	require.ErrorAs(t, err, &aqErr)
	assert.Equal(t, KindUnsupportedNode, aqErr.Kind)
}
