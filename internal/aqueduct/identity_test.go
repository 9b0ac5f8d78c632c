package aqueduct

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constTask is a minimal SimpleTask used across this package's tests.
type constTask struct {
	BaseTask
	Class ClassName
	A     Args
	Value any
}

func (t *constTask) ClassName() ClassName                                 { return t.Class }
func (t *constTask) Args() Args                                           { return t.A }
func (t *constTask) Requirements(ctx context.Context) (WorkTree, error)   { return nil, nil }
func (t *constTask) Artifact(ctx context.Context) (Artifact, error)       { return nil, nil }
func (t *constTask) Run(ctx context.Context, requirements any) (any, error) {
	return t.Value, nil
}

// TestComputeUniqueKey_IdentityStability verifies invariant 1 from spec.md §8:
// "For all tasks t and u with equal class name and canonically-equal
// arguments, unique_key(t) = unique_key(u)."
func TestComputeUniqueKey_IdentityStability(t *testing.T) {
	a := &constTask{Class: "Square", A: Args{Keyed: map[string]any{"x": int64(4)}}}
	b := &constTask{Class: "Square", A: Args{Keyed: map[string]any{"x": int64(4)}}}

	ka, err := ComputeUniqueKey(a)
	require.NoError(t, err)
	kb, err := ComputeUniqueKey(b)
	require.NoError(t, err)

	assert.Equal(t, ka, kb)
	assert.Regexp(t, `^Square-[0-9a-f]{64}$`, string(ka))
}

func TestComputeUniqueKey_DifferentArgsDifferentKey(t *testing.T) {
	a := &constTask{Class: "Square", A: Args{Keyed: map[string]any{"x": int64(4)}}}
	b := &constTask{Class: "Square", A: Args{Keyed: map[string]any{"x": int64(5)}}}

	ka, err := ComputeUniqueKey(a)
	require.NoError(t, err)
	kb, err := ComputeUniqueKey(b)
	require.NoError(t, err)

	assert.NotEqual(t, ka, kb)
}

func TestComputeUniqueKey_KeyOrderIndependence(t *testing.T) {
	a := &constTask{Class: "Pair", A: Args{Keyed: map[string]any{"x": int64(1), "y": int64(2)}}}
	b := &constTask{Class: "Pair", A: Args{Keyed: map[string]any{"y": int64(2), "x": int64(1)}}}

	ka, err := ComputeUniqueKey(a)
	require.NoError(t, err)
	kb, err := ComputeUniqueKey(b)
	require.NoError(t, err)

	assert.Equal(t, ka, kb, "keyed argument hashing must sort by key")
}

func TestComputeUniqueKey_NestedTaskArgumentUsesItsOwnKey(t *testing.T) {
	inner := &constTask{Class: "Inner", A: Args{Keyed: map[string]any{"x": int64(1)}}}
	outerWithInner := &constTask{Class: "Outer", A: Args{Keyed: map[string]any{"dep": Task(inner)}}}

	key1, err := ComputeUniqueKey(outerWithInner)
	require.NoError(t, err)

	// An outer task referencing a structurally-identical but distinct inner
	// instance must hash the same, since identity only depends on the
	// nested task's own unique key, not its pointer identity.
	inner2 := &constTask{Class: "Inner", A: Args{Keyed: map[string]any{"x": int64(1)}}}
	outerWithInner2 := &constTask{Class: "Outer", A: Args{Keyed: map[string]any{"dep": Task(inner2)}}}
	key2, err := ComputeUniqueKey(outerWithInner2)
	require.NoError(t, err)

	assert.Equal(t, key1, key2)
}

func TestBaseTask_Defaults(t *testing.T) {
	b := BaseTask{}
	assert.True(t, b.Autosave())
	assert.True(t, b.Autoload())
	assert.False(t, b.Force())
	assert.Equal(t, time.Time{}, b.UpdatedAt())
}
