package distributed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
)

type numTask struct {
	aqueduct.BaseTask
	Class aqueduct.ClassName
	Value int64
	Reqs  aqueduct.WorkTree
}

func (t *numTask) ClassName() aqueduct.ClassName { return t.Class }
func (t *numTask) Args() aqueduct.Args {
	return aqueduct.Args{Keyed: map[string]any{"value": t.Value, "class": string(t.Class)}}
}
func (t *numTask) Requirements(ctx context.Context) (aqueduct.WorkTree, error) { return t.Reqs, nil }
func (t *numTask) Artifact(ctx context.Context) (aqueduct.Artifact, error)     { return nil, nil }
func (t *numTask) Run(ctx context.Context, requirements any) (any, error) {
	if requirements == nil {
		return t.Value, nil
	}
	pair := requirements.(aqueduct.Tuple)
	return pair[0].(int64) + pair[1].(int64), nil
}

func numFactory(runs map[string]*int32) TaskFactory {
	return func(args aqueduct.Args) (aqueduct.Task, error) {
		class := args.Keyed["class"].(string)
		if counter, ok := runs[class]; ok {
			atomic.AddInt32(counter, 1)
		}
		return &numTask{Class: aqueduct.ClassName(class), Value: args.Keyed["value"].(int64)}, nil
	}
}

func TestBackend_Run_DiamondDispatchesSharedChainOnce(t *testing.T) {
	runs := map[string]*int32{"Shared": new(int32)}
	shared := &numTask{Class: "Shared", Value: 10}
	left := &numTask{Class: "Left", Value: 1, Reqs: aqueduct.Tuple{shared, shared}}
	root := &numTask{Class: "Root", Value: 0, Reqs: aqueduct.Tuple{left, shared}}

	registry := NewRegistry()
	registry.Register("Shared", numFactory(runs))
	registry.Register("Left", numFactory(runs))
	registry.Register("Root", numFactory(runs))

	b := New(registry, 4)
	result, err := b.Run(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(30), result)
	assert.EqualValues(t, 1, *runs["Shared"], "shared chain must dispatch exactly once despite three references")
}

type squaresSumTask struct {
	aqueduct.BaseTask
	Items_ []int64
}

func (t *squaresSumTask) ClassName() aqueduct.ClassName { return "SquaresSum" }
func (t *squaresSumTask) Args() aqueduct.Args {
	vals := make([]any, len(t.Items_))
	for i, v := range t.Items_ {
		vals[i] = v
	}
	return aqueduct.Args{Positional: vals}
}
func (t *squaresSumTask) Requirements(ctx context.Context) (aqueduct.WorkTree, error) { return nil, nil }
func (t *squaresSumTask) Artifact(ctx context.Context) (aqueduct.Artifact, error)     { return nil, nil }
func (t *squaresSumTask) Items(ctx context.Context, requirements any) ([]any, error) {
	out := make([]any, len(t.Items_))
	for i, v := range t.Items_ {
		out[i] = v
	}
	return out, nil
}
func (t *squaresSumTask) Map(ctx context.Context, item any, requirements any) (any, error) {
	v := item.(int64)
	return v * v, nil
}
func (t *squaresSumTask) Accumulator(ctx context.Context, requirements any) (any, error) {
	return int64(0), nil
}
func (t *squaresSumTask) Reduce(ctx context.Context, left, right any) (any, error) {
	return left.(int64) + right.(int64), nil
}
func (t *squaresSumTask) Post(ctx context.Context, accumulated any, requirements any) (any, error) {
	return accumulated, nil
}

func squaresSumFactory(args aqueduct.Args) (aqueduct.Task, error) {
	items := make([]int64, len(args.Positional))
	for i, v := range args.Positional {
		items[i] = v.(int64)
	}
	return &squaresSumTask{Items_: items}, nil
}

func TestBackend_Run_MapReduceBalancedReduceMatchesSequentialFold(t *testing.T) {
	task := &squaresSumTask{Items_: []int64{1, 2, 3, 4, 5}}
	registry := NewRegistry()
	registry.Register("SquaresSum", squaresSumFactory)

	b := New(registry, 3)
	result, err := b.Run(context.Background(), task, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(55), result)
}

type failingTask struct {
	aqueduct.BaseTask
}

func (t *failingTask) ClassName() aqueduct.ClassName                              { return "Failing" }
func (t *failingTask) Args() aqueduct.Args                                        { return aqueduct.Args{} }
func (t *failingTask) Requirements(ctx context.Context) (aqueduct.WorkTree, error) { return nil, nil }
func (t *failingTask) Artifact(ctx context.Context) (aqueduct.Artifact, error)    { return nil, nil }
func (t *failingTask) Run(ctx context.Context, requirements any) (any, error) {
	return nil, assert.AnError
}

func failingFactory(args aqueduct.Args) (aqueduct.Task, error) {
	return &failingTask{}, nil
}

func TestBackend_Run_PropagatesTaskExecutionError(t *testing.T) {
	registry := NewRegistry()
	registry.Register("Failing", failingFactory)

	b := New(registry, 2)
	_, err := b.Run(context.Background(), &failingTask{}, nil)
	require.Error(t, err)
	var aqErr *aqueduct.Error
	require.ErrorAs(t, err, &aqErr)
	assert.Equal(t, aqueduct.KindTaskExecution, aqErr.Kind)
}
