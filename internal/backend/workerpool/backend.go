package workerpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
	"github.com/aqueduct-go/aqueduct/internal/codec"
	"github.com/aqueduct-go/aqueduct/internal/graphmodel"
	"github.com/aqueduct-go/aqueduct/internal/logging"
	"github.com/aqueduct-go/aqueduct/internal/resolver"
	"github.com/aqueduct-go/aqueduct/internal/telemetry"
	"github.com/aqueduct-go/aqueduct/internal/trace"
)

// Backend is the worker-pool backend (spec.md §4.6.2). NWorkers bounds both
// the number of concurrently submitted node closures and the concurrency of
// a single map-reduce task's map() fan-out.
type Backend struct {
	NWorkers int
	Registry *codec.Registry
}

// New returns a worker-pool backend with nWorkers goroutines, clamped to at
// least 1.
func New(nWorkers int) *Backend {
	if nWorkers < 1 {
		nWorkers = 1
	}
	return &Backend{NWorkers: nWorkers, Registry: codec.NewRegistry()}
}

type nodeOutcome struct {
	key   aqueduct.UniqueKey
	value any
	err   error
}

// Run builds the dependency graph up front, then walks it with a fixed pool
// of goroutines, submitting a node only once every node it depends on has
// completed and been inlined into its payload (spec.md §4.6.2).
func (b *Backend) Run(ctx context.Context, work aqueduct.WorkTree, forceTasks []string) (any, error) {
	log := logging.FromContext(ctx).WithField("backend", "workerpool")

	graph, err := graphmodel.Build(ctx, work, resolver.IsCached)
	if err != nil {
		return nil, err
	}
	log.WithField("graph_hash", graph.Hash().String()).Debug("graph built")

	nodes := graph.Nodes()
	indeg := make(map[aqueduct.UniqueKey]int, len(nodes))
	for _, n := range nodes {
		indeg[n.Key] = graph.Indegree(n.Key)
	}

	var mu sync.Mutex
	results := make(map[aqueduct.UniqueKey]any, len(nodes))
	ready := make(chan aqueduct.UniqueKey, len(nodes))
	doneCh := make(chan nodeOutcome, len(nodes))

	for _, n := range nodes {
		if indeg[n.Key] == 0 {
			ready <- n.Key
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < b.NWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case key, ok := <-ready:
					if !ok {
						return
					}
					node, _ := graph.Node(key)
					value, err := b.runNode(ctx, node, results, &mu)
					doneCh <- nodeOutcome{key: key, value: value, err: err}
				}
			}
		}()
	}

	remaining := len(nodes)
	var firstErr error
	for remaining > 0 {
		select {
		case <-ctx.Done():
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			remaining = 0
		case outcome := <-doneCh:
			remaining--
			if outcome.err != nil {
				if firstErr == nil {
					firstErr = outcome.err
				}
				cancel()
				continue
			}
			mu.Lock()
			results[outcome.key] = outcome.value
			mu.Unlock()

			for _, dependent := range graph.Dependents(outcome.key) {
				indeg[dependent]--
				if indeg[dependent] == 0 {
					// Capacity is len(nodes) and each key is sent at most
					// once across the whole run, so this never blocks.
					ready <- dependent
				}
			}
		}
	}

	close(ready)
	wg.Wait()

	if firstErr != nil {
		log.WithError(firstErr).Error("run failed")
		return nil, firstErr
	}

	return aqueduct.MapOfType(work, aqueduct.IsTask, func(v any) any {
		key, _ := aqueduct.ComputeUniqueKey(v.(aqueduct.Task))
		return results[key]
	})
}

func (b *Backend) runNode(ctx context.Context, node *graphmodel.Node, results map[aqueduct.UniqueKey]any, mu *sync.Mutex) (any, error) {
	t := node.Task
	sink := trace.FromContext(ctx)
	instruments := telemetry.FromContext(ctx)

	if node.Cached {
		sink.Record(trace.TraceEvent{Kind: trace.EventTaskCached, UniqueKey: node.Key.String()})
		instruments.RecordCached(ctx)
		if !t.Autoload() {
			return nil, nil
		}
		value, err := resolver.LoadResult(ctx, t, b.Registry)
		if err != nil {
			return nil, err
		}
		sink.Record(trace.TraceEvent{Kind: trace.EventTaskArtifactsRestored, UniqueKey: node.Key.String()})
		return value, nil
	}

	var resolvedReqs any
	if node.ReqTree != nil {
		substituted, err := aqueduct.MapOfType(node.ReqTree, aqueduct.IsTask, func(v any) any {
			key, _ := aqueduct.ComputeUniqueKey(v.(aqueduct.Task))
			mu.Lock()
			defer mu.Unlock()
			return results[key]
		})
		if err != nil {
			return nil, err
		}
		resolvedReqs = substituted
	}

	start := time.Now()
	var value any
	var err error
	switch task := t.(type) {
	case aqueduct.MapReduceTask:
		value, err = b.runMapReduce(ctx, task, resolvedReqs)
	case aqueduct.SimpleTask:
		value, err = task.Run(ctx, resolvedReqs)
	default:
		return nil, aqueduct.NewError(aqueduct.KindUnsupportedNode, node.Key,
			fmt.Sprintf("task %s is neither a SimpleTask nor a MapReduceTask", t.ClassName()))
	}
	if err != nil {
		sink.Record(trace.TraceEvent{Kind: trace.EventTaskFailed, UniqueKey: node.Key.String()})
		instruments.RecordFailed(ctx)
		return nil, aqueduct.WrapError(aqueduct.KindTaskExecution, node.Key, err)
	}
	sink.Record(trace.TraceEvent{Kind: trace.EventTaskExecuted, UniqueKey: node.Key.String()})
	instruments.RecordExecuted(ctx, time.Since(start))

	return resolver.SaveResult(ctx, t, value, b.Registry)
}

// runMapReduce distributes map() calls across the pool and, once every
// map() call has returned, folds the mapped results driver-side in item
// order, starting from the accumulator. The fold does not begin while map()
// calls are still running.
func (b *Backend) runMapReduce(ctx context.Context, t aqueduct.MapReduceTask, requirements any) (any, error) {
	items, err := t.Items(ctx, requirements)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		acc, err := t.Accumulator(ctx, requirements)
		if err != nil {
			return nil, err
		}
		return t.Post(ctx, acc, requirements)
	}

	mapped := make([]any, len(items))
	mapErrs := make([]error, len(items))

	sem := make(chan struct{}, b.NWorkers)
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item any) {
			defer wg.Done()
			defer func() { <-sem }()
			mapped[i], mapErrs[i] = t.Map(ctx, item, requirements)
		}(i, item)
	}
	wg.Wait()

	for _, e := range mapErrs {
		if e != nil {
			return nil, e
		}
	}

	acc, err := t.Accumulator(ctx, requirements)
	if err != nil {
		return nil, err
	}
	for _, m := range mapped {
		acc, err = t.Reduce(ctx, acc, m)
		if err != nil {
			return nil, err
		}
	}

	return t.Post(ctx, acc, requirements)
}

// Close releases the pool. The worker-pool backend owns no persistent
// resources beyond per-call goroutines, so this is a no-op, matching
// spec.md §4.6's requirement that close() be idempotent.
func (b *Backend) Close() error { return nil }
