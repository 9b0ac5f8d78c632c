package distributed

import (
	"context"
	"sync"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
	"github.com/aqueduct-go/aqueduct/internal/codec"
	"github.com/aqueduct-go/aqueduct/internal/graphmodel"
	"github.com/aqueduct-go/aqueduct/internal/logging"
	"github.com/aqueduct-go/aqueduct/internal/resolver"
	"github.com/aqueduct-go/aqueduct/internal/telemetry"
	"github.com/aqueduct-go/aqueduct/internal/trace"
)

// Backend is the distributed-graph backend (spec.md §4.6.3): the resolved
// work tree is materialized as a graph, fused into linear chains, and each
// chain is handed to Transport as one dispatch so a worker can run several
// dependent nodes without a round trip between them.
//
// TaskRegistry reconstructs a concrete Task from (ClassName, Args) on
// whichever side actually executes a chain; CodecRegistry is the save/load
// policy's codec, exactly as the immediate and worker-pool backends use it.
// Transport defaults to an in-process transport wired to this Backend's own
// execute/load closures, which is enough for tests and single-process
// deployments; a real deployment supplies a NATSTransport instead and runs
// ServeNATSWorker on the worker side with the matching Registry.
type Backend struct {
	TaskRegistry  *Registry
	CodecRegistry *codec.Registry
	Transport     Transport
	NWorkers      int
}

// New returns a distributed backend dispatching chains in-process. Call
// WithTransport to point it at a real NATS deployment instead.
func New(taskRegistry *Registry, nWorkers int) *Backend {
	if nWorkers < 1 {
		nWorkers = 1
	}
	b := &Backend{
		TaskRegistry:  taskRegistry,
		CodecRegistry: codec.NewRegistry(),
		NWorkers:      nWorkers,
	}
	b.Transport = &InProcessTransport{Registry: taskRegistry, Execute: b.execute, Load: b.load}
	return b
}

// WithTransport swaps in a different Transport, e.g. a NATSTransport
// pointed at a cluster of worker processes each running ServeNATSWorker.
func (b *Backend) WithTransport(t Transport) *Backend {
	b.Transport = t
	return b
}

// Serve exposes this Backend's own execute/load closures over NATS, for a
// process that wants to act as a worker using the same task registry as the
// driver (spec.md's distributed backend does not otherwise require the
// driver and workers to be the same binary, only that they share a
// Registry).
func (b *Backend) Serve(conn *nats.Conn, subject string) (*nats.Subscription, error) {
	return ServeNATSWorker(conn, subject, b.TaskRegistry, b.execute, b.load)
}

type chainOutcome struct {
	chain int
	value any
	err   error
}

// Run builds the graph, fuses it into chains, and dispatches each chain
// through Transport as soon as every chain it depends on has produced a
// value, substituting those values directly into the chain's first node and
// chainInputMarker for the chain's own internal hand-offs.
func (b *Backend) Run(ctx context.Context, work aqueduct.WorkTree, forceTasks []string) (any, error) {
	log := logging.FromContext(ctx).WithField("backend", "distributed")

	graph, err := graphmodel.Build(ctx, work, resolver.IsCached)
	if err != nil {
		return nil, err
	}
	chains := FuseLinearChains(graph)
	log.WithField("graph_hash", graph.Hash().String()).WithField("chain_count", len(chains)).Debug("graph fused")

	keyToChain := make(map[aqueduct.UniqueKey]int, len(graph.Nodes()))
	for i, c := range chains {
		for _, k := range c.Keys {
			keyToChain[k] = i
		}
	}

	chainDeps := make([][]int, len(chains))
	chainDependents := make([][]int, len(chains))
	chainIndeg := make([]int, len(chains))
	for i, c := range chains {
		head, _ := graph.Node(c.Keys[0])
		seen := make(map[int]bool)
		for _, childKey := range head.Children {
			dep := keyToChain[childKey]
			if dep == i || seen[dep] {
				continue
			}
			seen[dep] = true
			chainDeps[i] = append(chainDeps[i], dep)
		}
		chainIndeg[i] = len(chainDeps[i])
	}
	for i, deps := range chainDeps {
		for _, dep := range deps {
			chainDependents[dep] = append(chainDependents[dep], i)
		}
	}

	var mu sync.Mutex
	results := make(map[aqueduct.UniqueKey]any, len(chains))

	ready := make(chan int, len(chains))
	doneCh := make(chan chainOutcome, len(chains))
	for i := range chains {
		if chainIndeg[i] == 0 {
			ready <- i
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, b.NWorkers)
	var wg sync.WaitGroup

	dispatch := func(chainIdx int) {
		defer wg.Done()
		defer func() { <-sem }()

		nodes, err := b.buildJobNodes(graph, chains[chainIdx], results, &mu)
		if err != nil {
			doneCh <- chainOutcome{chain: chainIdx, err: err}
			return
		}
		value, err := b.Transport.Dispatch(ctx, Job{Chain: chains[chainIdx], Nodes: nodes})
		doneCh <- chainOutcome{chain: chainIdx, value: value, err: err}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case idx, ok := <-ready:
				if !ok {
					return
				}
				wg.Add(1)
				sem <- struct{}{}
				go dispatch(idx)
			}
		}
	}()

	remaining := len(chains)
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

			lastKey := chains[outcome.chain].Keys[len(chains[outcome.chain].Keys)-1]
			mu.Lock()
			results[lastKey] = outcome.value
			mu.Unlock()

			for _, dependent := range chainDependents[outcome.chain] {
				chainIndeg[dependent]--
				if chainIndeg[dependent] == 0 {
					// Capacity is len(chains) and each chain index is sent
					// at most once across the whole run, so this never
					// blocks.
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

// buildJobNodes renders one chain as wire nodes: the chain's first node has
// every external (cross-chain) dependency substituted with its already-known
// value; every later node has its one dependency (the previous chain node)
// replaced with chainInputMarker, since the worker fills that in as it walks
// the chain.
func (b *Backend) buildJobNodes(graph *graphmodel.Graph, chain *Chain, results map[aqueduct.UniqueKey]any, mu *sync.Mutex) ([]wireNode, error) {
	nodes := make([]wireNode, 0, len(chain.Keys))
	for i, key := range chain.Keys {
		node, _ := graph.Node(key)
		w := wireNode{
			Key:       key,
			ClassName: node.Task.ClassName(),
			CtorArgs:  node.Task.Args(),
			Cached:    node.Cached,
		}

		if node.Cached || node.ReqTree == nil {
			nodes = append(nodes, w)
			continue
		}

		var template any
		var err error
		if i == 0 {
			template, err = aqueduct.MapOfType(node.ReqTree, aqueduct.IsTask, func(v any) any {
				childKey, _ := aqueduct.ComputeUniqueKey(v.(aqueduct.Task))
				mu.Lock()
				defer mu.Unlock()
				return results[childKey]
			})
		} else {
			prevKey := chain.Keys[i-1]
			template, err = aqueduct.MapOfType(node.ReqTree, aqueduct.IsTask, func(v any) any {
				childKey, _ := aqueduct.ComputeUniqueKey(v.(aqueduct.Task))
				if childKey == prevKey {
					return chainInputMarker
				}
				return nil
			})
		}
		if err != nil {
			return nil, err
		}

		w.ReqTemplate = template
		w.HasReqTemplate = true
		nodes = append(nodes, w)
	}
	return nodes, nil
}

// execute runs one reconstructed task to completion and applies the save
// policy, exactly like resolver.VisitFunc's execute branch; map-reduce
// fan-out (the Map calls) happens within the worker that owns the chain,
// bounded by NWorkers, and the mapped results are reduced over a balanced
// binary tree rather than a left-to-right fold.
func (b *Backend) execute(ctx context.Context, t aqueduct.Task, requirements any) (any, error) {
	key, _ := aqueduct.ComputeUniqueKey(t)
	sink := trace.FromContext(ctx)
	instruments := telemetry.FromContext(ctx)

	start := time.Now()
	var value any
	var err error
	switch task := t.(type) {
	case aqueduct.MapReduceTask:
		value, err = b.runMapReduceBalanced(ctx, task, requirements)
	case aqueduct.SimpleTask:
		value, err = task.Run(ctx, requirements)
	default:
		return nil, aqueduct.NewError(aqueduct.KindUnsupportedNode, key,
			"task is neither a SimpleTask nor a MapReduceTask")
	}
	if err != nil {
		sink.Record(trace.TraceEvent{Kind: trace.EventTaskFailed, UniqueKey: key.String()})
		instruments.RecordFailed(ctx)
		return nil, aqueduct.WrapError(aqueduct.KindTaskExecution, key, err)
	}
	sink.Record(trace.TraceEvent{Kind: trace.EventTaskExecuted, UniqueKey: key.String()})
	instruments.RecordExecuted(ctx, time.Since(start))

	return resolver.SaveResult(ctx, t, value, b.CodecRegistry)
}

// load serves a cached node's value through the save/load policy.
func (b *Backend) load(ctx context.Context, t aqueduct.Task) (any, error) {
	sink := trace.FromContext(ctx)
	instruments := telemetry.FromContext(ctx)
	sink.Record(trace.TraceEvent{Kind: trace.EventTaskCached, UniqueKey: string(keyOf(t))})
	instruments.RecordCached(ctx)
	if !t.Autoload() {
		return nil, nil
	}
	value, err := resolver.LoadResult(ctx, t, b.CodecRegistry)
	if err != nil {
		return nil, err
	}
	sink.Record(trace.TraceEvent{Kind: trace.EventTaskArtifactsRestored, UniqueKey: string(keyOf(t))})
	return value, nil
}

func keyOf(t aqueduct.Task) aqueduct.UniqueKey {
	key, _ := aqueduct.ComputeUniqueKey(t)
	return key
}

// runMapReduceBalanced maps every item concurrently, bounded by NWorkers,
// then folds the mapped results over a balanced ⌈log2 n⌉-depth binary tree
// (spec.md §4.6.3) instead of a left-to-right fold. Only the Map calls run
// concurrently; the Reduce calls run one after another on the calling
// goroutine. Reduce must still be associative; this changes only the
// parenthesization, never the set of terms combined.
func (b *Backend) runMapReduceBalanced(ctx context.Context, t aqueduct.MapReduceTask, requirements any) (any, error) {
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

	reducedMapped, err := balancedReduce(ctx, t, mapped)
	if err != nil {
		return nil, err
	}
	reduced, err := t.Reduce(ctx, acc, reducedMapped)
	if err != nil {
		return nil, err
	}

	return t.Post(ctx, reduced, requirements)
}

// balancedReduce combines mapped[0:n] (n >= 1) over the heap-indexed tree
// aqueduct.BalancedReduceIndex describes: node idx holds mapped[idx] and
// combines with the reduces of its children at 2*idx+1/2*idx+2, starting
// from the root at index 0. Every index is visited exactly once, so all n
// mapped values are combined exactly once; the caller folds the accumulator
// in once at the end, which is valid as long as Reduce is associative.
func balancedReduce(ctx context.Context, t aqueduct.MapReduceTask, mapped []any) (any, error) {
	n := len(mapped)
	var combine func(idx int) (any, error)
	combine = func(idx int) (any, error) {
		value := mapped[idx]
		left, right := aqueduct.BalancedReduceIndex(idx, n)
		if left != -1 {
			leftValue, err := combine(left)
			if err != nil {
				return nil, err
			}
			value, err = t.Reduce(ctx, leftValue, value)
			if err != nil {
				return nil, err
			}
		}
		if right != -1 {
			rightValue, err := combine(right)
			if err != nil {
				return nil, err
			}
			value, err = t.Reduce(ctx, value, rightValue)
			if err != nil {
				return nil, err
			}
		}
		return value, nil
	}
	return combine(0)
}

// Close releases the transport.
func (b *Backend) Close() error {
	return b.Transport.Close()
}
