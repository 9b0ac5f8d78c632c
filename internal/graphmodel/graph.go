package graphmodel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
)

// GraphHash is the deterministic identity of a Graph, stable across
// insertion order of nodes and edges (carried over from
// internal/dag/types.go's GraphHash).
type GraphHash string

func (h GraphHash) String() string { return string(h) }

// Node is one task in the dependency graph. ReqTree is the task's own
// Requirements() result, unexpanded; Children is every unique key reachable
// in ReqTree, used to build edges and, later, to know which results a
// backend must have in hand before it can substitute them back into ReqTree
// with aqueduct.MapOfType. Cached nodes carry a nil ReqTree: their
// requirements are never evaluated, mirroring aqueduct.Resolve's own pruning
// rule (spec.md §4.3).
type Node struct {
	Key      aqueduct.UniqueKey
	Task     aqueduct.Task
	Cached   bool
	ReqTree  aqueduct.WorkTree
	Children []aqueduct.UniqueKey

	canonicalIndex int
}

type edgeIndex struct{ from, to int }

// Graph is an immutable, validated DAG over unique keys.
type Graph struct {
	byKey map[aqueduct.UniqueKey]*Node
	nodes []*Node // canonical order

	edges    []edgeIndex
	outgoing [][]int
	incoming [][]int
	indeg    []int

	hash GraphHash
}

// CacheProbe mirrors aqueduct.CacheProbe; graphmodel takes it as a plain
// function value rather than importing internal/resolver to avoid a import
// cycle (resolver never needs to know about graphmodel).
type CacheProbe func(ctx context.Context, t aqueduct.Task) (bool, error)

// Build discovers every task reachable from root and assembles a Graph.
// A task is expanded (its Requirements walked) unless isCached reports it
// cached and it is not force-recompute (mirroring aqueduct.Resolve exactly,
// so a worker-pool or distributed backend built on top of Build observes the
// same pruning as the immediate backend).
func Build(ctx context.Context, root aqueduct.WorkTree, isCached CacheProbe) (*Graph, error) {
	byKey := make(map[aqueduct.UniqueKey]*Node)
	var order []*Node

	var visit func(tree aqueduct.WorkTree) ([]aqueduct.UniqueKey, error)
	visit = func(tree aqueduct.WorkTree) ([]aqueduct.UniqueKey, error) {
		tasks, err := aqueduct.GatherTasks(tree)
		if err != nil {
			return nil, err
		}
		keys := make([]aqueduct.UniqueKey, 0, len(tasks))
		for _, t := range tasks {
			key, err := aqueduct.ComputeUniqueKey(t)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
			if _, seen := byKey[key]; seen {
				continue
			}

			cached, err := isCached(ctx, t)
			if err != nil {
				return nil, err
			}
			if cached && !t.Force() {
				node := &Node{Key: key, Task: t, Cached: true}
				byKey[key] = node
				order = append(order, node)
				continue
			}

			reqs, err := t.Requirements(ctx)
			if err != nil {
				return nil, err
			}
			node := &Node{Key: key, Task: t, ReqTree: reqs}
			byKey[key] = node
			order = append(order, node)

			if reqs != nil {
				children, err := visit(reqs)
				if err != nil {
					return nil, err
				}
				node.Children = children
			}
		}
		return keys, nil
	}

	if _, err := visit(root); err != nil {
		return nil, err
	}

	return newGraph(byKey, order)
}

func newGraph(byKey map[aqueduct.UniqueKey]*Node, nodes []*Node) (*Graph, error) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })
	for i, n := range nodes {
		n.canonicalIndex = i
	}

	indexOf := make(map[aqueduct.UniqueKey]int, len(nodes))
	for _, n := range nodes {
		indexOf[n.Key] = n.canonicalIndex
	}

	var mapped []edgeIndex
	seen := make(map[edgeIndex]struct{})
	for _, n := range nodes {
		for _, childKey := range n.Children {
			pair := edgeIndex{from: indexOf[childKey], to: n.canonicalIndex}
			if _, dup := seen[pair]; dup {
				continue
			}
			seen[pair] = struct{}{}
			mapped = append(mapped, pair)
		}
	}
	sort.Slice(mapped, func(i, j int) bool {
		if mapped[i].from != mapped[j].from {
			return mapped[i].from < mapped[j].from
		}
		return mapped[i].to < mapped[j].to
	})

	outgoing := make([][]int, len(nodes))
	incoming := make([][]int, len(nodes))
	indeg := make([]int, len(nodes))
	for _, e := range mapped {
		outgoing[e.from] = append(outgoing[e.from], e.to)
		incoming[e.to] = append(incoming[e.to], e.from)
		indeg[e.to]++
	}
	for i := range outgoing {
		sort.Ints(outgoing[i])
	}
	for i := range incoming {
		sort.Ints(incoming[i])
	}

	g := &Graph{byKey: byKey, nodes: nodes, edges: mapped, outgoing: outgoing, incoming: incoming, indeg: indeg}

	order := g.topoOrderIndices()
	if len(order) != len(nodes) {
		cycle := g.findCycleDeterministic()
		return nil, aqueduct.NewError(aqueduct.KindCycleDetected, "", "cycle detected: %v", cycle)
	}

	g.hash = g.computeHash()
	return g, nil
}

// Node returns the node for a unique key.
func (g *Graph) Node(key aqueduct.UniqueKey) (*Node, bool) {
	n, ok := g.byKey[key]
	return n, ok
}

// Nodes returns the nodes in canonical (key-sorted) order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Hash returns the graph's deterministic identity.
func (g *Graph) Hash() GraphHash { return g.hash }

// Indegree returns the number of unfinished dependencies a node has, used by
// a countdown scheduler (internal/backend/workerpool) to decide when a node
// becomes ready.
func (g *Graph) Indegree(key aqueduct.UniqueKey) int {
	n, ok := g.byKey[key]
	if !ok {
		return 0
	}
	return g.indeg[n.canonicalIndex]
}

// Dependents returns the unique keys of nodes that directly require key,
// i.e. the nodes whose indegree should be decremented once key finishes.
func (g *Graph) Dependents(key aqueduct.UniqueKey) []aqueduct.UniqueKey {
	n, ok := g.byKey[key]
	if !ok {
		return nil
	}
	out := make([]aqueduct.UniqueKey, 0, len(g.outgoing[n.canonicalIndex]))
	for _, idx := range g.outgoing[n.canonicalIndex] {
		out = append(out, g.nodes[idx].Key)
	}
	return out
}

// TopologicalOrder returns unique keys in a deterministic dependency-first
// order: every node appears after all of its children.
func (g *Graph) TopologicalOrder() []aqueduct.UniqueKey {
	order := g.topoOrderIndices()
	out := make([]aqueduct.UniqueKey, len(order))
	for i, idx := range order {
		out[i] = g.nodes[idx].Key
	}
	return out
}

func (g *Graph) computeHash() GraphHash {
	h := sha256.New()
	writeField := func(data []byte) {
		n := uint64(len(data))
		var lb [8]byte
		for i := 0; i < 8; i++ {
			lb[i] = byte(n >> (56 - 8*i))
		}
		h.Write(lb[:])
		h.Write(data)
	}

	writeField([]byte{byte(len(g.nodes))})
	for _, n := range g.nodes {
		writeField([]byte(n.Key))
	}
	writeField([]byte{byte(len(g.edges))})
	for _, e := range g.edges {
		writeField([]byte{byte(e.from >> 24), byte(e.from >> 16), byte(e.from >> 8), byte(e.from)})
		writeField([]byte{byte(e.to >> 24), byte(e.to >> 16), byte(e.to >> 8), byte(e.to)})
	}
	return GraphHash(hex.EncodeToString(h.Sum(nil)))
}
