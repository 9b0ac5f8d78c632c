package cli

import (
	"context"
	"regexp"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
	"github.com/aqueduct-go/aqueduct/internal/graphmodel"
)

// SelectOptions narrows a task's requirement tree for `del` and
// `artifact ls` (spec.md §6): Below restricts the walk to the subtree
// rooted at a particular ClassName, MaxDepth bounds how many requirement
// hops past the start node are visited (0 means unlimited), and Pattern
// further filters by a regex over ClassName.
type SelectOptions struct {
	Below    string
	MaxDepth int
	Pattern  string
}

// selectNodes renders root's full requirement tree (never pruned by cache
// state, since both del and artifact ls need to see every node regardless
// of freshness) and returns the nodes opts selects, closest-to-root first.
func selectNodes(ctx context.Context, root aqueduct.Task, opts SelectOptions) ([]*graphmodel.Node, error) {
	graph, err := graphmodel.Build(ctx, root, neverCached)
	if err != nil {
		return nil, err
	}

	start, err := startNode(graph, root, opts.Below)
	if err != nil {
		return nil, err
	}

	var re *regexp.Regexp
	if opts.Pattern != "" {
		re, err = regexp.Compile(opts.Pattern)
		if err != nil {
			return nil, invalidInvocationf("invalid --re pattern %q: %v", opts.Pattern, err)
		}
	}

	type frontierEntry struct {
		key   aqueduct.UniqueKey
		depth int
	}
	visited := map[aqueduct.UniqueKey]bool{start.Key: true}
	queue := []frontierEntry{{key: start.Key, depth: 0}}
	var out []*graphmodel.Node

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]
		node, ok := graph.Node(entry.key)
		if !ok {
			continue
		}
		if re == nil || re.MatchString(string(node.Task.ClassName())) {
			out = append(out, node)
		}
		if opts.MaxDepth > 0 && entry.depth >= opts.MaxDepth {
			continue
		}
		for _, childKey := range node.Children {
			if visited[childKey] {
				continue
			}
			visited[childKey] = true
			queue = append(queue, frontierEntry{key: childKey, depth: entry.depth + 1})
		}
	}

	return out, nil
}

func startNode(graph *graphmodel.Graph, root aqueduct.Task, below string) (*graphmodel.Node, error) {
	if below == "" {
		key, err := aqueduct.ComputeUniqueKey(root)
		if err != nil {
			return nil, err
		}
		node, ok := graph.Node(key)
		if !ok {
			return nil, invalidInvocationf("root task not found in its own requirement graph")
		}
		return node, nil
	}
	for _, n := range graph.Nodes() {
		if string(n.Task.ClassName()) == below {
			return n, nil
		}
	}
	return nil, invalidInvocationf("--below %q matches no task in the requirement tree", below)
}
