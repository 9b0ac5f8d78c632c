package distributed

import (
	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
	"github.com/aqueduct-go/aqueduct/internal/graphmodel"
)

// Chain is a maximal run of nodes that can execute on a single worker
// without round-tripping through the transport between them: each interior
// node's only dependent is the next node in the chain, and that next node's
// only dependency is the interior node. This is spec.md §4.6.3's "fusion of
// linear chains into composite nodes" optimization; it is correctness-
// preserving because it only changes how many transport hops a given
// dependency edge costs, never which inputs a node receives.
type Chain struct {
	Keys []aqueduct.UniqueKey
}

// FuseLinearChains partitions every node in graph into maximal chains,
// visited in topological order so each chain's keys are already
// dependency-ordered within themselves.
func FuseLinearChains(graph *graphmodel.Graph) []*Chain {
	visited := make(map[aqueduct.UniqueKey]bool)
	var chains []*Chain

	for _, key := range graph.TopologicalOrder() {
		if visited[key] {
			continue
		}

		chain := &Chain{Keys: []aqueduct.UniqueKey{key}}
		visited[key] = true

		current := key
		for {
			dependents := graph.Dependents(current)
			if len(dependents) != 1 {
				break
			}
			next := dependents[0]
			if visited[next] || graph.Indegree(next) != 1 {
				break
			}
			chain.Keys = append(chain.Keys, next)
			visited[next] = true
			current = next
		}

		chains = append(chains, chain)
	}

	return chains
}
