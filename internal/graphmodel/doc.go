// Package graphmodel builds an explicit dependency graph over a resolved
// work tree's tasks, keyed by aqueduct.UniqueKey, for backends that need to
// schedule across the whole tree up front rather than drive it through
// aqueduct.Resolve's single recursive pass (spec.md §4.6.2's worker-pool
// backend and §4.6.3's distributed-graph backend both "build the dependency
// graph first, then walk it").
//
// Canonical node ordering, a length-prefixed SHA-256 graph hash, Kahn's
// algorithm with a min-heap for a deterministic topological order, and DFS
// white/gray/black cycle detection with path reconstruction operate over
// UniqueKey-addressed nodes whose edges are discovered by walking each
// task's own Requirements() rather than from explicit caller-supplied edges.
package graphmodel
