// Package workerpool implements spec.md §4.6.2: a fixed pool of N
// goroutines, dependency ordering derived from a materialized graph rather
// than the tree walker's own recursion, and per-unique-key memoization so
// diamonds execute once. Map-reduce tasks distribute their map() calls
// across the pool and reduce driver-side once all of them have returned.
//
// A channel-fed worker pool bounded by a concurrency parameter, a
// mutex-guarded in-flight counter, and a coordinator loop that only submits
// a node once its dependencies have completed, driven by an
// indegree-countdown scheduler over the graph built from each task's own
// Requirements().
package workerpool
