// Package immediate is the single-threaded, synchronous backend (spec.md
// §4.6.1). It is the reference semantics every other backend must agree
// with on deterministic tasks: the tree walker's Resolve drives execution
// directly, visit_fn invokes load or execute inline, and the first error
// aborts the whole run.
//
// Grounded on internal/core/runner.go's synchronous Run loop, which already
// has this exact shape (resolve inputs depth-first, execute on the same
// goroutine, fail fast).
package immediate
