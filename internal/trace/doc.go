// Package trace records a deterministic log of what a run decided to do,
// keyed by aqueduct.UniqueKey: which tasks were cached, executed, failed,
// skipped because an upstream failed, or had artifacts restored. It never
// influences execution, only observes it, and produces byte-identical
// output for two runs over the same graph and cache state regardless of
// scheduling order.
//
// Events are canonicalized into a total order and marshaled with a fixed
// field order before hashing, so two runs over the same graph and cache
// state produce byte-identical traces regardless of scheduling order.
package trace
