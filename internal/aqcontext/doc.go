// Package aqcontext carries the ambient state from spec.md §3/§4.4: the
// current hierarchical configuration and the current backend handle, scoped
// to one Resolver.Run call.
//
// spec.md describes Context as process-wide mutable state that is installed
// on entry to run and restored on exit. This implementation instead threads
// it as values on a stdlib context.Context (spec.md §9's own design note
// prefers this: "Replace process-wide mutable globals with an explicit
// context value threaded through the resolver"). Because context.Context
// values are immutable and scoped to the call tree that holds the derived
// context, invariant 5 ("no ambient leakage") holds by construction: a
// caller's own context.Context is never mutated by a nested Resolver.Run, so
// there is nothing to restore. BackendSpec is the wire form of a backend;
// this package has no function that rebuilds a Context from it on a worker,
// and a NATS worker (internal/backend/distributed's ServeNATSWorker) runs
// tasks on a context with nothing installed, so Current returns its
// defaults there.
//
// Configuration itself is backed by github.com/spf13/viper (deep dotted-path
// lookup, layered merge, environment binding), with TOML sources decoded by
// github.com/BurntSushi/toml and merged into it (MergeTOML, LoadTOMLFile).
// Grounded on original_source/src/aqueduct/config/*.py for the section
// resolution and deep-key semantics this package reproduces.
package aqcontext
