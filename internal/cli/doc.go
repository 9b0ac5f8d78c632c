// Package cli implements the driver-facing command surface (spec.md §6):
// run, ls, config, del, and artifact ls. It is deliberately thin over
// internal/resolver and the three backends — the CLI's own job is argument
// parsing, backend-spec selection, and exit-code mapping, not scheduling.
//
// Each subcommand's arguments parse into a canonical invocation struct, and
// every failure mode becomes an *InvocationError carrying the exit code the
// process should use. This package does not read AQ_LOCAL_STORE or
// AQ_SCRATCH_STORE; internal/store resolves those for code that builds
// artifact paths. Inputs here come from explicit flags.
package cli
