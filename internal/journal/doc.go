// Package journal is a side-channel audit trail for Resolver.Run
// invocations. Given a Store, Resolver.Run writes one Run record per call
// (started, then succeeded or failed) and a Failure record on abnormal exit;
// it does not write Checkpoint records and leaves Run.GraphHash empty.
// Store.SaveCheckpoint persists a per-task Checkpoint for callers that
// record one. The journal never influences cache-gating (spec.md §4.3 still
// governs what re-executes); it exists so an operator can answer "what
// happened during run X" after the fact.
//
// Records are written with a temp-file-plus-rename-plus-fsync discipline so
// a crash mid-write never leaves a torn record behind, and are stored per
// run ID, with checkpoints keyed by aqueduct.UniqueKey.
package journal
