// Package logging constructs the single *logrus.Logger threaded through the
// resolver, the three backends, and the CLI, with a fixed field vocabulary
// (unique_key, class_name, backend, run_id, graph_hash) per SPEC_FULL.md's
// ambient stack section.
//
// Grounded on evalgo-org-eve's coordinator/loghook.go, which wires a shared
// logrus logger with a custom hook across a comparable multi-component
// service; the hook itself is not needed here (no external sink), so only
// the construction and field-naming convention is carried over.
package logging
