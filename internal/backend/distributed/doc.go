// Package distributed implements spec.md §4.6.3: the resolved work tree is
// materialized as a graph of {key -> computation} and handed to workers for
// asynchronous, possibly parallel execution. Computation here is
// (ClassName, Args, requirements template with already-computed dependency
// values substituted in) rather than a literal closure,
// since a Go interface value cannot cross a process boundary; a worker
// reconstructs the concrete Task from a per-ClassName Registry before
// running it. Container-rebuild nodes are inlined by construction: like
// internal/graphmodel, this package only ever materializes a graph node for
// a Task, never for the plain list/tuple/mapping structure the walker
// treats as shape; fusion (the other optimization spec.md §4.6.3 names)
// collapses singleton-degree chains so a worker runs several dependent
// nodes locally instead of round-tripping through the transport once per
// node.
//
// Transport is pluggable: NATSTransport is grounded on
// anhnv24810310060-source-SWARM-INTELLIGENCE-NETWORK's
// libs/go/core/natsctx/natsctx.go (publish/subscribe over NATS subjects with
// W3C trace context injected into NATS headers via
// go.opentelemetry.io/otel/propagation); InProcessTransport is a same-
// process fallback used by tests and single-process deployments, since no
// example repo in the retrieved pack ships an in-memory queue this shape
// can be grounded on a pack library for.
package distributed
