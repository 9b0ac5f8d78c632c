package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	nats "github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
	"github.com/aqueduct-go/aqueduct/internal/resilience"
)

// chainInput is the sentinel substituted for a chain-interior node's
// reference to its predecessor in the same chain, since the predecessor's
// result does not exist yet at the time the chain's wire payload is built;
// the worker fills it in as it executes the chain node by node. It is a
// string type, not a struct, because a JSON round trip (the NATS transport)
// decodes it back into a plain string rather than this named type, so
// isChainInput checks both forms.
type chainInput string

const chainInputMarker chainInput = "__aqueduct_chain_input__"

// wireNode is the serializable description of one node's computation:
// enough to reconstruct its Task (ClassName + Args, via a Registry) and run
// it against a requirements template where every already-known value has
// been substituted in by the driver and only this chain's own internal
// hand-off remains as chainInputMarker.
type wireNode struct {
	Key            aqueduct.UniqueKey `json:"key"`
	ClassName      aqueduct.ClassName `json:"class_name"`
	CtorArgs       aqueduct.Args      `json:"ctor_args"`
	ReqTemplate    any                `json:"req_template"`
	HasReqTemplate bool               `json:"has_req_template"`
	Cached         bool               `json:"cached"`
}

// Job is one unit of dispatch: a fused chain's nodes in execution order.
type Job struct {
	Chain *Chain
	Nodes []wireNode
}

// Transport executes a Job, wherever its workers live, and returns the
// chain's final value (the last node's result).
type Transport interface {
	Dispatch(ctx context.Context, job Job) (any, error)
	Close() error
}

// Execute runs one reconstructed task against resolved requirements and
// applies the save policy; Load serves a cached node through the codec
// registry or the task's own Loader. Both are supplied by the caller
// (internal/resolver backs both in backend.go) so this package never needs
// to know about codecs or the artifact save/load policy directly.
type Execute func(ctx context.Context, t aqueduct.Task, requirements any) (any, error)
type Load func(ctx context.Context, t aqueduct.Task) (any, error)

// runChain is the computation shared by every Transport implementation:
// reconstruct each node's task from the registry, substitute chainInput
// with the previous node's result, then execute or load depending on
// whether graph construction found it cached. It is a package-level
// function (not a Transport method) so InProcessTransport and the NATS
// worker side share one execution path.
func runChain(ctx context.Context, registry *Registry, execute Execute, load Load, nodes []wireNode) (any, error) {
	var prev any
	for _, n := range nodes {
		task, err := registry.Reconstruct(n.ClassName, n.CtorArgs)
		if err != nil {
			return nil, aqueduct.WrapError(aqueduct.KindTaskExecution, n.Key, err)
		}

		if n.Cached {
			value, err := load(ctx, task)
			if err != nil {
				return nil, err
			}
			prev = value
			continue
		}

		var requirements any
		if n.HasReqTemplate {
			substituted, err := aqueduct.MapOfType(n.ReqTemplate, isChainInput, func(any) any { return prev })
			if err != nil {
				return nil, err
			}
			requirements = substituted
		}

		value, err := execute(ctx, task, requirements)
		if err != nil {
			return nil, err
		}
		prev = value
	}
	return prev, nil
}

func isChainInput(v any) bool {
	if _, ok := v.(chainInput); ok {
		return true
	}
	s, ok := v.(string)
	return ok && s == string(chainInputMarker)
}

// InProcessTransport runs every job on the calling goroutine, standing in
// for a single-process deployment or for tests that don't want to stand up
// a NATS broker.
type InProcessTransport struct {
	Registry *Registry
	Execute  Execute
	Load     Load
}

func (tr *InProcessTransport) Dispatch(ctx context.Context, job Job) (any, error) {
	return runChain(ctx, tr.Registry, tr.Execute, tr.Load, job.Nodes)
}

func (tr *InProcessTransport) Close() error { return nil }

// NATSTransport dispatches each job as a request over NATS, injecting W3C
// trace context into the message header so the worker's span is a child of
// the driver's, exactly as
// libs/go/core/natsctx/natsctx.go does for swarmguard's own cluster RPCs.
type NATSTransport struct {
	Conn    *nats.Conn
	Subject string
	Timeout time.Duration

	// DispatchAttempts bounds retries of a single chain dispatch against
	// transient NATS errors (no responder, slow consumer, connection drop
	// mid-request). Defaults to 1 (no retry) when zero; task execution
	// errors returned inside a worker's reply are never retried, only the
	// request/reply round trip itself.
	DispatchAttempts int
	RetryBaseDelay   time.Duration
}

var propagator = propagation.TraceContext{}

func (tr *NATSTransport) Dispatch(ctx context.Context, job Job) (any, error) {
	payload, err := json.Marshal(job.Nodes)
	if err != nil {
		return nil, fmt.Errorf("distributed: encode job: %w", err)
	}

	hdr := nats.Header{}
	propagator.Inject(ctx, propagation.HeaderCarrier(hdr))

	timeout := tr.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	attempts := tr.DispatchAttempts
	if attempts < 1 {
		attempts = 1
	}
	baseDelay := tr.RetryBaseDelay
	if baseDelay == 0 {
		baseDelay = 200 * time.Millisecond
	}

	msg := &nats.Msg{Subject: tr.Subject, Data: payload, Header: hdr}
	reply, err := resilience.Retry(ctx, attempts, baseDelay, func() (*nats.Msg, error) {
		return tr.Conn.RequestMsgWithContext(ctx, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("distributed: nats request: %w", err)
	}

	var resp nodeResultEnvelope
	if err := json.Unmarshal(reply.Data, &resp); err != nil {
		return nil, fmt.Errorf("distributed: decode job result: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("distributed: worker error: %s", resp.Error)
	}
	return resp.Value, nil
}

func (tr *NATSTransport) Close() error {
	tr.Conn.Close()
	return nil
}

// ConnectNATS dials url with bounded retries, since a worker fleet and its
// broker often start up in an unpredictable order.
func ConnectNATS(ctx context.Context, url string, attempts int, baseDelay time.Duration, opts ...nats.Option) (*nats.Conn, error) {
	return resilience.Retry(ctx, attempts, baseDelay, func() (*nats.Conn, error) {
		return nats.Connect(url, opts...)
	})
}

type nodeResultEnvelope struct {
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// ServeNATSWorker subscribes Subject on conn and answers each request by
// running the chain it carries, extracting the caller's trace context as
// the parent span (natsctx.Subscribe's pattern).
func ServeNATSWorker(conn *nats.Conn, subject string, registry *Registry, execute Execute, load Load) (*nats.Subscription, error) {
	tracer := otel.Tracer("aqueduct-distributed")

	return conn.Subscribe(subject, func(m *nats.Msg) {
		carrier := propagation.HeaderCarrier(m.Header)
		ctx := propagator.Extract(context.Background(), carrier)
		ctx, span := tracer.Start(ctx, "distributed.run_chain", oteltrace.WithSpanKind(oteltrace.SpanKindConsumer))
		defer span.End()

		var nodes []wireNode
		if err := json.Unmarshal(m.Data, &nodes); err != nil {
			respondError(m, err)
			return
		}

		value, err := runChain(ctx, registry, execute, load, nodes)
		if err != nil {
			respondError(m, err)
			return
		}

		body, err := json.Marshal(nodeResultEnvelope{Value: value})
		if err != nil {
			respondError(m, err)
			return
		}
		_ = m.Respond(body)
	})
}

func respondError(m *nats.Msg, err error) {
	body, _ := json.Marshal(nodeResultEnvelope{Error: err.Error()})
	_ = m.Respond(body)
}
