// Package resilience retries transient infrastructure failures: establishing
// a NATS connection, or a single chain dispatch over it. It never retries
// task execution itself (spec.md draws no such retry boundary around a
// task's own Run/Map/Reduce, and silently re-running arbitrary user code on
// a transient fault would violate the "a task runs at most once per resolve
// call" assumption the cache gate depends on).
//
// Grounded on
// anhnv24810310060-source-SWARM-INTELLIGENCE-NETWORK's
// libs/go/core/resilience/retry.go: the same exponential-backoff-with-
// full-jitter loop and otel counters, generalized to Go's type parameters so
// it returns whatever Dial/Dispatch returns instead of a cluster-RPC-shaped
// response.
package resilience

import (
	"context"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
)

const maxBackoff = 60 * time.Second

// Retry calls fn up to attempts times, doubling delay after each failure and
// sleeping a random duration in [0, currentDelay] (full jitter) between
// tries. It returns as soon as fn succeeds, or fn's last error once attempts
// is exhausted, or ctx.Err() if ctx is cancelled while waiting to retry.
func Retry[T any](ctx context.Context, attempts int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	if attempts <= 0 {
		return zero, nil
	}

	meter := otel.Meter("aqueduct-resilience")
	attemptCounter, _ := meter.Int64Counter("aqueduct_resilience_retry_attempts_total")
	successCounter, _ := meter.Int64Counter("aqueduct_resilience_retry_success_total")
	failCounter, _ := meter.Int64Counter("aqueduct_resilience_retry_fail_total")

	cur := delay
	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := fn()
		attemptCounter.Add(ctx, 1)
		if err == nil {
			successCounter.Add(ctx, 1)
			return v, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}

		if cur > maxBackoff {
			cur = maxBackoff
		}
		sleep := time.Duration(rand.Int63n(int64(cur) + 1))
		select {
		case <-ctx.Done():
			failCounter.Add(ctx, 1)
			return zero, ctx.Err()
		case <-time.After(sleep):
		}
		cur *= 2
	}
	failCounter.Add(ctx, 1)
	return zero, lastErr
}
