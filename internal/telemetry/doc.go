// Package telemetry wires the resolver and its backends to
// go.opentelemetry.io/otel without forcing a collector dependency on the
// core: every accessor here defaults to the global no-op tracer/meter
// providers, exactly as SPEC_FULL.md's observability section specifies,
// until a caller installs a real SDK provider via otel.SetTracerProvider /
// otel.SetMeterProvider (e.g. go.opentelemetry.io/otel/sdk,
// go.opentelemetry.io/otel/sdk/metric) before constructing a Resolver.
package telemetry
