// Package telemetry provides the Prometheus metrics and OpenTelemetry
// tracing used by the generation pipeline and the gateway.
//
// Metrics live in a private registry so tests and embedded servers never
// collide on the global one. Tracing exports over OTLP/gRPC when an
// endpoint is configured and is a no-op otherwise.
package telemetry
