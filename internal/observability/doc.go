// Package observability groups the logging, metrics and tracing helpers
// used by the bot.
//
// Subpackages:
//   - logging: slog logger construction and context propagation
//   - metrics: Prometheus collectors for polling, dispatch and IRC traffic
//   - tracing: OpenTelemetry tracer access
package observability
