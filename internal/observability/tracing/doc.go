// Package tracing provides OpenTelemetry tracing integration.
//
// Poll passes and one-shot feed operations open spans through GetTracer.
// No exporter is configured by the bot itself; embedding programs and tests
// install a provider with otel.SetTracerProvider.
package tracing
