package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the global tracer instance for the bot.
var tracer = otel.Tracer("ircfeed")

// GetTracer returns the global tracer for creating spans.
// Spans are no-ops until a TracerProvider is installed with otel.SetTracerProvider.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}
