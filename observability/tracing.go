package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hookline/hookline"

// Tracer provides OpenTelemetry tracing for delivery sequences.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer backed by the global tracer provider.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartDeliverySpan starts a span covering one delivery sequence.
func (t *Tracer) StartDeliverySpan(ctx context.Context, deliveryID, webhookID, eventType string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "hookline.delivery",
		trace.WithAttributes(
			attribute.String("hookline.delivery_id", deliveryID),
			attribute.String("hookline.webhook_id", webhookID),
			attribute.String("hookline.event_type", eventType),
		),
	)
}

// EndDeliverySpan ends a delivery span with result attributes.
func (t *Tracer) EndDeliverySpan(span trace.Span, statusCode, attempts int, err string) {
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int("hookline.attempts", attempts),
	)
	if err != "" {
		span.SetAttributes(attribute.String("hookline.error", err))
	}
	span.End()
}
