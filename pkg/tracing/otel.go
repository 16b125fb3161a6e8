package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps OpenTelemetry tracer.
type Tracer struct {
	tracer trace.Tracer
}

// Config holds tracing configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	JaegerEndpoint string
	Environment    string
}

// NewTracer creates a new OpenTelemetry tracer exporting to Jaeger.
func NewTracer(config Config) (*Tracer, error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.JaegerEndpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{
		tracer: otel.Tracer(config.ServiceName),
	}, nil
}

// NewNopTracer returns a tracer that records nothing.
func NewNopTracer() *Tracer {
	return &Tracer{tracer: trace.NewNoopTracerProvider().Tracer("nop")}
}

// StartGenerationSpan starts a span for one mutation-generation round.
func (t *Tracer) StartGenerationSpan(ctx context.Context, backend, strategy string, records int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("mutation.backend", backend),
		attribute.String("mutation.strategy", strategy),
		attribute.Int("mutation.records", records),
	}
	return t.tracer.Start(ctx, "mutation.generate", trace.WithAttributes(attrs...))
}

// StartBatchSpan starts a span for one inference batch.
func (t *Tracer) StartBatchSpan(ctx context.Context, backend string, index, size int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("inference.backend", backend),
		attribute.Int("inference.batch_index", index),
		attribute.Int("inference.batch_size", size),
	}
	return t.tracer.Start(ctx, "inference.batch", trace.WithAttributes(attrs...))
}

// RecordSpanError records an error in a span.
func RecordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(1, err.Error()) // 1 = codes.Error
}

// Shutdown shuts down the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	tp, ok := otel.GetTracerProvider().(interface{ Shutdown(context.Context) error })
	if !ok {
		return nil
	}
	return tp.Shutdown(ctx)
}
