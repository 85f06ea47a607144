package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })
	return exp
}

func TestStartSpan(t *testing.T) {
	exp := setupTracer(t)

	ctx, span := StartSpan(context.Background(), "generate.question")
	if CorrelationID(ctx) == "" {
		t.Error("no correlation ID inside active span")
	}
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "generate.question" {
		t.Fatalf("unexpected spans: %+v", spans)
	}
}

func TestCorrelationID_NoSpan(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("correlation ID = %q, want empty", got)
	}
}

func TestLogger_WithAndWithoutSpan(t *testing.T) {
	setupTracer(t)

	if Logger(context.Background()) == nil {
		t.Fatal("Logger returned nil without span")
	}

	ctx, span := StartSpan(context.Background(), "test")
	defer span.End()
	if Logger(ctx) == nil {
		t.Fatal("Logger returned nil with span")
	}
}
