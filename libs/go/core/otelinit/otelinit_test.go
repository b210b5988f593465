package otelinit

import (
	"context"
	"testing"
)

func TestInitWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")
	ctx := context.Background()
	if Enabled() {
		t.Fatalf("expected telemetry disabled without endpoint")
	}
	shutdownTrace := InitTracer(ctx, "test-service")
	shutdown, m := InitMetrics(ctx, "test-service")
	// instruments must be usable even when nothing is exported
	m.PublishFailures.Add(ctx, 1)
	_, end := WithSpan(ctx, "unit")
	end()
	Flush(ctx, shutdownTrace)
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown returned %v", err)
	}
}

func TestEnabledWithEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	if !Enabled() {
		t.Fatalf("expected telemetry enabled")
	}
}
