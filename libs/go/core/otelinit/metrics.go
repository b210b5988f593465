package otelinit

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Metrics holds process-wide instruments owned by the binary rather than a library.
type Metrics struct {
	PublishFailures metric.Int64Counter
}

// InitMetrics sets up a global OTLP metrics exporter (push). Returns shutdown function.
// With no endpoint configured the instruments are bound to the no-op meter provider.
func InitMetrics(ctx context.Context, service string) (shutdown func(context.Context) error, m Metrics) {
	noop := func(context.Context) error { return nil }
	ep := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
	if ep == "" {
		ep = endpoint()
	}
	if ep == "" {
		return noop, NewMetrics()
	}
	ctxInit, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exp, err := otlpmetricgrpc.New(ctxInit,
		otlpmetricgrpc.WithEndpoint(ep),
		otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		slog.Warn("metrics exporter init failed", "error", err)
		return noop, NewMetrics()
	}
	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(10*time.Second))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(serviceResource(service)))
	otel.SetMeterProvider(mp)
	slog.Debug("metrics initialized", "endpoint", ep)
	return mp.Shutdown, NewMetrics()
}

// NewMetrics creates the shared instruments from the current global meter provider.
func NewMetrics() Metrics {
	meter := otel.Meter(tracerName)
	publish, _ := meter.Int64Counter("carver_publish_failures_total")
	return Metrics{PublishFailures: publish}
}
