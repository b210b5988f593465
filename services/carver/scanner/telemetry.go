package scanner

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "carver"

// instruments bound from the global providers at coordinator construction.
// With no SDK installed they are no-ops.
type instruments struct {
	tracer      trace.Tracer
	matches     metric.Int64Counter
	bytes       metric.Int64Counter
	runs        metric.Int64Counter
	errors      metric.Int64Counter
	runDuration metric.Float64Histogram
	workerDur   metric.Float64Histogram
	active      metric.Int64UpDownCounter
}

func newInstruments() instruments {
	meter := otel.Meter(instrumentationName)
	matches, _ := meter.Int64Counter("carver_signature_match_total")
	bytes, _ := meter.Int64Counter("carver_scan_bytes_total")
	runs, _ := meter.Int64Counter("carver_scan_runs_total")
	errs, _ := meter.Int64Counter("carver_scan_errors_total")
	runDur, _ := meter.Float64Histogram("carver_scan_duration_seconds")
	workerDur, _ := meter.Float64Histogram("carver_worker_duration_seconds")
	active, _ := meter.Int64UpDownCounter("carver_workers_active")
	return instruments{
		tracer:      otel.Tracer(instrumentationName),
		matches:     matches,
		bytes:       bytes,
		runs:        runs,
		errors:      errs,
		runDuration: runDur,
		workerDur:   workerDur,
		active:      active,
	}
}
