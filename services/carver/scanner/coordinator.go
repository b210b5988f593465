package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Coordinator owns a scan: it plans the partitions, runs one worker per range over
// the shared buffer and merges their output.
type Coordinator struct {
	reg             *Registry
	engine          Engine
	requireNonEmpty bool
	stats           *StatsCollector
	logger          *slog.Logger
	inst            instruments
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithEngine selects the matching engine. The default is the naive engine.
func WithEngine(e Engine) Option { return func(c *Coordinator) { c.engine = e } }

// WithRequireNonEmpty makes Run reject a zero-length buffer with ErrEmptyBuffer.
func WithRequireNonEmpty(v bool) Option { return func(c *Coordinator) { c.requireNonEmpty = v } }

// WithStats records per-worker statistics into sc after every run.
func WithStats(sc *StatsCollector) Option { return func(c *Coordinator) { c.stats = sc } }

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option { return func(c *Coordinator) { c.logger = l } }

// NewCoordinator builds a coordinator over reg.
func NewCoordinator(reg *Registry, opts ...Option) *Coordinator {
	c := &Coordinator{reg: reg, inst: newInstruments()}
	for _, o := range opts {
		o(c)
	}
	if c.engine == nil {
		c.engine = naiveEngine{reg: reg}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Registry returns the coordinator's signature registry.
func (c *Coordinator) Registry() *Registry { return c.reg }

// Engine returns the active matching engine.
func (c *Coordinator) Engine() Engine { return c.engine }

type workerResult struct {
	matches []Match
	stat    WorkerStat
	err     error
}

// Run scans buf[:fileSize] with workerCount workers and returns the matches ordered by
// worker id, then by ascending offset.
//
// buf is only read. Run returns after every worker has finished, including when ctx is
// cancelled (ctx.Err() is returned) or a worker panics (the panic is returned as an
// error). A zero-length buffer is a successful run with no matches unless the
// coordinator was built WithRequireNonEmpty.
func (c *Coordinator) Run(ctx context.Context, buf []byte, fileSize, workerCount int) ([]Match, error) {
	if fileSize < 0 || len(buf) < fileSize {
		c.inst.errors.Add(ctx, 1)
		return nil, fmt.Errorf("%w: claimed %d bytes, have %d", ErrBufferSizeMismatch, fileSize, len(buf))
	}
	if fileSize == 0 && c.requireNonEmpty {
		c.inst.errors.Add(ctx, 1)
		return nil, ErrEmptyBuffer
	}
	plan, err := Plan(fileSize, workerCount, c.reg.LongestSignatureLength())
	if err != nil {
		c.inst.errors.Add(ctx, 1)
		return nil, err
	}
	shared := buf[:fileSize:fileSize]

	start := time.Now()
	ctx, span := c.inst.tracer.Start(ctx, "carver.scan", trace.WithAttributes(
		attribute.Int("carver.file_size", fileSize),
		attribute.Int("carver.workers", workerCount),
		attribute.String("carver.engine", string(c.engine.Kind())),
		attribute.String("carver.registry", c.reg.Fingerprint()),
	))
	defer span.End()

	results := make([]workerResult, len(plan))
	var wg sync.WaitGroup
	for _, r := range plan {
		wg.Add(1)
		go func(r WorkerRange) {
			defer wg.Done()
			results[r.ID] = c.runWorker(ctx, shared, r)
		}(r)
	}
	wg.Wait()

	c.inst.runs.Add(ctx, 1)
	c.inst.runDuration.Record(ctx, time.Since(start).Seconds())

	var errs []error
	total := 0
	for _, res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
		}
		total += len(res.matches)
	}
	if err := errors.Join(errs...); err != nil {
		c.fail(ctx, span, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		c.fail(ctx, span, err)
		return nil, err
	}

	merged := make([]Match, 0, total)
	for _, res := range results {
		merged = append(merged, res.matches...)
		if c.stats != nil {
			c.stats.Record(res.stat, res.matches)
		}
	}
	span.SetAttributes(attribute.Int("carver.matches", len(merged)))
	c.logger.Debug("scan finished", "workers", workerCount, "matches", len(merged), "duration", time.Since(start))
	return merged, nil
}

func (c *Coordinator) fail(ctx context.Context, span trace.Span, err error) {
	c.inst.errors.Add(ctx, 1)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Warn("scan aborted", "error", err)
}

// runWorker drains one engine sequence. A panic is turned into an error so the join
// in Run always completes.
func (c *Coordinator) runWorker(ctx context.Context, buf []byte, r WorkerRange) (res workerResult) {
	ctx, span := c.inst.tracer.Start(ctx, "carver.worker", trace.WithAttributes(
		attribute.Int("carver.worker_id", r.ID),
		attribute.Int("carver.primary_start", r.PrimaryStart),
		attribute.Int("carver.primary_end", r.PrimaryEnd),
		attribute.Int("carver.scan_end", r.ScanEnd),
	))
	defer span.End()
	c.inst.active.Add(ctx, 1)
	defer c.inst.active.Add(ctx, -1)

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = workerResult{err: fmt.Errorf("worker %d panicked: %v", r.ID, p)}
			span.SetStatus(codes.Error, "panic")
		}
	}()

	var matches []Match
	for m := range c.engine.Scan(ctx, buf, r) {
		matches = append(matches, m)
	}
	dur := time.Since(start)
	scanned := max(r.ScanEnd-r.PrimaryStart, 0)

	c.inst.workerDur.Record(ctx, dur.Seconds())
	c.inst.bytes.Add(ctx, int64(r.PrimaryLen()))
	for _, m := range matches {
		c.inst.matches.Add(ctx, 1, metric.WithAttributes(attribute.String("signature", m.Signature)))
	}
	span.SetAttributes(attribute.Int("carver.matches", len(matches)))

	return workerResult{
		matches: matches,
		stat: WorkerStat{
			WorkerID:     r.ID,
			PrimaryBytes: r.PrimaryLen(),
			ScannedBytes: scanned,
			Matches:      len(matches),
			Duration:     dur,
		},
	}
}
