// Command carver scans a file for embedded file signatures with a pool of workers.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"

	"github.com/swarmguard/carver/libs/go/core/logging"
	"github.com/swarmguard/carver/libs/go/core/otelinit"
	"github.com/swarmguard/carver/libs/go/core/resilience"
	"github.com/swarmguard/carver/services/carver/scanner"
	"github.com/swarmguard/carver/services/carver/sink"
	"github.com/swarmguard/carver/services/carver/store"
)

const service = "carver"

func main() {
	logger := logging.Init(service)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Getenv, logger)
	cancel()
	if err == nil {
		return
	}
	if coder, ok := err.(interface{ ExitCode() int }); ok {
		fmt.Fprintf(os.Stderr, "Improper usage: %v\n", err)
		printUsage(os.Stderr)
		os.Exit(coder.ExitCode())
	}
	logger.Error("scan failed", "error", err)
	os.Exit(1)
}

func run(ctx context.Context, args []string, stdout io.Writer, getenv func(string) string, logger *slog.Logger) error {
	cfg, err := parseArgs(args, getenv)
	if errors.Is(err, errHelp) {
		printUsage(stdout)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("welcome to carver", "file", cfg.File, "workers", cfg.Workers, "engine", cfg.Engine)

	metrics := otelinit.NewMetrics()
	if otelinit.Enabled() {
		shutdownTrace := otelinit.InitTracer(ctx, service)
		var shutdownMetrics func(context.Context) error
		shutdownMetrics, metrics = otelinit.InitMetrics(ctx, service)
		defer otelinit.Flush(context.Background(), shutdownTrace)
		defer otelinit.Flush(context.Background(), shutdownMetrics)
	}
	ctx, end := otelinit.WithSpan(ctx, "carver.run")
	defer end()

	reg, err := loadRegistry(cfg.Signatures)
	if err != nil {
		return err
	}
	engine, err := scanner.NewEngine(cfg.Engine, reg)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.File)
	if err != nil {
		return fmt.Errorf("error processing selected file: %w", err)
	}
	digest := sha256.Sum256(data)
	logger.Info("file loaded", "file", cfg.File, "size", len(data), "sha256", hex.EncodeToString(digest[:]))

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("scan id: %w", err)
	}

	report, cleanup, err := buildSinks(ctx, cfg, stdout, metrics, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	scanCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	collector := scanner.NewStatsCollector()
	coord := scanner.NewCoordinator(reg,
		scanner.WithEngine(engine),
		scanner.WithRequireNonEmpty(cfg.RequireNonEmpty),
		scanner.WithStats(collector),
		scanner.WithLogger(logger),
	)
	started := time.Now().UTC()
	matches, err := coord.Run(scanCtx, data, len(data), cfg.Workers)
	if err != nil {
		return fmt.Errorf("scan %s: %w", cfg.File, err)
	}
	rec := store.Record{
		ScanID:    id.String(),
		File:      cfg.File,
		FileSize:  len(data),
		SHA256:    hex.EncodeToString(digest[:]),
		Workers:   cfg.Workers,
		Engine:    string(engine.Kind()),
		Registry:  reg.Fingerprint(),
		StartedAt: started,
		Duration:  time.Since(started),
		Matches:   matches,
	}
	if err := report.Report(ctx, rec); err != nil {
		return fmt.Errorf("report scan %s: %w", rec.ScanID, err)
	}
	logger.Info("scan complete", "scan_id", rec.ScanID, "matches", len(matches), "duration", rec.Duration)

	if cfg.Stats {
		sum, err := collector.Summary(5)
		if err != nil {
			logger.Warn("stats summary failed", "error", err)
		} else {
			logger.Info("worker stats",
				"workers", sum.Workers,
				"scanned_bytes", sum.TotalScanned,
				"mean", sum.MeanDuration,
				"median", sum.MedianDuration,
				"max", sum.MaxDuration,
				"stddev", sum.StdDevDuration,
				"throughput_bps", sum.ThroughputBPS,
				"top", sum.TopSignatures,
			)
		}
	}
	return nil
}

func loadRegistry(path string) (*scanner.Registry, error) {
	if path == "" {
		return scanner.DefaultRegistry()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open signatures: %w", err)
	}
	defer f.Close()
	reg, err := scanner.LoadRegistry(f)
	if err != nil {
		return nil, fmt.Errorf("load signatures %s: %w", path, err)
	}
	return reg, nil
}

// buildSinks assembles the report chain. The returned cleanup closes any opened
// database or connection.
func buildSinks(ctx context.Context, cfg config, stdout io.Writer, m otelinit.Metrics, logger *slog.Logger) (sink.Sink, func(), error) {
	var sinks sink.Multi
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Format {
	case formatJSONL:
		sinks = append(sinks, sink.JSONL{W: stdout})
	default:
		sinks = append(sinks, sink.Text{W: stdout})
	}

	if cfg.DB != "" {
		st, err := store.Open(cfg.DB)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() {
			if err := st.Close(); err != nil {
				logger.Warn("close scan history", "error", err)
			}
		})
		sinks = append(sinks, sink.Bolt{Store: st})
	}

	if cfg.NATSURL != "" {
		nc, err := resilience.Retry(ctx, 3, 200*time.Millisecond, func() (*nats.Conn, error) {
			return nats.Connect(cfg.NATSURL, nats.Name(service))
		})
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("connect nats %s: %w", cfg.NATSURL, err)
		}
		closers = append(closers, func() {
			if err := nc.Drain(); err != nil {
				logger.Warn("drain nats", "error", err)
			}
		})
		sinks = append(sinks, sink.NATS{Pub: nc, Subject: cfg.NATSSubject, Failures: m.PublishFailures})
		logger.Debug("publishing scan reports", "url", cfg.NATSURL, "subject", cfg.NATSSubject)
	}
	return sinks, cleanup, nil
}
