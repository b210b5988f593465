package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/swarmguard/carver/services/carver/scanner"
)

// MaxWorkers caps the worker count accepted on the command line.
const MaxWorkers = 25

const (
	formatText  = "text"
	formatJSONL = "jsonl"
)

const defaultSubject = "carver.scans"

// config is everything run needs, resolved from env defaults and flags.
type config struct {
	File            string
	Workers         int
	Engine          scanner.EngineKind
	Format          string
	Signatures      string
	DB              string
	NATSURL         string
	NATSSubject     string
	RequireNonEmpty bool
	Timeout         time.Duration
	Stats           bool
}

// usageError is a bad invocation. It exits 2.
type usageError struct{ err error }

func usagef(format string, args ...any) *usageError {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }
func (e *usageError) ExitCode() int { return 2 }

var errHelp = errors.New("help requested")

func envOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func newFlagSet(cfg *config, getenv func(string) string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("carver", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var engine string
	fs.StringVar(&engine, "engine", envOr(getenv, "CARVER_ENGINE", string(scanner.EngineNaive)), "matching engine: naive|aho")
	fs.StringVar(&cfg.Format, "format", formatText, "report format: text|jsonl")
	fs.StringVar(&cfg.Signatures, "signatures", "", "YAML signature table (default: built-in table)")
	fs.StringVar(&cfg.DB, "db", getenv("CARVER_DB"), "bbolt file to record the scan in")
	fs.StringVar(&cfg.NATSURL, "nats-url", getenv("CARVER_NATS_URL"), "publish the scan report to this NATS server")
	fs.StringVar(&cfg.NATSSubject, "nats-subject", envOr(getenv, "CARVER_NATS_SUBJECT", defaultSubject), "NATS subject for scan reports")
	fs.BoolVar(&cfg.RequireNonEmpty, "require-nonempty", false, "fail on an empty input file")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "abort the scan after this long (0 = no limit)")
	fs.BoolVar(&cfg.Stats, "stats", false, "log per-worker timing statistics")
	fs.BoolP("help", "h", false, "show help")
	return fs
}

// parseArgs resolves args (without the program name) into a config.
func parseArgs(args []string, getenv func(string) string) (config, error) {
	var cfg config
	fs := newFlagSet(&cfg, getenv)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return cfg, errHelp
		}
		return cfg, usagef("%v", err)
	}
	if help, _ := fs.GetBool("help"); help {
		return cfg, errHelp
	}
	engine, _ := fs.GetString("engine")
	kind, err := scanner.ParseEngineKind(engine)
	if err != nil {
		return cfg, &usageError{err: err}
	}
	cfg.Engine = kind

	switch cfg.Format {
	case formatText, formatJSONL:
	default:
		return cfg, usagef("unknown format %q", cfg.Format)
	}
	if cfg.Timeout < 0 {
		return cfg, usagef("negative timeout %s", cfg.Timeout)
	}

	pos := fs.Args()
	if len(pos) != 2 {
		return cfg, usagef("expected <filename> <workerCount>, got %d arguments", len(pos))
	}
	cfg.File = pos[0]
	n, err := strconv.Atoi(pos[1])
	if err != nil {
		return cfg, usagef("worker count %q is not a number", pos[1])
	}
	if n < 1 || n > MaxWorkers {
		return cfg, usagef("worker count %d out of range 1..%d", n, MaxWorkers)
	}
	cfg.Workers = n
	return cfg, nil
}

func printUsage(w io.Writer) {
	fs := newFlagSet(&config{}, func(string) string { return "" })
	fmt.Fprintf(w, "Usage: carver [flags] <filename> <workerCount>\n\nScan a file for embedded file signatures using up to %d workers.\n\nFlags:\n", MaxWorkers)
	fmt.Fprint(w, fs.FlagUsages())
}
