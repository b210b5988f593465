package scanner

import (
	"context"
	"fmt"
	"iter"
)

// EngineKind names a matching strategy.
type EngineKind string

const (
	// EngineNaive compares every signature at every owned offset.
	EngineNaive EngineKind = "naive"
	// EngineAho walks the worker's view once with an Aho-Corasick automaton.
	EngineAho EngineKind = "aho"
)

// Engine produces one worker's matches. Implementations must be safe for concurrent
// use by all workers of a run and must never write to buf.
type Engine interface {
	Kind() EngineKind
	Scan(ctx context.Context, buf []byte, r WorkerRange) iter.Seq[Match]
}

// ParseEngineKind validates an engine name.
func ParseEngineKind(s string) (EngineKind, error) {
	switch k := EngineKind(s); k {
	case EngineNaive, EngineAho:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEngine, s)
	}
}

// NewEngine builds the engine of the given kind over reg.
func NewEngine(kind EngineKind, reg *Registry) (Engine, error) {
	switch kind {
	case EngineNaive:
		return naiveEngine{reg: reg}, nil
	case EngineAho:
		return ahoEngine{auto: BuildAho(reg)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, kind)
	}
}

type naiveEngine struct{ reg *Registry }

func (naiveEngine) Kind() EngineKind { return EngineNaive }

func (e naiveEngine) Scan(ctx context.Context, buf []byte, r WorkerRange) iter.Seq[Match] {
	return Scan(ctx, buf, r, e.reg)
}

type ahoEngine struct{ auto *AhoAutomaton }

func (ahoEngine) Kind() EngineKind { return EngineAho }

func (e ahoEngine) Scan(ctx context.Context, buf []byte, r WorkerRange) iter.Seq[Match] {
	return e.auto.Scan(ctx, buf, r)
}
