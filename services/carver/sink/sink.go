// Package sink renders or forwards the result of a scan.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/swarmguard/carver/services/carver/store"
)

// Sink consumes one finished scan. Matches in rec are already in report order.
type Sink interface {
	Report(ctx context.Context, rec store.Record) error
}

// Text prints one line per match.
type Text struct{ W io.Writer }

func (t Text) Report(_ context.Context, rec store.Record) error {
	for _, m := range rec.Matches {
		if _, err := fmt.Fprintf(t.W, "Found %s by worker %d at offset %d\n", m.Signature, m.WorkerID, m.Offset); err != nil {
			return err
		}
	}
	return nil
}

// jsonLine is the per-match shape written by JSONL.
type jsonLine struct {
	ScanID    string `json:"scan_id"`
	Signature string `json:"signature"`
	WorkerID  int    `json:"worker_id"`
	Offset    int    `json:"offset"`
}

// JSONL writes one JSON object per match.
type JSONL struct{ W io.Writer }

func (j JSONL) Report(_ context.Context, rec store.Record) error {
	enc := json.NewEncoder(j.W)
	for _, m := range rec.Matches {
		if err := enc.Encode(jsonLine{ScanID: rec.ScanID, Signature: m.Signature, WorkerID: m.WorkerID, Offset: m.Offset}); err != nil {
			return err
		}
	}
	return nil
}

// Bolt persists the scan in the local history database.
type Bolt struct{ Store *store.Store }

func (b Bolt) Report(_ context.Context, rec store.Record) error {
	if err := b.Store.Save(rec); err != nil {
		return fmt.Errorf("bolt sink: %w", err)
	}
	return nil
}

// Multi fans a report out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Report(ctx context.Context, rec store.Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Report(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
