package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/swarmguard/carver/libs/go/core/natsctx"
	"github.com/swarmguard/carver/services/carver/store"
)

// Header keys set on every published report.
const (
	HeaderScanID   = "Carver-Scan-Id"
	HeaderRegistry = "Carver-Registry"
)

// NATS publishes the whole scan record as JSON on Subject, with the caller's trace
// context in the message headers.
type NATS struct {
	Pub      natsctx.Publisher
	Subject  string
	Failures metric.Int64Counter // optional
}

func (n NATS) Report(ctx context.Context, rec store.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("nats sink: marshal: %w", err)
	}
	hdr := map[string]string{HeaderScanID: rec.ScanID, HeaderRegistry: rec.Registry}
	if err := natsctx.Publish(ctx, n.Pub, n.Subject, data, hdr); err != nil {
		if n.Failures != nil {
			n.Failures.Add(ctx, 1, metric.WithAttributes(attribute.String("subject", n.Subject)))
		}
		return fmt.Errorf("nats sink: publish %s: %w", n.Subject, err)
	}
	return nil
}
