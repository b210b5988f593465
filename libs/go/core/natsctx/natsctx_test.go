package natsctx

import (
	"context"
	"testing"

	nats "github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"
)

type capture struct{ msgs []*nats.Msg }

func (c *capture) PublishMsg(m *nats.Msg) error {
	c.msgs = append(c.msgs, m)
	return nil
}

func TestPublishPropagatesTrace(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	pub := &capture{}
	if err := Publish(ctx, pub, "carver.matches", []byte("{}"), map[string]string{"Carver-Scan-Id": "abc"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.msgs))
	}
	m := pub.msgs[0]
	if m.Subject != "carver.matches" || m.Header.Get("Carver-Scan-Id") != "abc" {
		t.Fatalf("unexpected message: %+v", m)
	}
	got := trace.SpanContextFromContext(Extract(context.Background(), m.Header))
	if got.TraceID() != traceID {
		t.Fatalf("trace id not propagated: %s", got.TraceID())
	}
}
