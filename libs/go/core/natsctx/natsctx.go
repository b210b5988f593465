package natsctx

import (
	"context"

	nats "github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/propagation"
)

var propagator = propagation.TraceContext{}

// Publisher is the subset of *nats.Conn used for publishing.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// Publish injects traceparent plus any extra headers and publishes.
func Publish(ctx context.Context, pub Publisher, subject string, data []byte, extra map[string]string) error {
	hdr := nats.Header{}
	propagator.Inject(ctx, propagation.HeaderCarrier(hdr))
	for k, v := range extra {
		hdr.Set(k, v)
	}
	return pub.PublishMsg(&nats.Msg{Subject: subject, Data: data, Header: hdr})
}

// Extract returns a context carrying the remote span context found in a message header.
func Extract(ctx context.Context, hdr nats.Header) context.Context {
	return propagator.Extract(ctx, propagation.HeaderCarrier(hdr))
}
