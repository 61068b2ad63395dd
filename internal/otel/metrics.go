package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "pane-relay"

// Metrics holds all OTEL metric instruments for pane-relay.
// All counters are cumulative (monotonic) and safe for concurrent use.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Delivery counters (partitioned by channel + outcome)
	Deliveries metric.Int64Counter

	// Queue counters
	QueueEnqueued metric.Int64Counter
	QueueRetried  metric.Int64Counter
	QueueDequeued metric.Int64Counter

	// Identity map counters
	MappingUpserts metric.Int64Counter

	// Multiplexer subprocess calls (partitioned by verb + outcome)
	MuxCommands        metric.Int64Counter
	MuxCommandDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Deliveries, err = meter.Int64Counter("relay.deliveries",
		metric.WithDescription("Delivery attempts partitioned by channel (agent, terminal) and outcome"))
	if err != nil {
		return nil, err
	}

	// --- Queue counters ---

	m.QueueEnqueued, err = meter.Int64Counter("relay.queue.enqueued",
		metric.WithDescription("Messages written to the outbound queue"),
		metric.WithUnit("{message}"))
	if err != nil {
		return nil, err
	}

	m.QueueRetried, err = meter.Int64Counter("relay.queue.retried",
		metric.WithDescription("Messages re-queued by a retry sweep"),
		metric.WithUnit("{message}"))
	if err != nil {
		return nil, err
	}

	m.QueueDequeued, err = meter.Int64Counter("relay.queue.dequeued",
		metric.WithDescription("Messages popped from the in-memory queue"),
		metric.WithUnit("{message}"))
	if err != nil {
		return nil, err
	}

	m.MappingUpserts, err = meter.Int64Counter("relay.mapping.upserts",
		metric.WithDescription("Session identity map entries written after a terminal fallback"))
	if err != nil {
		return nil, err
	}

	// --- Multiplexer counters ---

	m.MuxCommands, err = meter.Int64Counter("mux.commands",
		metric.WithDescription("Multiplexer subprocess invocations partitioned by verb and outcome"))
	if err != nil {
		return nil, err
	}

	m.MuxCommandDuration, err = meter.Float64Histogram("mux.command.duration",
		metric.WithDescription("Multiplexer subprocess wall time"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordDelivery records one delivery attempt.
func (m *Metrics) RecordDelivery(ctx context.Context, channel, outcome string) {
	if m == nil {
		return
	}
	m.Deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("delivery.channel", channel),
		attribute.String("delivery.outcome", outcome),
	))
}

// RecordEnqueue records a message written to the queue.
func (m *Metrics) RecordEnqueue(ctx context.Context) {
	if m == nil {
		return
	}
	m.QueueEnqueued.Add(ctx, 1)
}

// RecordRetry records n messages re-queued by a retry sweep.
func (m *Metrics) RecordRetry(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.QueueRetried.Add(ctx, int64(n))
}

// RecordDequeue records a message popped from the queue.
func (m *Metrics) RecordDequeue(ctx context.Context) {
	if m == nil {
		return
	}
	m.QueueDequeued.Add(ctx, 1)
}

// RecordMappingUpsert records a new or replaced identity mapping.
func (m *Metrics) RecordMappingUpsert(ctx context.Context) {
	if m == nil {
		return
	}
	m.MappingUpserts.Add(ctx, 1)
}

// RecordMuxCommand records one multiplexer subprocess call.
func (m *Metrics) RecordMuxCommand(ctx context.Context, verb, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("mux.verb", verb),
		attribute.String("mux.outcome", outcome),
	)
	m.MuxCommands.Add(ctx, 1, attrs)
	m.MuxCommandDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}
