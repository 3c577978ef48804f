package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments records engine operation metrics.
type Instruments struct {
	operations     metric.Int64Counter
	duration       metric.Float64Histogram
	deletedRecords metric.Int64Counter
}

// NewInstruments creates the engine instruments on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	operations, err := meter.Int64Counter(
		"usagelens.engine.operations",
		metric.WithDescription("Engine operations executed"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operations counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"usagelens.engine.operation.duration",
		metric.WithDescription("Engine operation latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	deletedRecords, err := meter.Int64Counter(
		"usagelens.cleanup.deleted_records",
		metric.WithDescription("Rows removed by cleanup operations"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating deleted records counter: %w", err)
	}

	return &Instruments{
		operations:     operations,
		duration:       duration,
		deletedRecords: deletedRecords,
	}, nil
}

// Default returns instruments on the global meter provider. Creation errors
// fall back to a nil *Instruments, whose methods do nothing.
func Default() *Instruments {
	inst, err := NewInstruments(otel.Meter(ServiceName))
	if err != nil {
		return nil
	}
	return inst
}

// Observe records one finished operation. A nil receiver is a no-op.
func (i *Instruments) Observe(ctx context.Context, op string, start time.Time, err error) {
	if i == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("error", err != nil),
	)
	i.operations.Add(ctx, 1, opt)
	i.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, opt)
}

// Deleted records rows removed by a cleanup operation.
func (i *Instruments) Deleted(ctx context.Context, op string, n int64) {
	if i == nil {
		return
	}
	i.deletedRecords.Add(ctx, n, metric.WithAttributes(attribute.String("op", op)))
}
