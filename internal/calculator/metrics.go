package calculator

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metric instruments, initialized once via InitMetrics().
var (
	keypressCounter metric.Int64Counter
	pressHistogram  metric.Float64Histogram
	errorCounter    metric.Int64Counter
	sessionCounter  metric.Int64Counter
)

// InitMetrics registers custom OTel metric instruments for the calculator domain.
// Call this once at startup (after observability.InitMetrics).
func InitMetrics() error {
	meter := otel.Meter("calculator")

	var err error

	keypressCounter, err = meter.Int64Counter("calculator.keypresses.total",
		metric.WithDescription("Total number of keys applied to calculator engines"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return fmt.Errorf("creating keypress counter: %w", err)
	}

	pressHistogram, err = meter.Float64Histogram("calculator.press.duration",
		metric.WithDescription("Duration of applying one batch of keys in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return fmt.Errorf("creating press histogram: %w", err)
	}

	errorCounter, err = meter.Int64Counter("calculator.errors.total",
		metric.WithDescription("Total number of calculator errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating error counter: %w", err)
	}

	sessionCounter, err = meter.Int64Counter("calculator.sessions.created.total",
		metric.WithDescription("Total number of calculator sessions opened"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return fmt.Errorf("creating session counter: %w", err)
	}

	return nil
}
