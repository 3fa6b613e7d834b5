package main

import (
	"context"

	"pocket-calc/internal/calculator"
	"pocket-calc/internal/config"
	"pocket-calc/internal/observability"
)

// initTelemetry starts the logger, the OTLP pipelines when enabled, and the
// calculator metric instruments. The returned function flushes telemetry.
func initTelemetry(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if err := observability.InitLogger(cfg.LogLevel); err != nil {
		return nil, err
	}

	shutdown := func(context.Context) error { return nil }

	if cfg.OTelEnabled {
		var err error
		shutdown, err = observability.Setup(ctx, cfg.ServiceName)
		if err != nil {
			return nil, err
		}
	}

	if err := calculator.InitMetrics(); err != nil {
		return nil, err
	}

	return shutdown, nil
}
