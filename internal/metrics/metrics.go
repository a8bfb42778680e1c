// Package metrics exports each control cycle as Prometheus gauges through
// node_exporter's textfile collector.
package metrics

import (
	"context"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
)

type service struct {
	cfg Config
}

// No-op implementation
type noopMetricsCollector struct{}

func NewService(cfg Config) (MetricsCollector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If metrics is disabled, return a no-op collector
	if !cfg.Enabled() {
		logger.Debug().Msg("Metrics export disabled, using no-op collector")
		return &noopMetricsCollector{}, nil
	}

	logger.Debug().
		Str("textfile", cfg.Textfile).
		Msg("Metrics service initialized successfully")

	return &service{cfg: cfg}, nil
}

func (s *service) Record(ctx context.Context, snapshot *MetricsSnapshot) error {
	errFactory := errors.New()

	if snapshot == nil {
		return errFactory.New(ErrInvalidMetrics)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	registry, err := buildRegistry(snapshot)
	if err != nil {
		return errFactory.Wrap(ErrRegisterFailed, err)
	}

	if err := prometheus.WriteToTextfile(s.cfg.Textfile, registry); err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	return nil
}

func (*service) Close() error {
	return nil
}

// No-op implementation
func (*noopMetricsCollector) Record(_ context.Context, _ *MetricsSnapshot) error {
	return nil
}

func (*noopMetricsCollector) Close() error {
	return nil
}
