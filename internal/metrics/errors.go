package metrics

import "codeberg.org/mutker/thermalctl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrInvalidTextfile = errors.ErrorCode("metrics_invalid_textfile")

	// Export Errors
	ErrRegisterFailed = errors.ErrorCode("metrics_register_failed")
	ErrWriteFailed    = errors.ErrorCode("metrics_write_failed")

	// Collection Errors
	ErrMetricsCollection = errors.ErrorCode("metrics_metrics_collection_failed")
	ErrInvalidMetrics    = errors.ErrorCode("metrics_invalid_metrics")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
