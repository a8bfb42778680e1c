package learn

import "codeberg.org/mutker/thermalctl/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("learn_invalid_config")
	ErrReadFailed    = errors.ErrorCode("learn_read_failed")
)
