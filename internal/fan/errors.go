package fan

import "codeberg.org/mutker/thermalctl/internal/errors"

const (
	ErrManualMode = errors.ErrorCode("fan_manual_mode_failed")
	ErrAutoMode   = errors.ErrorCode("fan_auto_mode_failed")
	ErrSetSpeed   = errors.ErrorCode("fan_set_speed_failed")
)
