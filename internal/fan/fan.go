// Package fan drives the chassis fans of a Dell iDRAC through raw IPMI
// requests. All fans are driven together; there is no per-zone control.
package fan

import (
	"context"

	"codeberg.org/mutker/thermalctl/internal/executor"
	"codeberg.org/mutker/thermalctl/internal/logger"
)

// Dell OEM fan control opcodes (netfn 0x30, command 0x30)
const (
	oemNetFn        byte = 0x30
	oemFanCommand   byte = 0x30
	opSetMode       byte = 0x01
	opSetSpeed      byte = 0x02
	modeManual      byte = 0x00
	modeAutomatic   byte = 0x01
	allFans         byte = 0xff
	minSpeedPercent      = 0
	maxSpeedPercent      = 100
)

// Controller switches the fan controller mode and sets a global speed. A nil
// error means the hardware acknowledged the request.
type Controller interface {
	EnableManual(ctx context.Context) error
	EnableAutomatic(ctx context.Context) error
	SetSpeed(ctx context.Context, percent int) error
}

// RawSender is the part of the IPMI client the driver needs
type RawSender interface {
	Raw(ctx context.Context, data ...byte) executor.Result
}

type idracController struct {
	ipmi   RawSender
	logger logger.Logger
}

func NewController(ipmi RawSender, log logger.Logger) Controller {
	if log == nil {
		log = logger.Default()
	}

	return &idracController{ipmi: ipmi, logger: log}
}

func (c *idracController) EnableManual(ctx context.Context) error {
	res := c.ipmi.Raw(ctx, oemNetFn, oemFanCommand, opSetMode, modeManual)
	if err := res.Err(ErrManualMode); err != nil {
		c.logger.Error().Str("reason", res.Reason).Msg("Failed to enable manual fan mode")
		return err
	}

	c.logger.Info().Msg("Manual fan mode enabled")
	return nil
}

func (c *idracController) EnableAutomatic(ctx context.Context) error {
	res := c.ipmi.Raw(ctx, oemNetFn, oemFanCommand, opSetMode, modeAutomatic)
	if err := res.Err(ErrAutoMode); err != nil {
		c.logger.Error().Str("reason", res.Reason).Msg("Failed to enable automatic fan mode")
		return err
	}

	c.logger.Info().Msg("Automatic fan mode enabled (iDRAC control)")
	return nil
}

// SetSpeed clamps percent to 0..100. It does not check the current mode;
// setting a speed while in automatic mode is the caller's mistake.
func (c *idracController) SetSpeed(ctx context.Context, percent int) error {
	percent = clamp(percent, minSpeedPercent, maxSpeedPercent)

	res := c.ipmi.Raw(ctx, oemNetFn, oemFanCommand, opSetSpeed, allFans, byte(percent))
	if err := res.Err(ErrSetSpeed); err != nil {
		c.logger.Error().Int("percent", percent).Str("reason", res.Reason).Msg("Failed to set fan speed")
		return err
	}

	c.logger.Info().Int("percent", percent).Msg("Fan speed set")
	return nil
}

func clamp(value, minValue, maxValue int) int {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}

	return value
}
