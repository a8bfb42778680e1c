// Package ipmi talks to a baseboard management controller through ipmitool
// over the LAN+ interface.
package ipmi

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/executor"
)

const (
	ipmitoolBinary = "ipmitool"
	lanInterface   = "lanplus"

	DefaultTimeout = 20 * time.Second
	DefaultRetries = 2
)

const (
	ErrCommandFailed = errors.ErrorCode("ipmi_command_failed")
	ErrSDRFailed     = errors.ErrorCode("ipmi_sdr_failed")
)

type Config struct {
	Host     string        `mapstructure:"host"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Retries  int           `mapstructure:"retries"`
}

func DefaultConfig() Config {
	return Config{
		Host:     "10.1.10.20",
		User:     "root",
		Password: "calvin",
		Timeout:  DefaultTimeout,
		Retries:  DefaultRetries,
	}
}

// Client issues ipmitool commands through a retrying executor
type Client struct {
	cfg  Config
	exec *executor.Executor
}

func New(cfg Config, exec *executor.Executor) *Client {
	return &Client{cfg: cfg, exec: exec}
}

// Command builds the full ipmitool invocation for args
func (c *Client) Command(args ...string) executor.Command {
	full := []string{"-I", lanInterface, "-H", c.cfg.Host, "-U", c.cfg.User, "-P", c.cfg.Password}

	return executor.Command{Name: ipmitoolBinary, Args: append(full, args...)}
}

// Run executes an arbitrary ipmitool subcommand with the configured timeout and retries
func (c *Client) Run(ctx context.Context, args ...string) executor.Result {
	return c.exec.Run(ctx, c.Command(args...), c.cfg.Timeout, c.cfg.Retries)
}

// Raw sends a raw request made of byte values
func (c *Client) Raw(ctx context.Context, data ...byte) executor.Result {
	args := make([]string, 0, len(data)+1)
	args = append(args, "raw")
	for _, b := range data {
		args = append(args, fmt.Sprintf("0x%02x", b))
	}

	return c.Run(ctx, args...)
}

// SDRList returns the output of `sdr list`
func (c *Client) SDRList(ctx context.Context) (string, error) {
	res := c.Run(ctx, "sdr", "list")
	if err := res.Err(ErrSDRFailed); err != nil {
		return "", err
	}

	return res.Stdout, nil
}

// Host is the management controller address, for display
func (c *Client) Host() string {
	return c.cfg.Host
}
