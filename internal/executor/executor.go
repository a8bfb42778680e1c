package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
)

const DefaultRetryDelay = time.Second

// Command is an external program invocation
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result describes the outcome of Run. Failures are reported here and never
// as a panic or error return, so callers decide their own escalation policy.
type Result struct {
	Success  bool
	Stdout   string
	Stderr   string
	Attempts int
	TimedOut bool
	Reason   string
}

// Err converts a failed Result into an error carrying code, or nil on success
func (r Result) Err(code errors.ErrorCode) error {
	if r.Success {
		return nil
	}
	if r.TimedOut {
		return errors.New().WithData(errors.ErrTimeout, r.Reason)
	}

	return errors.New().WithData(code, r.Reason)
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration)

// Executor runs commands with a bounded timeout and bounded synchronous retry
type Executor struct {
	runner Runner
	delay  time.Duration
	sleep  SleepFunc
	logger logger.Logger
}

type Option func(*Executor)

// WithRetryDelay sets the fixed pause between attempts
func WithRetryDelay(d time.Duration) Option {
	return func(e *Executor) {
		e.delay = d
	}
}

// WithSleep replaces the pause implementation, mainly for tests
func WithSleep(fn SleepFunc) Option {
	return func(e *Executor) {
		e.sleep = fn
	}
}

// WithLogger sets the logger used for retry diagnostics
func WithLogger(log logger.Logger) Option {
	return func(e *Executor) {
		e.logger = log
	}
}

func New(runner Runner, opts ...Option) *Executor {
	if runner == nil {
		runner = ExecRunner{}
	}

	e := &Executor{
		runner: runner,
		delay:  DefaultRetryDelay,
		sleep:  sleepContext,
		logger: logger.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run executes cmd, allowing up to maxRetries additional attempts after the
// first. Each attempt is bounded by timeout; timeouts and non-zero exits are
// both retried.
func (e *Executor) Run(ctx context.Context, cmd Command, timeout time.Duration, maxRetries int) Result {
	if maxRetries < 0 {
		maxRetries = 0
	}
	total := maxRetries + 1

	var res Result
	for attempt := 1; attempt <= total; attempt++ {
		res = e.attempt(ctx, cmd, timeout)
		res.Attempts = attempt
		if res.Success {
			return res
		}

		if attempt < total {
			e.logger.Debug().
				Str("command", cmd.Name).
				Int("attempt", attempt).
				Int("max_attempts", total).
				Bool("timed_out", res.TimedOut).
				Str("reason", res.Reason).
				Msg("Command failed, retrying")
			e.sleep(ctx, e.delay)
		}
	}

	if res.TimedOut {
		res.Reason = fmt.Sprintf("timed out after %d attempts", total)
	}

	// Single-shot probes fail routinely (missing tools); only retried commands warn.
	event := e.logger.Debug()
	if maxRetries > 0 {
		event = e.logger.Warn()
	}
	event.
		Str("command", cmd.Name).
		Int("attempts", total).
		Str("reason", res.Reason).
		Msg("Command failed")

	return res
}

func (e *Executor) attempt(ctx context.Context, cmd Command, timeout time.Duration) Result {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stdout, stderr, err := e.runner.Run(attemptCtx, cmd.Name, cmd.Args...)
	res := Result{Stdout: stdout, Stderr: stderr}

	switch {
	case err == nil:
		res.Success = true
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.Reason = "timed out"
	case stderr != "":
		res.Reason = fmt.Sprintf("%v: %s", err, stderr)
	default:
		res.Reason = err.Error()
	}

	return res
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
