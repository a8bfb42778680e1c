package ipmi_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/executor"
	"codeberg.org/mutker/thermalctl/internal/ipmi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	calls [][]string
	out   string
	err   error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.out, "", r.err
}

func newClient(runner executor.Runner) *ipmi.Client {
	cfg := ipmi.Config{Host: "10.0.0.5", User: "admin", Password: "secret", Timeout: time.Second, Retries: 1}
	exec := executor.New(runner, executor.WithSleep(func(context.Context, time.Duration) {}))

	return ipmi.New(cfg, exec)
}

func TestRawEncodesHexBytes(t *testing.T) {
	runner := &recordingRunner{}
	res := newClient(runner).Raw(context.Background(), 0x30, 0x30, 0x02, 0xff, 0x14)

	require.True(t, res.Success)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"ipmitool", "-I", "lanplus", "-H", "10.0.0.5", "-U", "admin", "-P", "secret",
		"raw", "0x30", "0x30", "0x02", "0xff", "0x14",
	}, runner.calls[0])
}

func TestSDRList(t *testing.T) {
	runner := &recordingRunner{out: "Inlet Temp | 23 degrees C | ok\n"}
	out, err := newClient(runner).SDRList(context.Background())

	require.NoError(t, err)
	assert.Contains(t, out, "Inlet Temp")
	assert.Equal(t, []string{"sdr", "list"}, runner.calls[0][len(runner.calls[0])-2:])
}

func TestSDRListFailureRetries(t *testing.T) {
	runner := &recordingRunner{err: stderrors.New("exit status 1")}
	_, err := newClient(runner).SDRList(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ipmi.ErrSDRFailed))
	assert.Len(t, runner.calls, 2)
}
