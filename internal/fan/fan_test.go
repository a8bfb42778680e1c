package fan_test

import (
	"context"
	"testing"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/executor"
	"codeberg.org/mutker/thermalctl/internal/fan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIPMI struct {
	requests [][]byte
	fail     bool
	timedOut bool
}

func (f *fakeIPMI) Raw(_ context.Context, data ...byte) executor.Result {
	f.requests = append(f.requests, data)
	if f.fail {
		return executor.Result{Reason: "exit status 1", TimedOut: f.timedOut, Attempts: 3}
	}
	return executor.Result{Success: true, Attempts: 1}
}

func TestModeRequests(t *testing.T) {
	ipmi := &fakeIPMI{}
	c := fan.NewController(ipmi, nil)

	require.NoError(t, c.EnableManual(context.Background()))
	require.NoError(t, c.EnableAutomatic(context.Background()))

	assert.Equal(t, [][]byte{
		{0x30, 0x30, 0x01, 0x00},
		{0x30, 0x30, 0x01, 0x01},
	}, ipmi.requests)
}

func TestSetSpeedClampsPercent(t *testing.T) {
	tests := []struct {
		percent int
		want    byte
	}{
		{20, 0x14},
		{0, 0x00},
		{100, 0x64},
		{-5, 0x00},
		{150, 0x64},
	}

	for _, tt := range tests {
		ipmi := &fakeIPMI{}
		require.NoError(t, fan.NewController(ipmi, nil).SetSpeed(context.Background(), tt.percent))
		assert.Equal(t, []byte{0x30, 0x30, 0x02, 0xff, tt.want}, ipmi.requests[0], "percent %d", tt.percent)
	}
}

func TestFailuresCarryCodes(t *testing.T) {
	ipmi := &fakeIPMI{fail: true}
	c := fan.NewController(ipmi, nil)

	err := c.EnableManual(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, fan.ErrManualMode))
	assert.Contains(t, err.Error(), "exit status 1")

	assert.True(t, errors.HasCode(c.EnableAutomatic(context.Background()), fan.ErrAutoMode))
	assert.True(t, errors.HasCode(c.SetSpeed(context.Background(), 40), fan.ErrSetSpeed))

	ipmi.timedOut = true
	assert.True(t, errors.HasCode(c.EnableManual(context.Background()), errors.ErrTimeout))
}
