package cycle

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/thermalctl/internal/decision"
	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/fan"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/metrics"
	"codeberg.org/mutker/thermalctl/internal/sensors"
	"codeberg.org/mutker/thermalctl/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSensors struct {
	gpu, system []int
	fans        []sensors.FanSpeed
	calls       []string
}

func temps(origin sensors.Origin, values []int) []sensors.Temperature {
	var out []sensors.Temperature
	for i, v := range values {
		out = append(out, sensors.Temperature{Origin: origin, Index: i, Celsius: v})
	}
	return out
}

func (f *fakeSensors) GPUTemperatures(context.Context) []sensors.Temperature {
	f.calls = append(f.calls, "gpu")
	return temps(sensors.OriginGPU, f.gpu)
}

func (f *fakeSensors) SystemTemperatures(context.Context) []sensors.Temperature {
	f.calls = append(f.calls, "system")
	return temps(sensors.OriginSystem, f.system)
}

func (f *fakeSensors) FanSpeeds(context.Context) []sensors.FanSpeed {
	f.calls = append(f.calls, "fans")
	return f.fans
}

type fakeFans struct {
	calls      []string
	speeds     []int
	failManual bool
	failAuto   bool
	failSpeed  bool
}

func (f *fakeFans) EnableManual(context.Context) error {
	f.calls = append(f.calls, "manual")
	if f.failManual {
		return errors.New().WithData(fan.ErrManualMode, "timed out after 3 attempts")
	}
	return nil
}

func (f *fakeFans) EnableAutomatic(context.Context) error {
	f.calls = append(f.calls, "auto")
	if f.failAuto {
		return errors.New().New(fan.ErrAutoMode)
	}
	return nil
}

func (f *fakeFans) SetSpeed(_ context.Context, percent int) error {
	f.calls = append(f.calls, "speed")
	f.speeds = append(f.speeds, percent)
	if f.failSpeed {
		return errors.New().New(fan.ErrSetSpeed)
	}
	return nil
}

type fakeRecords struct {
	records []*telemetry.Record
	fail    bool
}

func (f *fakeRecords) Record(_ context.Context, rec *telemetry.Record) error {
	if f.fail {
		return errors.New().New(telemetry.ErrStorageAccess)
	}
	f.records = append(f.records, rec)
	return nil
}

func (*fakeRecords) Close() error { return nil }

type fakeMetrics struct {
	snapshots []*metrics.MetricsSnapshot
}

func (f *fakeMetrics) Record(_ context.Context, s *metrics.MetricsSnapshot) error {
	f.snapshots = append(f.snapshots, s)
	return nil
}

func (*fakeMetrics) Close() error { return nil }

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

type harness struct {
	sensors *fakeSensors
	fans    *fakeFans
	records *fakeRecords
	metrics *fakeMetrics
	runner  *Runner
}

func newHarness(s *fakeSensors) *harness {
	h := &harness{sensors: s, fans: &fakeFans{}, records: &fakeRecords{}, metrics: &fakeMetrics{}}
	h.runner = New(decision.DefaultPolicy(), Deps{
		Sensors: h.sensors,
		Fans:    h.fans,
		Records: h.records,
		Metrics: h.metrics,
	}, WithClock(func() time.Time { return fixedNow }), WithIDGenerator(func() string { return "cycle-1" }))

	return h
}

func TestRunManual(t *testing.T) {
	h := newHarness(&fakeSensors{
		gpu:    []int{72, 68},
		system: []int{48, 41},
		fans:   []sensors.FanSpeed{{Value: 5400, Unit: sensors.UnitRPM}, {Index: 1, Value: 5600, Unit: sensors.UnitRPM}},
	})

	res, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "cycle-1", res.ID)
	assert.Equal(t, Completed, res.Outcome)
	assert.Equal(t, []string{"gpu", "system", "fans"}, h.sensors.calls)
	assert.Equal(t, []string{"manual", "speed"}, h.fans.calls)
	assert.Equal(t, []int{60}, h.fans.speeds)

	require.Len(t, h.records.records, 1)
	assert.Equal(t, &telemetry.Record{
		Timestamp:    fixedNow,
		MaxGPU:       72,
		MaxSystem:    48,
		AvgFanRPM:    5500,
		SpeedPercent: 60,
		GPUTemps:     []int{72, 68},
		SystemTemps:  []int{48, 41},
		FanSpeeds:    []int{5400, 5600},
	}, h.records.records[0])

	require.Len(t, h.metrics.snapshots, 1)
	assert.Equal(t, 60, h.metrics.snapshots[0].FanSpeed.Commanded)
	assert.True(t, h.metrics.snapshots[0].SystemState.Success)
	assert.True(t, h.metrics.snapshots[0].SystemState.GPUOverride)
}

func TestRunSeparatesFanUnits(t *testing.T) {
	h := newHarness(&fakeSensors{
		gpu: []int{55},
		fans: []sensors.FanSpeed{
			{Value: 5400, Unit: sensors.UnitRPM},
			{Index: 1, Value: 40, Unit: sensors.UnitPercent},
		},
	})

	_, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, h.metrics.snapshots, 1)
	fans := h.metrics.snapshots[0].FanSpeed
	assert.Equal(t, 5400, fans.AverageRPM)
	assert.Equal(t, []metrics.FanReading{{Fan: 0, Value: 5400}}, fans.RPM)
	assert.Equal(t, []metrics.FanReading{{Fan: 1, Value: 40}}, fans.Percent)
}

func TestRunAutomatic(t *testing.T) {
	h := newHarness(&fakeSensors{gpu: []int{76}, system: []int{40}})
	h.fans.failAuto = true

	res, err := h.runner.Run(context.Background())
	require.NoError(t, err, "automatic mode failure is not fatal")

	assert.True(t, res.Decision.Action.IsAutomatic())
	assert.Equal(t, []string{"auto"}, h.fans.calls)
	require.Len(t, h.records.records, 1)
	assert.Equal(t, 0, h.records.records[0].SpeedPercent)
	assert.Equal(t, 0, h.records.records[0].AvgFanRPM)
	assert.True(t, h.metrics.snapshots[0].SystemState.AutoFanControl)
}

func TestRunManualModeFailure(t *testing.T) {
	h := newHarness(&fakeSensors{gpu: []int{55}, system: []int{45}})
	h.fans.failManual = true

	res, err := h.runner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCycleFailed))
	assert.True(t, errors.HasCode(err, fan.ErrManualMode))

	assert.Equal(t, Failed, res.Outcome)
	assert.Nil(t, res.Record)
	assert.Equal(t, []string{"manual"}, h.fans.calls, "no speed after a failed mode switch")
	assert.Empty(t, h.records.records)
	assert.NotContains(t, h.sensors.calls, "fans")

	require.Len(t, h.metrics.snapshots, 1)
	assert.False(t, h.metrics.snapshots[0].SystemState.Success)
	assert.Zero(t, h.metrics.snapshots[0].FanSpeed.Commanded)
}

func TestRunSetSpeedAndAppendFailuresAreNotFatal(t *testing.T) {
	h := newHarness(&fakeSensors{gpu: []int{55}, system: []int{45}})
	h.fans.failSpeed = true
	h.records.fail = true

	res, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Completed, res.Outcome)
	assert.Equal(t, []int{20}, h.fans.speeds)
	assert.NotNil(t, res.Record)
}

func TestRunWithoutReadings(t *testing.T) {
	h := newHarness(&fakeSensors{})

	res, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, decision.Manual(20), res.Decision.Action)
	assert.Equal(t, []int{20}, h.fans.speeds)
	require.Len(t, h.records.records, 1)
	assert.Empty(t, h.records.records[0].GPUTemps)
}

func TestRunGeneratesID(t *testing.T) {
	runner := New(decision.DefaultPolicy(), Deps{
		Sensors: &fakeSensors{},
		Fans:    &fakeFans{},
		Records: &fakeRecords{},
	})

	a, err := runner.Run(context.Background())
	require.NoError(t, err)
	b, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestRunTagsOnlyItsOwnLines(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, logger.Init(logger.Options{Level: logger.InfoLevel, IsService: true, Output: &out}))

	ids := []string{"run-one", "run-two"}
	runner := New(decision.DefaultPolicy(), Deps{
		Sensors: &fakeSensors{gpu: []int{55}},
		Fans:    &fakeFans{},
		Records: &fakeRecords{},
	}, WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	_, err := runner.Run(context.Background())
	require.NoError(t, err)
	out.Reset()

	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Contains(t, line, "run-two")
		assert.NotContains(t, line, "run-one")
		assert.Equal(t, 1, strings.Count(line, "cycle"))
	}

	out.Reset()
	logger.Info().Msg("after")
	assert.NotContains(t, out.String(), "cycle")
}
