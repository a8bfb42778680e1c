// Package cycle runs one sense-decide-actuate-record pass.
package cycle

import (
	"context"
	"slices"
	"time"

	"codeberg.org/mutker/thermalctl/internal/decision"
	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/fan"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/metrics"
	"codeberg.org/mutker/thermalctl/internal/sensors"
	"codeberg.org/mutker/thermalctl/internal/telemetry"
	"github.com/google/uuid"
)

// Outcome of one cycle. Only Failed maps to a non-zero exit status.
type Outcome int

const (
	Completed Outcome = iota
	Failed
)

func (o Outcome) String() string {
	if o == Failed {
		return "failed"
	}
	return "completed"
}

// Result describes what a cycle observed and did
type Result struct {
	ID          string
	Outcome     Outcome
	Decision    decision.Decision
	GPUTemps    []sensors.Temperature
	SystemTemps []sensors.Temperature
	Fans        []sensors.FanSpeed
	// Record is nil when the cycle failed before recording
	Record *telemetry.Record
}

type Deps struct {
	Sensors sensors.Acquirer
	Fans    fan.Controller
	Records telemetry.Collector
	Metrics metrics.MetricsCollector
	Logger  logger.Logger
}

type Runner struct {
	policy decision.Policy
	deps   Deps
	now    func() time.Time
	newID  func() string
}

type Option func(*Runner)

// WithClock replaces time.Now for record timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithIDGenerator replaces the random cycle id
func WithIDGenerator(fn func() string) Option {
	return func(r *Runner) {
		r.newID = fn
	}
}

func New(policy decision.Policy, deps Deps, opts ...Option) *Runner {
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}

	r := &Runner{
		policy: policy,
		deps:   deps,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes exactly one cycle. The only fatal condition is failing to take
// manual control of the fans; everything else is logged and the cycle goes on.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	errFactory := errors.New()
	log := r.deps.Logger

	res := Result{ID: r.newID()}
	defer logger.WithField("cycle", res.ID)()

	res.GPUTemps = r.deps.Sensors.GPUTemperatures(ctx)
	res.SystemTemps = r.deps.Sensors.SystemTemperatures(ctx)
	gpu := sensors.Celsius(res.GPUTemps)
	system := sensors.Celsius(res.SystemTemps)
	logReadings(log, gpu, system)

	d := decision.Decide(r.policy, gpu, system)
	res.Decision = d
	if d.NoReadings {
		log.Warn().Msg("No temperature readings, falling back to the lowest manual speed")
	}

	log.Info().
		Str("action", d.Action.String()).
		Str("source", string(d.Source)).
		Str("tier", d.Tier.String()).
		Int("decision_temp", d.DecisionTemp).
		Bool("gpu_override", d.Override).
		Msg("Fan action decided")

	if d.Action.IsAutomatic() {
		log.Info().
			Int("max_temp", max(d.MaxGPU, d.MaxSystem)).
			Int("auto_threshold", r.policy.AutoThreshold).
			Msg("Temperatures high, enabling automatic fan control")
		if err := r.deps.Fans.EnableAutomatic(ctx); err != nil {
			log.Error().Err(err).Msg("Automatic fan control not confirmed, continuing")
		}
	} else {
		if err := r.deps.Fans.EnableManual(ctx); err != nil {
			res.Outcome = Failed
			r.publish(ctx, &res)
			return res, errFactory.Wrap(errors.ErrCycleFailed, err)
		}

		speed := d.Action.SpeedPercent()
		if err := r.deps.Fans.SetSpeed(ctx, speed); err != nil {
			log.Error().Err(err).Int("percent", speed).Msg("Fan speed not confirmed, continuing")
		} else {
			log.Info().Int("percent", speed).Msg("Manual mode active")
		}
	}

	res.Fans = r.deps.Sensors.FanSpeeds(ctx)
	if len(res.Fans) > 0 {
		log.Info().
			Str("fans", sensors.Join(sensors.Values(res.Fans))).
			Int("avg_rpm", sensors.AverageRPM(res.Fans)).
			Msg("Fan speeds")
	}

	res.Record = &telemetry.Record{
		Timestamp:    r.now(),
		MaxGPU:       d.MaxGPU,
		MaxSystem:    d.MaxSystem,
		AvgFanRPM:    sensors.AverageRPM(res.Fans),
		SpeedPercent: d.Action.SpeedPercent(),
		GPUTemps:     gpu,
		SystemTemps:  system,
		FanSpeeds:    sensors.Values(res.Fans),
	}
	if err := r.deps.Records.Record(ctx, res.Record); err != nil {
		log.Warn().Err(err).Msg("Failed to append cycle record")
	}

	r.publish(ctx, &res)

	return res, nil
}

func (r *Runner) publish(ctx context.Context, res *Result) {
	if r.deps.Metrics == nil {
		return
	}

	d := res.Decision
	snapshot := &metrics.MetricsSnapshot{
		Timestamp: r.now(),
		Temperature: metrics.TempMetrics{
			MaxGPU:    d.MaxGPU,
			MaxSystem: d.MaxSystem,
			GPU:       sensors.Celsius(res.GPUTemps),
			System:    sensors.Celsius(res.SystemTemps),
		},
		FanSpeed: fanMetrics(res.Fans),
		SystemState: metrics.StateMetrics{
			AutoFanControl: d.Action.IsAutomatic(),
			GPUOverride:    d.Override,
			Success:        res.Outcome == Completed,
		},
	}
	if res.Outcome == Completed {
		snapshot.FanSpeed.Commanded = d.Action.SpeedPercent()
	}

	if err := r.deps.Metrics.Record(ctx, snapshot); err != nil {
		r.deps.Logger.Warn().Err(err).Msg("Failed to export metrics")
	}
}

func fanMetrics(fans []sensors.FanSpeed) metrics.FanMetrics {
	m := metrics.FanMetrics{AverageRPM: sensors.AverageRPM(fans)}
	for _, f := range fans {
		reading := metrics.FanReading{Fan: f.Index, Value: f.Value}
		if f.Unit == sensors.UnitPercent {
			m.Percent = append(m.Percent, reading)
		} else {
			m.RPM = append(m.RPM, reading)
		}
	}

	return m
}

func logReadings(log logger.Logger, gpu, system []int) {
	if len(gpu) > 0 {
		log.Info().Str("temps", sensors.Join(gpu)).Int("max", slices.Max(gpu)).Msg("GPU temperatures")
	} else {
		log.Info().Msg("GPU temperatures: no GPUs detected or GPU monitoring tools unavailable")
	}

	if len(system) > 0 {
		log.Info().Str("temps", sensors.Join(system)).Int("max", slices.Max(system)).Msg("System temperatures")
	} else {
		log.Warn().Msg("System temperatures: unable to read")
	}
}
