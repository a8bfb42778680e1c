package sensors

import (
	"context"
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/executor"
	"codeberg.org/mutker/thermalctl/internal/logger"
)

const (
	DefaultToolTimeout = 5 * time.Second
	DefaultSysfsRoot   = "/sys"

	ErrToolFailed = errors.ErrorCode("sensor_tool_failed")
)

// Source names, as they appear in debug logs and diagnostics
const (
	SourceNVML      = "nvml"
	SourceNvidiaSMI = "nvidia-smi"
	SourceRocmSMI   = "rocm-smi"
	SourceIntelTop  = "intel_gpu_top"
	SourceLMSensors = "sensors"
	SourceHwmon     = "hwmon"
	SourceIPMISDR   = "ipmitool-sdr"
)

// SDRReader fetches the management controller's sensor data repository
type SDRReader interface {
	SDRList(ctx context.Context) (string, error)
}

// GPUReader queries GPU temperatures in-process
type GPUReader interface {
	Temperatures() ([]int, error)
}

type Options struct {
	SysfsRoot   string
	ToolTimeout time.Duration
	// Executor runs local tools. Tools are never retried.
	Executor *executor.Executor
	// SDR and GPU are optional; a nil reader drops that source from its chain.
	SDR    SDRReader
	GPU    GPUReader
	Logger logger.Logger
}

// Collector is the production Acquirer
type Collector struct {
	opts   Options
	gpu    *Chain[int]
	system *Chain[int]
	fans   *Chain[FanSpeed]
}

func NewCollector(opts Options) *Collector {
	if opts.SysfsRoot == "" {
		opts.SysfsRoot = DefaultSysfsRoot
	}
	if opts.ToolTimeout <= 0 {
		opts.ToolTimeout = DefaultToolTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Executor == nil {
		opts.Executor = executor.New(nil, executor.WithLogger(opts.Logger))
	}

	c := &Collector{opts: opts}
	c.gpu = NewChain(string(OriginGPU), validCelsius, opts.Logger, c.gpuSources()...)
	c.system = NewChain(string(OriginSystem), validCelsius, opts.Logger, c.systemSources()...)
	c.fans = NewChain("fan", ValidFanSpeed, opts.Logger, c.fanSources()...)

	return c
}

func (c *Collector) gpuSources() []Source[int] {
	var sources []Source[int]
	if c.opts.GPU != nil {
		sources = append(sources, Source[int]{
			Name: SourceNVML,
			Read: func(context.Context) ([]int, error) { return c.opts.GPU.Temperatures() },
		})
	}

	return append(sources,
		toolSource(c, SourceNvidiaSMI, ParseNvidiaSMI, "nvidia-smi",
			"--query-gpu=temperature.gpu", "--format=csv,noheader,nounits"),
		toolSource(c, SourceRocmSMI, ParseRocmSMI, "rocm-smi", "--showtemp", "--csv"),
		toolSource(c, SourceIntelTop, ParseIntelGPUTop, "intel_gpu_top", "-l", "1"),
		toolSource(c, SourceLMSensors, ParseSensorsGPU, "sensors"),
	)
}

func (c *Collector) systemSources() []Source[int] {
	sources := []Source[int]{
		{
			Name: SourceHwmon,
			Read: func(context.Context) ([]int, error) { return ReadHwmonTemperatures(c.opts.SysfsRoot) },
		},
		toolSource(c, SourceLMSensors, ParseSensorsTemps, "sensors"),
	}
	if c.opts.SDR != nil {
		sources = append(sources, sdrSource(c.opts.SDR, ParseSDRTemps))
	}

	return sources
}

func (c *Collector) fanSources() []Source[FanSpeed] {
	sources := []Source[FanSpeed]{
		{
			Name: SourceHwmon,
			Read: func(context.Context) ([]FanSpeed, error) {
				rpms, err := ReadHwmonFans(c.opts.SysfsRoot)
				if err != nil {
					return nil, err
				}
				fans := make([]FanSpeed, len(rpms))
				for i, v := range rpms {
					fans[i] = FanSpeed{Value: v, Unit: UnitRPM}
				}
				return fans, nil
			},
		},
		toolSource(c, SourceLMSensors, ParseSensorsFans, "sensors"),
	}
	if c.opts.SDR != nil {
		sources = append(sources, sdrSource(c.opts.SDR, ParseSDRFans))
	}

	return sources
}

// GPUTemperatures never fails; an empty result means no source answered
func (c *Collector) GPUTemperatures(ctx context.Context) []Temperature {
	values, _ := c.gpu.Acquire(ctx)
	return tagTemperatures(OriginGPU, values)
}

func (c *Collector) SystemTemperatures(ctx context.Context) []Temperature {
	values, _ := c.system.Acquire(ctx)
	return tagTemperatures(OriginSystem, values)
}

func (c *Collector) FanSpeeds(ctx context.Context) []FanSpeed {
	fans, _ := c.fans.Acquire(ctx)
	for i := range fans {
		fans[i].Index = i
	}

	return fans
}

// toolSource runs a local tool once with the tool timeout and parses its stdout
func toolSource[T any](c *Collector, name string, parse func(string) []T, bin string, args ...string) Source[T] {
	cmd := executor.Command{Name: bin, Args: args}

	return Source[T]{
		Name: name,
		Read: func(ctx context.Context) ([]T, error) {
			res := c.opts.Executor.Run(ctx, cmd, c.opts.ToolTimeout, 0)
			if err := res.Err(ErrToolFailed); err != nil {
				return nil, err
			}
			return parse(res.Stdout), nil
		},
	}
}

func sdrSource[T any](sdr SDRReader, parse func(string) []T) Source[T] {
	return Source[T]{
		Name: SourceIPMISDR,
		Read: func(ctx context.Context) ([]T, error) {
			out, err := sdr.SDRList(ctx)
			if err != nil {
				return nil, err
			}
			return parse(out), nil
		},
	}
}

func validCelsius(v int) bool {
	return ValidTemperature(Temperature{Celsius: v})
}

func tagTemperatures(origin Origin, values []int) []Temperature {
	if len(values) == 0 {
		return nil
	}

	temps := make([]Temperature, len(values))
	for i, v := range values {
		temps[i] = Temperature{Origin: origin, Index: i, Celsius: v}
	}

	return temps
}
