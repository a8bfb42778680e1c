package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"codeberg.org/mutker/thermalctl/internal/config"
	"codeberg.org/mutker/thermalctl/internal/cycle"
	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/executor"
	"codeberg.org/mutker/thermalctl/internal/fan"
	"codeberg.org/mutker/thermalctl/internal/gpu"
	"codeberg.org/mutker/thermalctl/internal/ipmi"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/metrics"
	"codeberg.org/mutker/thermalctl/internal/report"
	"codeberg.org/mutker/thermalctl/internal/sensors"
	"codeberg.org/mutker/thermalctl/internal/telemetry"
	"github.com/spf13/pflag"
)

type app struct {
	cfg       *config.Config
	ipmi      *ipmi.Client
	nvml      gpu.TemperatureReader
	collector *sensors.Collector
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(filepath.Base(os.Args[0]), os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config (%s): %v\n", errors.CodeOf(err), err)
		return 1
	}

	level, _ := cfg.Level()
	opts := logger.Options{Level: level, IsService: logger.IsService()}
	// Read-only modes never touch the operational log.
	if !cfg.Mode.ReadOnly() {
		opts.FilePath = cfg.LogFile
	}
	if err := logger.Init(opts); err != nil {
		logger.Warn().Err(err).Msg("Operational log file unavailable, logging to stdout only")
	}
	defer logger.Close()

	if cfg.ConfigFile != "" {
		logger.Debug().Str("path", cfg.ConfigFile).Msg("Config loaded")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	exec := executor.New(nil, executor.WithLogger(logger.Default()))
	a := &app{
		cfg:  cfg,
		ipmi: ipmi.New(cfg.IPMI, exec),
		nvml: gpu.NewNVMLReader(nil),
	}
	defer func() {
		if err := a.nvml.Close(); err != nil {
			logger.Debug().Err(err).Msg("NVML shutdown failed")
		}
	}()
	a.collector = sensors.NewCollector(sensors.Options{
		SysfsRoot:   cfg.SysfsRoot,
		ToolTimeout: cfg.ToolTimeout,
		Executor:    exec,
		SDR:         a.ipmi,
		GPU:         a.nvml,
	})

	switch cfg.Mode {
	case config.ModeTemps:
		report.New(os.Stdout).Temperatures(a.ipmi.Host(),
			a.collector.GPUTemperatures(ctx), a.collector.SystemTemperatures(ctx), cfg.Policy())
		return 0
	case config.ModeFans:
		report.New(os.Stdout).Fans(a.ipmi.Host(), a.collector.FanSpeeds(ctx), cfg.Speeds)
		return 0
	case config.ModeHistory:
		return a.history()
	case config.ModeHistoryDetailed:
		return a.detailedHistory()
	default:
		return a.control(ctx)
	}
}

func (a *app) control(ctx context.Context) int {
	records, err := telemetry.NewService(telemetry.Config{DataLogFile: a.cfg.DataLogFile})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize data log")
		return 1
	}
	defer records.Close()

	exporter, err := metrics.NewService(a.cfg.Metrics)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize metrics export")
		return 1
	}
	defer exporter.Close()

	runner := cycle.New(a.cfg.Policy(), cycle.Deps{
		Sensors: a.collector,
		Fans:    fan.NewController(a.ipmi, nil),
		Records: records,
		Metrics: exporter,
	})

	logger.Info().Str("idrac", a.ipmi.Host()).Msg("Starting check")

	res, err := runner.Run(ctx)
	if err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.ErrorWithCode(appErr).Msg("Could not take manual fan control, leaving fans unchanged")
		} else {
			logger.Error().Err(err).Msg("Cycle failed")
		}
		return 1
	}

	logger.Info().
		Str("action", res.Decision.Action.String()).
		Str("outcome", res.Outcome.String()).
		Msg("Check complete")

	return 0
}

func (a *app) history() int {
	p := report.New(os.Stdout)
	title := fmt.Sprintf("Temperature History (last %d entries)", a.cfg.HistoryCount)

	result, err := telemetry.ReadRecords(a.cfg.DataLogFile, time.Time{})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			p.NotFound(title, a.cfg.DataLogFile)
			return 0
		}
		logger.Error().Err(err).Msg("Failed to read data log")
		return 1
	}

	p.History(result.Records, a.cfg.HistoryCount)
	return 0
}

func (a *app) detailedHistory() int {
	p := report.New(os.Stdout)
	hours := a.cfg.HistoryHours
	title := fmt.Sprintf("Detailed Temperature History (last %d hours)", hours)

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	result, err := telemetry.ReadRecords(a.cfg.DataLogFile, since)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			p.NotFound(title, a.cfg.DataLogFile)
			return 0
		}
		logger.Error().Err(err).Msg("Failed to read data log")
		return 1
	}

	p.DetailedHistory(result.Records, hours)
	return 0
}
