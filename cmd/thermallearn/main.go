package main

import (
	"fmt"
	"os"
	"path/filepath"

	"codeberg.org/mutker/thermalctl/internal/config"
	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/learn"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/report"
	"github.com/spf13/pflag"
)

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
	if cfg.LogLevel == "" {
		level = logger.WarnLevel
	}
	if err := logger.Init(logger.Options{Level: level, IsService: logger.IsService(), Output: os.Stderr}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
	}
	defer logger.Close()

	fmt.Println("Analyzing fan control data for threshold optimization...")
	fmt.Println()

	analyzer := learn.New(cfg.Learn, cfg.Policy())
	logger.Debug().
		Str("data_log", cfg.DataLogFile).
		Time("since", analyzer.Since()).
		Msg("Reading cycle records")

	r, err := analyzer.AnalyzeFile(cfg.DataLogFile)
	if err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.ErrorWithCode(appErr).Msg("Analysis failed")
		}
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		return 1
	}

	if r.Total == 0 {
		fmt.Printf("No cycle records in %s within the last %s.\n", cfg.DataLogFile, cfg.Learn.Window)
		fmt.Println("Run thermalctl normally to start collecting data.")
		return 0
	}

	report.New(os.Stdout).Learn(r)
	return 0
}
