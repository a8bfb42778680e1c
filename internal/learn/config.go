package learn

import (
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
)

const (
	DefaultWindow     = 7 * 24 * time.Hour
	DefaultMinRecords = 100
	DefaultStability  = 2.0

	minBucketSamples      = 10
	trendSamples          = 20
	trendDelta            = 3.0
	suggestionMargin      = 2
	highConfidenceSamples = 50
)

type Config struct {
	// Window is how far back records are considered
	Window time.Duration `mapstructure:"window"`
	// MinRecords is the number of in-window records below which both analyses abstain
	MinRecords int `mapstructure:"min_records"`
	// Stability is the standard deviation in °C under which a bucket is stable
	Stability float64 `mapstructure:"stability"`
}

func DefaultConfig() Config {
	return Config{
		Window:     DefaultWindow,
		MinRecords: DefaultMinRecords,
		Stability:  DefaultStability,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Window <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "window must be positive")
	}
	if c.MinRecords < 0 {
		return errFactory.WithData(ErrInvalidConfig, "min_records must not be negative")
	}
	return nil
}
