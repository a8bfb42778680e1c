// Package decision maps GPU and system temperatures to a fan action. It is a
// pure function of the current readings: no I/O and no state between calls.
package decision

import "fmt"

// Tier is a severity level used to pick a fan speed
type Tier int

const (
	TierBelowLow Tier = iota
	TierLow
	TierMed
	TierHigh
	TierCritical
)

func (t Tier) String() string {
	switch t {
	case TierBelowLow:
		return "below-low"
	case TierLow:
		return "low"
	case TierMed:
		return "med"
	case TierHigh:
		return "high"
	case TierCritical:
		return "critical"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Tiers lists the speed-bearing tiers from least to most severe
var Tiers = []Tier{TierLow, TierMed, TierHigh, TierCritical}

// Thresholds are the breakpoints of one temperature domain in °C.
// Low < Med < High < Critical is assumed and not checked.
type Thresholds struct {
	Low      int `mapstructure:"low"`
	Med      int `mapstructure:"med"`
	High     int `mapstructure:"high"`
	Critical int `mapstructure:"critical"`
}

// For returns the breakpoint of tier t. TierBelowLow has no breakpoint and
// reports false.
func (t Thresholds) For(tier Tier) (int, bool) {
	switch tier {
	case TierLow:
		return t.Low, true
	case TierMed:
		return t.Med, true
	case TierHigh:
		return t.High, true
	case TierCritical:
		return t.Critical, true
	default:
		return 0, false
	}
}

// Reaches reports whether temp meets or exceeds the breakpoint of tier
func (t Thresholds) Reaches(temp int, tier Tier) bool {
	threshold, ok := t.For(tier)
	return ok && temp >= threshold
}

// Speeds holds the fan percentage for each tier
type Speeds struct {
	Low      int `mapstructure:"low"`
	Med      int `mapstructure:"med"`
	High     int `mapstructure:"high"`
	Critical int `mapstructure:"critical"`
}

// For returns the speed of tier; below-low uses the low speed
func (s Speeds) For(tier Tier) int {
	switch tier {
	case TierCritical:
		return s.Critical
	case TierHigh:
		return s.High
	case TierMed:
		return s.Med
	default:
		return s.Low
	}
}

// TierOf returns the first tier, least severe first, configured with speed
func (s Speeds) TierOf(speed int) (Tier, bool) {
	for _, tier := range Tiers {
		if s.For(tier) == speed {
			return tier, true
		}
	}

	return TierBelowLow, false
}

// Policy is the immutable configuration the engine decides against
type Policy struct {
	GPU    Thresholds
	System Thresholds
	Speeds Speeds
	// AutoThreshold hands control back to the hardware when either domain reaches it.
	AutoThreshold int
	// GPUOverride makes GPU temperature authoritative once it clears GPU.Low.
	GPUOverride bool
}

// DefaultPolicy returns the stock thresholds for a GPU-equipped R730
func DefaultPolicy() Policy {
	return Policy{
		GPU:           Thresholds{Low: 50, Med: 60, High: 70, Critical: 80},
		System:        Thresholds{Low: 40, Med: 50, High: 60, Critical: 70},
		Speeds:        Speeds{Low: 20, Med: 40, High: 60, Critical: 80},
		AutoThreshold: 75,
		GPUOverride:   true,
	}
}
