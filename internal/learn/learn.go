// Package learn mines the cycle record log for threshold suggestions. It is
// advisory: nothing here writes configuration.
package learn

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"codeberg.org/mutker/thermalctl/internal/decision"
	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/telemetry"
)

// Bucket summarizes the manual-mode cycles that ran at one speed
type Bucket struct {
	SpeedPercent int
	Samples      int
	MeanTemp     float64
	StdDev       float64
	MeanRPM      float64
	MinTemp      int
	MaxTemp      int
	// Domain supplied the cycle maximum in most samples; ties go to GPU
	Domain decision.Domain
	// temps is every sample's max temperature in timestamp order
	temps []int
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// Suggestion proposes a new breakpoint for one tier of one domain
type Suggestion struct {
	Domain       decision.Domain
	Tier         decision.Tier
	SpeedPercent int
	Current      int
	Suggested    int
	MeanTemp     float64
	StdDev       float64
	Samples      int
	Confidence   Confidence
}

// Setting names the threshold the way the environment spells it, e.g. GPU_TEMP_HIGH
func (s Suggestion) Setting() string {
	prefix := "SYSTEM"
	if s.Domain == decision.DomainGPU {
		prefix = "GPU"
	}

	return fmt.Sprintf("%s_TEMP_%s", prefix, strings.ToUpper(s.Tier.String()))
}

func (s Suggestion) Reason() string {
	return fmt.Sprintf("Fan speed %d%% maintains stable temp at %.1f°C (±%.1f°C)", s.SpeedPercent, s.MeanTemp, s.StdDev)
}

type TrendIssue string

const (
	FanTooLow  TrendIssue = "fan_too_low"
	FanTooHigh TrendIssue = "fan_too_high"
)

// Trend flags a speed whose recent temperatures drifted from its early ones
type Trend struct {
	SpeedPercent int
	Issue        TrendIssue
	// Delta is recent mean minus early mean
	Delta      float64
	RecentMean float64
}

func (t Trend) Advice() string {
	if t.Issue == FanTooLow {
		return fmt.Sprintf("Consider increasing fan speed from %d%% or lowering temperature threshold", t.SpeedPercent)
	}

	return fmt.Sprintf("Consider decreasing fan speed from %d%% or raising temperature threshold", t.SpeedPercent)
}

// Report is the full outcome of one analysis
type Report struct {
	Total   int
	Skipped int
	From    time.Time
	To      time.Time
	// Statistics of max(maxGPU, maxSystem) over every in-window record
	MeanMaxTemp float64
	MinMaxTemp  int
	MaxMaxTemp  int

	Buckets     []Bucket
	Trends      []Trend
	Suggestions []Suggestion
	// Sufficient is false when the analyses abstained for lack of data
	Sufficient bool
	Message    string
}

type Analyzer struct {
	cfg    Config
	policy decision.Policy
	now    func() time.Time
}

type Option func(*Analyzer)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

func New(cfg Config, policy decision.Policy, opts ...Option) *Analyzer {
	a := &Analyzer{cfg: cfg, policy: policy, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Since is the start of the analysis window
func (a *Analyzer) Since() time.Time {
	return a.now().Add(-a.cfg.Window)
}

// AnalyzeFile reads the data log and analyzes the in-window records. A
// missing log is not an error; it yields an empty report.
func (a *Analyzer) AnalyzeFile(path string) (Report, error) {
	result, err := telemetry.ReadRecords(path, a.Since())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return a.Analyze(nil), nil
		}
		return Report{}, errors.New().Wrap(ErrReadFailed, err)
	}

	report := a.Analyze(result.Records)
	report.Skipped = result.Skipped

	return report, nil
}

// Analyze runs both analyses over records, ignoring any outside the window
func (a *Analyzer) Analyze(records []telemetry.Record) Report {
	since := a.Since()
	inWindow := make([]telemetry.Record, 0, len(records))
	for _, rec := range records {
		if !rec.Timestamp.Before(since) {
			inWindow = append(inWindow, rec)
		}
	}
	sort.SliceStable(inWindow, func(i, j int) bool {
		return inWindow[i].Timestamp.Before(inWindow[j].Timestamp)
	})

	report := Report{Total: len(inWindow)}
	if len(inWindow) == 0 {
		report.Message = "No data available for analysis"
		return report
	}

	report.From = inWindow[0].Timestamp
	report.To = inWindow[len(inWindow)-1].Timestamp

	maxTemps := make([]int, len(inWindow))
	floats := make([]float64, len(inWindow))
	for i, rec := range inWindow {
		maxTemps[i] = recordMax(rec)
		floats[i] = float64(maxTemps[i])
	}
	report.MeanMaxTemp = mean(floats)
	report.MinMaxTemp, report.MaxMaxTemp = minMax(maxTemps)

	report.Buckets = buckets(inWindow, minBucketSamples)

	if len(inWindow) < a.cfg.MinRecords {
		report.Message = fmt.Sprintf("Insufficient data: %d points (need %d)", len(inWindow), a.cfg.MinRecords)
		return report
	}

	report.Sufficient = true
	report.Suggestions = a.suggest(report.Buckets)
	report.Trends = trends(buckets(inWindow, trendSamples))
	report.Message = fmt.Sprintf("Analyzed %d data points", len(inWindow))

	return report
}

func (a *Analyzer) suggest(buckets []Bucket) []Suggestion {
	var suggestions []Suggestion
	for _, b := range buckets {
		if b.StdDev >= a.cfg.Stability {
			continue
		}

		tier, ok := a.policy.Speeds.TierOf(b.SpeedPercent)
		if !ok {
			continue
		}

		thresholds := a.policy.System
		if b.Domain == decision.DomainGPU {
			thresholds = a.policy.GPU
		}
		current, _ := thresholds.For(tier)

		suggested := int(math.Round(b.MeanTemp + 2*b.StdDev))
		if abs(suggested-current) <= suggestionMargin {
			continue
		}

		confidence := ConfidenceMedium
		if b.Samples > highConfidenceSamples {
			confidence = ConfidenceHigh
		}

		suggestions = append(suggestions, Suggestion{
			Domain:       b.Domain,
			Tier:         tier,
			SpeedPercent: b.SpeedPercent,
			Current:      current,
			Suggested:    suggested,
			MeanTemp:     b.MeanTemp,
			StdDev:       b.StdDev,
			Samples:      b.Samples,
			Confidence:   confidence,
		})
	}

	return suggestions
}

// buckets groups manual-mode records by commanded speed, dropping groups
// smaller than minSamples. Records must already be in timestamp order.
func buckets(records []telemetry.Record, minSamples int) []Bucket {
	grouped := make(map[int][]telemetry.Record)
	for _, rec := range records {
		if rec.SpeedPercent <= 0 {
			continue
		}
		grouped[rec.SpeedPercent] = append(grouped[rec.SpeedPercent], rec)
	}

	var result []Bucket
	for speed, recs := range grouped {
		if len(recs) < minSamples {
			continue
		}
		result = append(result, newBucket(speed, recs))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SpeedPercent < result[j].SpeedPercent
	})

	return result
}

func newBucket(speed int, recs []telemetry.Record) Bucket {
	temps := make([]int, len(recs))
	floats := make([]float64, len(recs))
	rpms := make([]float64, len(recs))
	gpuWins := 0
	for i, rec := range recs {
		temps[i] = recordMax(rec)
		floats[i] = float64(temps[i])
		rpms[i] = float64(rec.AvgFanRPM)
		if rec.MaxGPU >= rec.MaxSystem {
			gpuWins++
		}
	}

	domain := decision.DomainSystem
	if gpuWins*2 >= len(recs) {
		domain = decision.DomainGPU
	}

	lo, hi := minMax(temps)

	return Bucket{
		SpeedPercent: speed,
		Samples:      len(recs),
		MeanTemp:     mean(floats),
		StdDev:       stddev(floats),
		MeanRPM:      mean(rpms),
		MinTemp:      lo,
		MaxTemp:      hi,
		Domain:       domain,
		temps:        temps,
	}
}

func trends(buckets []Bucket) []Trend {
	var result []Trend
	for _, b := range buckets {
		n := len(b.temps)
		recent := toFloats(b.temps[n-trendSamples:])

		earlyCount := n / 2
		if n >= 2*trendSamples {
			earlyCount = trendSamples
		}
		early := toFloats(b.temps[:earlyCount])

		recentMean := mean(recent)
		delta := recentMean - mean(early)

		switch {
		case delta > trendDelta:
			result = append(result, Trend{SpeedPercent: b.SpeedPercent, Issue: FanTooLow, Delta: delta, RecentMean: recentMean})
		case delta < -trendDelta:
			result = append(result, Trend{SpeedPercent: b.SpeedPercent, Issue: FanTooHigh, Delta: delta, RecentMean: recentMean})
		}
	}

	return result
}

func recordMax(rec telemetry.Record) int {
	return max(rec.MaxGPU, rec.MaxSystem)
}

func toFloats(values []int) []float64 {
	floats := make([]float64, len(values))
	for i, v := range values {
		floats[i] = float64(v)
	}

	return floats
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
