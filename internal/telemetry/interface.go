package telemetry

import (
	"context"
	"time"
)

// Collector persists one record per control cycle
type Collector interface {
	Record(ctx context.Context, record *Record) error
	Close() error
}

// Record is one control cycle. Records are immutable once appended.
type Record struct {
	Timestamp time.Time
	MaxGPU    int
	MaxSystem int
	AvgFanRPM int
	// SpeedPercent is the commanded speed, or 0 when the cycle handed control
	// to the management controller.
	SpeedPercent int
	GPUTemps     []int
	SystemTemps  []int
	FanSpeeds    []int
}

// Automatic reports whether the cycle ran in automatic mode
func (r *Record) Automatic() bool {
	return r.SpeedPercent == 0
}

// ScanResult is the outcome of reading the data log
type ScanResult struct {
	Records []Record
	// Skipped counts lines that could not be parsed
	Skipped int
}
