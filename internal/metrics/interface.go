package metrics

import (
	"context"
	"time"
)

// MetricsCollector publishes the outcome of a control cycle
type MetricsCollector interface {
	Record(ctx context.Context, snapshot *MetricsSnapshot) error
	Close() error
}

// MetricsSnapshot is the state of one control cycle
type MetricsSnapshot struct {
	Timestamp   time.Time
	Temperature TempMetrics
	FanSpeed    FanMetrics
	SystemState StateMetrics
}

type TempMetrics struct {
	MaxGPU    int
	MaxSystem int
	GPU       []int
	System    []int
}

type FanMetrics struct {
	AverageRPM int
	// Commanded is the percent set this cycle, 0 in automatic mode
	Commanded int
	RPM       []FanReading
	Percent   []FanReading
}

// FanReading is one fan's value, keyed by its sensor index
type FanReading struct {
	Fan   int
	Value int
}

type StateMetrics struct {
	AutoFanControl bool
	GPUOverride    bool
	Success        bool
}
