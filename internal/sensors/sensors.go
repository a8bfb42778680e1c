// Package sensors acquires GPU temperatures, system temperatures and fan
// speeds through ordered fallback chains of independent sources.
package sensors

import (
	"context"
	"strconv"
	"strings"
)

// Origin tags where a temperature came from
type Origin string

const (
	OriginGPU    Origin = "gpu"
	OriginSystem Origin = "system"
)

// Temperature is one reading in whole degrees Celsius
type Temperature struct {
	Origin  Origin
	Index   int
	Celsius int
}

// Unit of a fan reading. Some management controllers only report duty cycle.
type Unit string

const (
	UnitRPM     Unit = "RPM"
	UnitPercent Unit = "%"
)

// FanSpeed is one fan reading
type FanSpeed struct {
	Index int
	Value int
	Unit  Unit
}

const (
	minValidCelsius = -50
	maxValidCelsius = 200
	maxValidRPM     = 50000
)

// ValidTemperature rejects physically impossible readings
func ValidTemperature(t Temperature) bool {
	return t.Celsius > minValidCelsius && t.Celsius < maxValidCelsius
}

// ValidFanSpeed rejects stopped, missing or impossible fan readings
func ValidFanSpeed(f FanSpeed) bool {
	if f.Unit == UnitPercent {
		return f.Value >= 0 && f.Value <= 100
	}

	return f.Value > 0 && f.Value < maxValidRPM
}

// Celsius extracts the values of temps in order
func Celsius(temps []Temperature) []int {
	values := make([]int, len(temps))
	for i, t := range temps {
		values[i] = t.Celsius
	}

	return values
}

// Values extracts the raw values of fans in order
func Values(fans []FanSpeed) []int {
	values := make([]int, len(fans))
	for i, f := range fans {
		values[i] = f.Value
	}

	return values
}

// AverageRPM is the integer mean of the RPM-unit readings, or 0 if there are none
func AverageRPM(fans []FanSpeed) int {
	sum, n := 0, 0
	for _, f := range fans {
		if f.Unit != UnitRPM {
			continue
		}
		sum += f.Value
		n++
	}
	if n == 0 {
		return 0
	}

	return sum / n
}

// Join renders values comma-separated, the way operational logs show them
func Join(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}

	return strings.Join(parts, ", ")
}

// Acquirer is what the control cycle needs from the sensor layer
type Acquirer interface {
	GPUTemperatures(ctx context.Context) []Temperature
	SystemTemperatures(ctx context.Context) []Temperature
	FanSpeeds(ctx context.Context) []FanSpeed
}
