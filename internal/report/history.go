package report

import (
	"fmt"
	"slices"

	"codeberg.org/mutker/thermalctl/internal/sensors"
	"codeberg.org/mutker/thermalctl/internal/telemetry"
)

// NotFound reports a missing data log under the given title
func (p *Printer) NotFound(title, path string) {
	p.banner(title, ruleWidth)
	p.printf("Data log not found: %s\n", path)
}

// History prints the last n cycle records, oldest first
func (p *Printer) History(records []telemetry.Record, n int) {
	p.banner(fmt.Sprintf("Temperature History (last %d entries)", n), ruleWidth)

	if len(records) == 0 {
		p.println("No cycle records found in data log.")
		p.closing(ruleWidth)
		return
	}

	for _, rec := range tail(records, n) {
		p.printf("%s  GPU max %d°C | System max %d°C | Fans %d RPM | %s\n",
			rec.Timestamp.Format(timeLayout), rec.MaxGPU, rec.MaxSystem, rec.AvgFanRPM, action(&rec))
	}
	p.closing(ruleWidth)
}

// DetailedHistory prints per-sensor GPU, system and fan histories. Each
// section shows its most recent entries that carry readings.
func (p *Printer) DetailedHistory(records []telemetry.Record, hours int) {
	p.banner(fmt.Sprintf("Detailed Temperature History (last %d hours)", hours), ruleWidth)

	p.println("")
	p.println(p.section.Render("GPU Temperature History:"))
	p.series(records, func(r *telemetry.Record) []int { return r.GPUTemps }, func(values []int) string {
		return fmt.Sprintf("%s°C (max: %d°C)", sensors.Join(values), slices.Max(values))
	}, "No GPU temperature data found")

	p.println("")
	p.println(p.section.Render("System Temperature History:"))
	p.series(records, func(r *telemetry.Record) []int { return r.SystemTemps }, func(values []int) string {
		return fmt.Sprintf("%s°C (max: %d°C)", sensors.Join(values), slices.Max(values))
	}, "No system temperature data found")

	p.println("")
	p.println(p.section.Render("Fan Speed History:"))
	p.series(records, func(r *telemetry.Record) []int { return r.FanSpeeds }, func(values []int) string {
		return fmt.Sprintf("%s RPM (avg: %d RPM)", sensors.Join(values), average(values))
	}, "No fan speed data found")

	p.closing(ruleWidth)
}

func (p *Printer) series(records []telemetry.Record, pick func(*telemetry.Record) []int, render func([]int) string, empty string) {
	var withData []telemetry.Record
	for i := range records {
		if len(pick(&records[i])) > 0 {
			withData = append(withData, records[i])
		}
	}

	if len(withData) == 0 {
		p.printf("  %s\n", empty)
		return
	}

	for _, rec := range tail(withData, detailedRecent) {
		p.printf("  %s: %s\n", rec.Timestamp.Format(timeLayout), render(pick(&rec)))
	}
}

func action(rec *telemetry.Record) string {
	if rec.Automatic() {
		return "Automatic"
	}
	return fmt.Sprintf("Manual %d%%", rec.SpeedPercent)
}

func tail[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[len(items)-n:]
}

func average(values []int) int {
	if len(values) == 0 {
		return 0
	}

	sum := 0
	for _, v := range values {
		sum += v
	}
	return sum / len(values)
}
