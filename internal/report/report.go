// Package report renders the human-readable output of the read-only modes
// and of the threshold analyzer.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"codeberg.org/mutker/thermalctl/internal/decision"
	"codeberg.org/mutker/thermalctl/internal/sensors"
	"github.com/charmbracelet/lipgloss"
)

const (
	ruleWidth      = 60
	wideRuleWidth  = 70
	detailedRecent = 20
	timeLayout     = "2006-01-02 15:04:05"
)

// Printer writes reports to w. Styling degrades to plain text when w is not a
// terminal.
type Printer struct {
	w       io.Writer
	heading lipgloss.Style
	section lipgloss.Style
	rule    lipgloss.Style
	good    lipgloss.Style
	warn    lipgloss.Style
}

func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)

	return &Printer{
		w:       w,
		heading: r.NewStyle().Bold(true),
		section: r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		rule:    r.NewStyle().Faint(true),
		good:    r.NewStyle().Foreground(lipgloss.Color("2")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.w, s)
}

func (p *Printer) banner(title string, width int) {
	p.println(p.rule.Render(strings.Repeat("=", width)))
	p.println(p.heading.Render(title))
	p.println(p.rule.Render(strings.Repeat("=", width)))
}

func (p *Printer) closing(width int) {
	p.println(p.rule.Render(strings.Repeat("=", width)))
}

// Temperatures prints one reading per sensor, the maxima, the configured
// thresholds and the action a control cycle would take right now.
func (p *Printer) Temperatures(host string, gpu, system []sensors.Temperature, policy decision.Policy) {
	p.banner("Temperature Check", ruleWidth)
	p.printf("iDRAC IP: %s\n\n", host)

	gpuValues := sensors.Celsius(gpu)
	systemValues := sensors.Celsius(system)

	if len(gpu) > 0 {
		p.println(p.section.Render("GPU Temperatures:"))
		for _, t := range gpu {
			p.printf("  GPU %d: %d°C\n", t.Index, t.Celsius)
		}
		p.printf("  Max GPU: %d°C\n", slices.Max(gpuValues))
	} else {
		p.println("GPU Temperatures: No GPUs detected or GPU monitoring tools unavailable")
	}
	p.println("")

	if len(system) > 0 {
		p.println(p.section.Render("System Temperatures:"))
		for _, t := range system {
			p.printf("  Sensor %d: %d°C\n", t.Index, t.Celsius)
		}
		p.printf("  Max System: %d°C\n", slices.Max(systemValues))
	} else {
		p.println("System Temperatures: Unable to read")
	}
	p.println("")

	d := decision.Decide(policy, gpuValues, systemValues)
	p.printf("Current Max Temperature: %d°C\n", max(d.MaxGPU, d.MaxSystem))
	p.printf("Pending Action: %s (%s, %s tier)\n\n", d.Action, d.Source, d.Tier)

	p.println(p.section.Render("Temperature Thresholds:"))
	p.printf("  Low: %d°C / %d°C (GPU/System)\n", policy.GPU.Low, policy.System.Low)
	p.printf("  Medium: %d°C / %d°C\n", policy.GPU.Med, policy.System.Med)
	p.printf("  High: %d°C / %d°C\n", policy.GPU.High, policy.System.High)
	p.printf("  Critical: %d°C / %d°C\n", policy.GPU.Critical, policy.System.Critical)
	p.printf("  Auto Mode Threshold: %d°C\n", policy.AutoThreshold)
	p.printf("  GPU Override: %t\n", policy.GPUOverride)
	p.closing(ruleWidth)
}

// Fans prints per-fan readings with aggregate statistics and the configured speeds
func (p *Printer) Fans(host string, fans []sensors.FanSpeed, speeds decision.Speeds) {
	p.banner("Fan Speed Check", ruleWidth)
	p.printf("iDRAC IP: %s\n\n", host)

	if len(fans) > 0 {
		p.println(p.section.Render("Current Fan Speeds:"))
		for _, f := range fans {
			p.printf("  Fan %d: %d %s\n", f.Index+1, f.Value, f.Unit)
		}

		var rpms []int
		for _, f := range fans {
			if f.Unit == sensors.UnitRPM {
				rpms = append(rpms, f.Value)
			}
		}
		if len(rpms) > 0 {
			p.printf("  Average: %d RPM\n", sensors.AverageRPM(fans))
			p.printf("  Min: %d RPM\n", slices.Min(rpms))
			p.printf("  Max: %d RPM\n", slices.Max(rpms))
		}
	} else {
		p.println("Fan Speeds: Unable to read")
	}
	p.println("")

	p.println(p.section.Render("Configured Fan Speed Settings:"))
	p.printf("  Low: %d%%\n", speeds.Low)
	p.printf("  Medium: %d%%\n", speeds.Med)
	p.printf("  High: %d%%\n", speeds.High)
	p.printf("  Critical: %d%%\n", speeds.Critical)
	p.closing(ruleWidth)
}
