package report

import (
	"codeberg.org/mutker/thermalctl/internal/learn"
)

// Learn prints the threshold analysis
func (p *Printer) Learn(r learn.Report) {
	p.banner("Fan Control Threshold Learning Report", wideRuleWidth)
	p.println("")

	if r.Total == 0 {
		p.println("No data available for analysis.")
		p.println("Run thermalctl normally to start collecting data.")
		p.closing(wideRuleWidth)
		return
	}

	p.println(p.section.Render("Data Analysis:"))
	p.printf("  Total data points: %d\n", r.Total)
	if r.Skipped > 0 {
		p.printf("  Unparseable lines skipped: %d\n", r.Skipped)
	}
	p.printf("  Date range: %s to %s\n", r.From.Format(timeLayout), r.To.Format(timeLayout))
	p.printf("  Average max temperature: %.1f°C\n", r.MeanMaxTemp)
	p.printf("  Temperature range: %d°C - %d°C\n", r.MinMaxTemp, r.MaxMaxTemp)
	p.println("")

	if len(r.Buckets) > 0 {
		p.println(p.section.Render("Fan Speed Efficiency Analysis:"))
		for _, b := range r.Buckets {
			p.printf("  %3d%%: Avg temp %.1f°C (±%.1f°C), Avg RPM %.0f, Range %d-%d°C, Samples: %d\n",
				b.SpeedPercent, b.MeanTemp, b.StdDev, b.MeanRPM, b.MinTemp, b.MaxTemp, b.Samples)
		}
		p.println("")
	}

	if len(r.Trends) > 0 {
		p.println(p.section.Render("Temperature Trend Analysis:"))
		for _, t := range r.Trends {
			p.printf("  Fan Speed %d%%: %s (%+.1f°C)\n", t.SpeedPercent, t.Advice(), t.Delta)
		}
		p.println("")
	}

	if len(r.Suggestions) > 0 {
		p.println(p.section.Render("Suggested Threshold Adjustments:"))
		for _, s := range r.Suggestions {
			icon := p.warn.Render("~")
			if s.Confidence == learn.ConfidenceHigh {
				icon = p.good.Render("✓")
			}
			p.printf("  %s %s: %d°C → %d°C\n", icon, s.Setting(), s.Current, s.Suggested)
			p.printf("     Reason: %s\n", s.Reason())
		}
		p.println("")
		p.println("To apply suggestions, update the configuration file or environment.")
	} else {
		p.println("No threshold adjustments suggested at this time.")
		if r.Sufficient {
			p.println("Current thresholds appear to be working well.")
		}
	}

	p.closing(wideRuleWidth)
	p.println("")
	p.printf("Analysis: %s\n", r.Message)
}
