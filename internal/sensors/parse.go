package sensors

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	signedCelsiusRegex = regexp.MustCompile(`([+\-]?\d+(?:\.\d+)?)\s*°?C`)
	strictCelsiusRegex = regexp.MustCompile(`([+\-]?\d+(?:\.\d+)?)\s*°C`)
	intelCelsiusRegex  = regexp.MustCompile(`(?i)(\d+)\s*°?C`)
	rpmRegex           = regexp.MustCompile(`(?i)(\d+)\s*RPM`)
	sdrDegreesRegex    = regexp.MustCompile(`(?i)(\d+)\s*degrees`)
	sdrFanRegex        = regexp.MustCompile(`(?i)(\d+)\s*(RPM|%)`)
	gpuKeywords        = []string{"gpu", "radeon", "amdgpu", "intel", "graphics"}
)

// ParseNvidiaSMI reads `nvidia-smi --query-gpu=temperature.gpu
// --format=csv,noheader,nounits` output: one integer per GPU per line.
func ParseNvidiaSMI(out string) []int {
	var temps []int
	for _, line := range splitLines(out) {
		if v, err := strconv.Atoi(line); err == nil {
			temps = append(temps, v)
		}
	}

	return temps
}

// ParseRocmSMI reads `rocm-smi --showtemp --csv` output, taking the second
// column of each data row and skipping header rows.
func ParseRocmSMI(out string) []int {
	var temps []int
	for _, line := range splitLines(out) {
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		if strings.Contains(strings.ToLower(parts[1]), "temperature") {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}
		temps = append(temps, int(v))
	}

	return temps
}

// ParseIntelGPUTop scrapes temperature lines out of `intel_gpu_top -l 1`
func ParseIntelGPUTop(out string) []int {
	var temps []int
	for _, line := range splitLines(out) {
		if !strings.Contains(strings.ToLower(line), "temp") {
			continue
		}
		if m := intelCelsiusRegex.FindStringSubmatch(line); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil {
				temps = append(temps, v)
			}
		}
	}

	return temps
}

// ParseSensorsGPU scrapes GPU-labelled temperature lines out of lm-sensors output
func ParseSensorsGPU(out string) []int {
	var temps []int
	for _, line := range splitLines(out) {
		if !containsAny(strings.ToLower(line), gpuKeywords) {
			continue
		}
		if v, ok := firstCelsius(signedCelsiusRegex, line); ok {
			temps = append(temps, v)
		}
	}

	return temps
}

// ParseSensorsTemps takes every line of lm-sensors output that carries a
// degrees-Celsius reading.
func ParseSensorsTemps(out string) []int {
	var temps []int
	for _, line := range splitLines(out) {
		if !strings.Contains(line, "°C") {
			continue
		}
		if v, ok := firstCelsius(strictCelsiusRegex, line); ok {
			temps = append(temps, v)
		}
	}

	return temps
}

// ParseSensorsFans takes fan lines reporting RPM out of lm-sensors output
func ParseSensorsFans(out string) []FanSpeed {
	var fans []FanSpeed
	for _, line := range splitLines(out) {
		if !strings.Contains(strings.ToLower(line), "fan") || !strings.Contains(strings.ToUpper(line), "RPM") {
			continue
		}
		m := rpmRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if v, err := strconv.Atoi(m[1]); err == nil {
			fans = append(fans, FanSpeed{Value: v, Unit: UnitRPM})
		}
	}

	return fans
}

// ParseSDRTemps reads temperature rows of `ipmitool sdr list`, e.g.
// "Inlet Temp       | 23 degrees C      | ok".
func ParseSDRTemps(out string) []int {
	var temps []int
	for _, line := range splitLines(out) {
		if !strings.Contains(line, "Temp") && !strings.Contains(strings.ToLower(line), "temperature") {
			continue
		}
		m := sdrDegreesRegex.FindStringSubmatch(sdrValue(line))
		if m == nil {
			continue
		}
		if v, err := strconv.Atoi(m[1]); err == nil {
			temps = append(temps, v)
		}
	}

	return temps
}

// ParseSDRFans reads fan rows of `ipmitool sdr list`, which report either
// RPM or a duty-cycle percentage.
func ParseSDRFans(out string) []FanSpeed {
	var fans []FanSpeed
	for _, line := range splitLines(out) {
		if !strings.Contains(line, "Fan") {
			continue
		}
		m := sdrFanRegex.FindStringSubmatch(sdrValue(line))
		if m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		unit := UnitRPM
		if m[2] == "%" {
			unit = UnitPercent
		}
		fans = append(fans, FanSpeed{Value: v, Unit: unit})
	}

	return fans
}

// sdrValue returns the reading column of a pipe-separated SDR row so that
// digits in sensor names ("Fan1 RPM") are not mistaken for readings.
func sdrValue(line string) string {
	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return line
	}

	return parts[1]
}

func firstCelsius(re *regexp.Regexp, line string) (int, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	return int(v), true
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	return lines
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}

	return false
}
