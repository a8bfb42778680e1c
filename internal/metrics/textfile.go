package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "thermalctl"

// buildRegistry renders a snapshot into a fresh registry. Each cycle replaces
// the whole textfile, so there is no state to carry between runs.
func buildRegistry(snapshot *MetricsSnapshot) (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()

	gauges := []struct {
		opts  prometheus.GaugeOpts
		value float64
	}{
		{prometheus.GaugeOpts{Subsystem: "gpu", Name: "temperature_max_celsius", Help: "Hottest GPU reading of the last cycle."}, float64(snapshot.Temperature.MaxGPU)},
		{prometheus.GaugeOpts{Subsystem: "system", Name: "temperature_max_celsius", Help: "Hottest system reading of the last cycle."}, float64(snapshot.Temperature.MaxSystem)},
		{prometheus.GaugeOpts{Subsystem: "fan", Name: "speed_average_rpm", Help: "Average chassis fan speed of the last cycle."}, float64(snapshot.FanSpeed.AverageRPM)},
		{prometheus.GaugeOpts{Subsystem: "fan", Name: "commanded_percent", Help: "Fan duty cycle commanded by the last cycle, 0 in automatic mode."}, float64(snapshot.FanSpeed.Commanded)},
		{prometheus.GaugeOpts{Subsystem: "fan", Name: "automatic_mode", Help: "Whether the last cycle handed fan control to the management controller."}, boolToFloat(snapshot.SystemState.AutoFanControl)},
		{prometheus.GaugeOpts{Subsystem: "cycle", Name: "gpu_override", Help: "Whether the GPU override decided the last cycle."}, boolToFloat(snapshot.SystemState.GPUOverride)},
		{prometheus.GaugeOpts{Subsystem: "cycle", Name: "success", Help: "Whether the last cycle completed."}, boolToFloat(snapshot.SystemState.Success)},
		{prometheus.GaugeOpts{Subsystem: "cycle", Name: "last_run_timestamp_seconds", Help: "Unix time of the last cycle."}, float64(snapshot.Timestamp.Unix())},
	}

	for _, g := range gauges {
		g.opts.Namespace = namespace
		gauge := prometheus.NewGauge(g.opts)
		gauge.Set(g.value)
		if err := registry.Register(gauge); err != nil {
			return nil, err
		}
	}

	vecs := []struct {
		opts   prometheus.GaugeOpts
		label  string
		values []reading
	}{
		{prometheus.GaugeOpts{Subsystem: "gpu", Name: "temperature_celsius", Help: "GPU temperature by device index."}, "gpu", indexed(snapshot.Temperature.GPU)},
		{prometheus.GaugeOpts{Subsystem: "system", Name: "temperature_celsius", Help: "System temperature by sensor index."}, "sensor", indexed(snapshot.Temperature.System)},
		{prometheus.GaugeOpts{Subsystem: "fan", Name: "speed_rpm", Help: "Chassis fan speed by fan index."}, "fan", fanReadings(snapshot.FanSpeed.RPM)},
		{prometheus.GaugeOpts{Subsystem: "fan", Name: "duty_percent", Help: "Chassis fan duty cycle by fan index, for controllers that only report percent."}, "fan", fanReadings(snapshot.FanSpeed.Percent)},
	}

	for _, v := range vecs {
		if len(v.values) == 0 {
			continue
		}
		v.opts.Namespace = namespace
		vec := prometheus.NewGaugeVec(v.opts, []string{v.label})
		for _, r := range v.values {
			vec.WithLabelValues(strconv.Itoa(r.index)).Set(float64(r.value))
		}
		if err := registry.Register(vec); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

type reading struct {
	index int
	value int
}

func indexed(values []int) []reading {
	readings := make([]reading, len(values))
	for i, v := range values {
		readings[i] = reading{index: i, value: v}
	}

	return readings
}

func fanReadings(fans []FanReading) []reading {
	readings := make([]reading, len(fans))
	for i, f := range fans {
		readings[i] = reading{index: f.Fan, value: f.Value}
	}

	return readings
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
