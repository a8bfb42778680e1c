package sensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNvidiaSMI(t *testing.T) {
	assert.Equal(t, []int{65, 72}, ParseNvidiaSMI("65\n72\n"))
	assert.Empty(t, ParseNvidiaSMI("NVIDIA-SMI has failed\n"))
}

func TestParseRocmSMI(t *testing.T) {
	out := "device,Temperature (Sensor edge) (C)\ncard0,45.0\ncard1,52.0\n"
	assert.Equal(t, []int{45, 52}, ParseRocmSMI(out))
}

func TestParseIntelGPUTop(t *testing.T) {
	out := "Freq MHz      IRQ RC6\nGPU temp: 55°C\n"
	assert.Equal(t, []int{55}, ParseIntelGPUTop(out))
}

func TestParseSensorsGPU(t *testing.T) {
	out := `amdgpu-pci-0300
Adapter: PCI adapter
edge:         +45.0°C  (crit = +100.0°C)
GPU Temp:     +62.0°C
Core 0:       +40.0°C
`
	assert.Equal(t, []int{62}, ParseSensorsGPU(out))
}

func TestParseSensorsTemps(t *testing.T) {
	out := `coretemp-isa-0000
Adapter: ISA adapter
Package id 0:  +52.0°C  (high = +80.0°C, crit = +100.0°C)
Core 0:        +45.0°C  (high = +80.0°C, crit = +100.0°C)
fan1:          1200 RPM
`
	assert.Equal(t, []int{52, 45}, ParseSensorsTemps(out))
}

func TestParseSensorsFans(t *testing.T) {
	out := `dell_smm-virtual-0
fan1:        1200 RPM  (min = 0 RPM)
fan2:        3400 RPM
temp1:       +40.0°C
`
	assert.Equal(t, []FanSpeed{
		{Value: 1200, Unit: UnitRPM},
		{Value: 3400, Unit: UnitRPM},
	}, ParseSensorsFans(out))
}

func TestParseSDRTemps(t *testing.T) {
	out := `Inlet Temp       | 23 degrees C      | ok
Exhaust Temp     | 38 degrees C      | ok
Temp             | disabled          | ns
Fan1 RPM         | 3600 RPM          | ok
`
	assert.Equal(t, []int{23, 38}, ParseSDRTemps(out))
}

func TestParseSDRFans(t *testing.T) {
	out := `Fan1 RPM         | 3600 RPM          | ok
Fan2             | 45 percent        | ok
Fan3             | 30 %              | ok
Fan Redundancy   | 0x00              | ok
Inlet Temp       | 23 degrees C      | ok
`
	// The digit in the sensor name must not be taken as the reading.
	assert.Equal(t, []FanSpeed{
		{Value: 3600, Unit: UnitRPM},
		{Value: 30, Unit: UnitPercent},
	}, ParseSDRFans(out))
}
