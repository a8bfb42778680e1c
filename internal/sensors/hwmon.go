package sensors

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const hwmonClassPath = "class/hwmon"

// ReadHwmonTemperatures reads every temp*_input under <sysfsRoot>/class/hwmon.
// Values are millidegrees and are floored to whole degrees.
func ReadHwmonTemperatures(sysfsRoot string) ([]int, error) {
	raw, err := readHwmonInputs(sysfsRoot, "temp")
	if err != nil {
		return nil, err
	}

	temps := make([]int, 0, len(raw))
	for _, milli := range raw {
		temps = append(temps, floorDiv(milli, 1000))
	}

	return temps, nil
}

// ReadHwmonFans reads every fan*_input under <sysfsRoot>/class/hwmon, in RPM
func ReadHwmonFans(sysfsRoot string) ([]int, error) {
	return readHwmonInputs(sysfsRoot, "fan")
}

func readHwmonInputs(sysfsRoot, prefix string) ([]int, error) {
	base := filepath.Join(sysfsRoot, hwmonClassPath)
	devices, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}

	var values []int
	for _, device := range devices {
		devicePath := filepath.Join(base, device.Name())
		// hwmon entries are usually symlinks into the device tree
		if info, err := os.Stat(devicePath); err != nil || !info.IsDir() {
			continue
		}

		files, err := os.ReadDir(devicePath)
		if err != nil {
			continue
		}

		for _, file := range files {
			name := file.Name()
			if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, "_input") {
				continue
			}

			data, err := os.ReadFile(filepath.Join(devicePath, name))
			if err != nil {
				continue
			}
			v, err := strconv.Atoi(strings.TrimSpace(string(data)))
			if err != nil {
				continue
			}
			values = append(values, v)
		}
	}

	return values, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}

	return q
}
