package sensors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadHwmon(t *testing.T) {
	root := t.TempDir()
	hwmon := filepath.Join(root, "class", "hwmon")

	writeFile(t, filepath.Join(hwmon, "hwmon0", "name"), "coretemp\n")
	writeFile(t, filepath.Join(hwmon, "hwmon0", "temp1_input"), "45500\n")
	writeFile(t, filepath.Join(hwmon, "hwmon0", "temp2_input"), "-1500\n")
	writeFile(t, filepath.Join(hwmon, "hwmon0", "temp3_label"), "Core 1\n")

	// sysfs exposes hwmon devices as symlinks into the device tree
	device := filepath.Join(root, "devices", "platform", "dell_smm_hwmon")
	writeFile(t, filepath.Join(device, "fan1_input"), "1200\n")
	writeFile(t, filepath.Join(device, "temp1_input"), "38000\n")
	writeFile(t, filepath.Join(device, "fan2_input"), "garbage\n")
	require.NoError(t, os.Symlink(device, filepath.Join(hwmon, "hwmon1")))

	temps, err := ReadHwmonTemperatures(root)
	require.NoError(t, err)
	assert.Equal(t, []int{45, -2, 38}, temps)

	fans, err := ReadHwmonFans(root)
	require.NoError(t, err)
	assert.Equal(t, []int{1200}, fans)
}

func TestReadHwmonMissingClass(t *testing.T) {
	_, err := ReadHwmonTemperatures(t.TempDir())
	assert.Error(t, err)
}
