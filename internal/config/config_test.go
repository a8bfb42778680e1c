package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/thermalctl/internal/config"
	"codeberg.org/mutker/thermalctl/internal/decision"
	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config lookup at a file that does not exist, so the
// host's /etc/thermalctl.toml never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("THERMALCTL_CONFIG", "")
	return dir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "thermalctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
log_level = "debug"
data_log_file = "/tmp/data.log"
auto_threshold = 78
gpu_override = false

[gpu]
low = 45
high = 72

[speeds]
critical = 90

[ipmi]
host = "192.168.1.120"
timeout = 30

[metrics]
textfile = "/var/lib/node_exporter/thermalctl.prom"

[learn]
window = "3d"
min_records = 200
`)
	t.Setenv("THERMALCTL_CONFIG", path)

	cfg, err := config.Load("thermalctl", nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/data.log", cfg.DataLogFile)
	assert.Equal(t, decision.Thresholds{Low: 45, Med: 60, High: 72, Critical: 80}, cfg.GPU)
	assert.Equal(t, decision.Speeds{Low: 20, Med: 40, High: 60, Critical: 90}, cfg.Speeds)
	assert.Equal(t, 78, cfg.AutoThreshold)
	assert.False(t, cfg.GPUOverride)
	assert.Equal(t, "192.168.1.120", cfg.IPMI.Host)
	assert.Equal(t, "root", cfg.IPMI.User)
	assert.Equal(t, 30*time.Second, cfg.IPMI.Timeout)
	assert.Equal(t, "/var/lib/node_exporter/thermalctl.prom", cfg.Metrics.Textfile)
	assert.Equal(t, 72*time.Hour, cfg.Learn.Window)
	assert.Equal(t, 200, cfg.Learn.MinRecords)
	assert.Equal(t, config.ModeControl, cfg.Mode)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)

	cfg, err := config.Load("thermalctl", []string{"--config", filepath.Join(t.TempDir(), "none.toml")})
	require.Error(t, err, "an explicitly named file must exist")
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
	assert.Nil(t, cfg)
}

func TestLoadBuiltinDefaults(t *testing.T) {
	dir := isolate(t)
	t.Setenv("THERMALCTL_CONFIG", writeConfig(t, dir, ""))

	cfg, err := config.Load("thermalctl", nil)
	require.NoError(t, err)

	assert.Equal(t, decision.DefaultPolicy(), cfg.Policy())
	assert.Equal(t, "10.1.10.20", cfg.IPMI.Host)
	assert.Equal(t, "calvin", cfg.IPMI.Password)
	assert.Equal(t, 20*time.Second, cfg.IPMI.Timeout)
	assert.Equal(t, 2, cfg.IPMI.Retries)
	assert.Equal(t, 5*time.Second, cfg.ToolTimeout)
	assert.Equal(t, "/var/log/thermalctl.log", cfg.LogFile)
	assert.Equal(t, "/var/log/thermalctl-data.log", cfg.DataLogFile)
	assert.Equal(t, "/sys", cfg.SysfsRoot)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.Equal(t, 7*24*time.Hour, cfg.Learn.Window)
	assert.Equal(t, 100, cfg.Learn.MinRecords)
	assert.InDelta(t, 2.0, cfg.Learn.Stability, 0.001)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logger.InfoLevel, level)
}

func TestLoadEnvironmentAliases(t *testing.T) {
	dir := isolate(t)
	t.Setenv("THERMALCTL_CONFIG", writeConfig(t, dir, "[gpu]\nlow = 45\n"))
	t.Setenv("GPU_TEMP_LOW", "55")
	t.Setenv("SYSTEM_TEMP_HIGH", "62")
	t.Setenv("FAN_SPEED_CRITICAL", "85")
	t.Setenv("AUTO_MODE_THRESHOLD", "77")
	t.Setenv("GPU_TEMP_OVERRIDE", "false")
	t.Setenv("IDRAC_IP", "10.0.0.9")
	t.Setenv("IDRAC_PASS", "hunter2")
	t.Setenv("IPMI_TIMEOUT", "15")
	t.Setenv("IPMI_RETRIES", "4")
	t.Setenv("DATA_LOG_FILE", "/srv/data.log")
	t.Setenv("THERMALCTL_SYSFS_ROOT", "/host/sys")

	cfg, err := config.Load("thermalctl", nil)
	require.NoError(t, err)

	assert.Equal(t, 55, cfg.GPU.Low, "environment beats the file")
	assert.Equal(t, 62, cfg.System.High)
	assert.Equal(t, 85, cfg.Speeds.Critical)
	assert.Equal(t, 77, cfg.AutoThreshold)
	assert.False(t, cfg.GPUOverride)
	assert.Equal(t, "10.0.0.9", cfg.IPMI.Host)
	assert.Equal(t, "hunter2", cfg.IPMI.Password)
	assert.Equal(t, 15*time.Second, cfg.IPMI.Timeout)
	assert.Equal(t, 4, cfg.IPMI.Retries)
	assert.Equal(t, "/srv/data.log", cfg.DataLogFile)
	assert.Equal(t, "/host/sys", cfg.SysfsRoot)
}

func TestLoadOverrideSwitchValues(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"yes", true},
		{"YES", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"no", false},
		{"off", false},
		{"garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			isolate(t)
			t.Setenv("GPU_TEMP_OVERRIDE", tt.value)

			cfg, err := config.Load("thermalctl", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.GPUOverride)
		})
	}
}

func TestLoadFlagsWin(t *testing.T) {
	dir := isolate(t)
	t.Setenv("THERMALCTL_CONFIG", writeConfig(t, dir, `data_log_file = "/from/file.log"`))
	t.Setenv("DATA_LOG_FILE", "/from/env.log")

	cfg, err := config.Load("thermalctl", []string{"--data-log-file", "/from/flag.log", "--debug"})
	require.NoError(t, err)
	assert.Equal(t, "/from/flag.log", cfg.DataLogFile)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadModes(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		mode  config.Mode
		count int
		hours int
	}{
		{name: "control", args: nil, mode: config.ModeControl},
		{name: "temps", args: []string{"--temps"}, mode: config.ModeTemps},
		{name: "temps alias", args: []string{"--check-temps"}, mode: config.ModeTemps},
		{name: "fans", args: []string{"--fans"}, mode: config.ModeFans},
		{name: "history default", args: []string{"--history"}, mode: config.ModeHistory, count: 50},
		{name: "history equals", args: []string{"--history=100"}, mode: config.ModeHistory, count: 100},
		{name: "history positional", args: []string{"--history", "100"}, mode: config.ModeHistory, count: 100},
		{name: "detailed default", args: []string{"--history-detailed"}, mode: config.ModeHistoryDetailed, hours: 24},
		{name: "detailed positional", args: []string{"--history-detailed", "12"}, mode: config.ModeHistoryDetailed, hours: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			t.Setenv("THERMALCTL_CONFIG", writeConfig(t, dir, ""))

			cfg, err := config.Load("thermalctl", tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, cfg.Mode)
			assert.Equal(t, tt.count, cfg.HistoryCount)
			assert.Equal(t, tt.hours, cfg.HistoryHours)
		})
	}
}

func TestReadOnlyModesDefaultToWarning(t *testing.T) {
	dir := isolate(t)
	t.Setenv("THERMALCTL_CONFIG", writeConfig(t, dir, ""))

	cfg, err := config.Load("thermalctl", []string{"--fans"})
	require.NoError(t, err)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logger.WarnLevel, level)
}

func TestLoadInvalidLogLevel(t *testing.T) {
	dir := isolate(t)
	t.Setenv("THERMALCTL_CONFIG", writeConfig(t, dir, `log_level = "chatty"`))

	_, err := config.Load("thermalctl", nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestLoadUnknownFlag(t *testing.T) {
	isolate(t)

	_, err := config.Load("thermalctl", []string{"--bogus"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrParseFlags))
}
