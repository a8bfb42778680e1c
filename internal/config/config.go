// Package config loads settings from defaults, a TOML file, the environment
// and command line flags, in increasing order of precedence.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/thermalctl/internal/decision"
	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/ipmi"
	"codeberg.org/mutker/thermalctl/internal/learn"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/metrics"
	"codeberg.org/mutker/thermalctl/internal/sensors"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultConfigFile  = "/etc/thermalctl.toml"
	configEnvVar       = "THERMALCTL_CONFIG"
	envPrefix          = "THERMALCTL"
	defaultLogFile     = "/var/log/thermalctl.log"
	defaultDataLogFile = "/var/log/thermalctl-data.log"

	DefaultHistoryEntries = 50
	DefaultHistoryHours   = 24
)

// Mode selects what a thermalctl invocation does
type Mode int

const (
	ModeControl Mode = iota
	ModeTemps
	ModeFans
	ModeHistory
	ModeHistoryDetailed
)

func (m Mode) ReadOnly() bool {
	return m != ModeControl
}

type Config struct {
	// ConfigFile is the file that was read, empty when none was found
	ConfigFile  string
	LogLevel    string        `mapstructure:"log_level"`
	LogFile     string        `mapstructure:"log_file"`
	DataLogFile string        `mapstructure:"data_log_file"`
	SysfsRoot   string        `mapstructure:"sysfs_root"`
	ToolTimeout time.Duration `mapstructure:"tool_timeout"`

	GPU           decision.Thresholds `mapstructure:"gpu"`
	System        decision.Thresholds `mapstructure:"system"`
	Speeds        decision.Speeds     `mapstructure:"speeds"`
	AutoThreshold int                 `mapstructure:"auto_threshold"`
	GPUOverride   bool                `mapstructure:"gpu_override"`

	IPMI    ipmi.Config    `mapstructure:"ipmi"`
	Metrics metrics.Config `mapstructure:"metrics"`
	Learn   learn.Config   `mapstructure:"learn"`

	Mode         Mode `mapstructure:"-"`
	HistoryCount int  `mapstructure:"-"`
	HistoryHours int  `mapstructure:"-"`
}

// Policy is the decision engine view of the configuration
func (c *Config) Policy() decision.Policy {
	return decision.Policy{
		GPU:           c.GPU,
		System:        c.System,
		Speeds:        c.Speeds,
		AutoThreshold: c.AutoThreshold,
		GPUOverride:   c.GPUOverride,
	}
}

// Level parses LogLevel. An empty level picks info for control cycles and
// warning for read-only modes.
func (c *Config) Level() (logger.LogLevel, error) {
	if c.LogLevel == "" {
		if c.Mode.ReadOnly() {
			return logger.WarnLevel, nil
		}
		return logger.InfoLevel, nil
	}

	return logger.ParseLevel(c.LogLevel)
}

// Validate only checks the log level; threshold ordering is the operator's
// responsibility.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if _, err := c.Level(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if err := c.Learn.Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	policy := decision.DefaultPolicy()
	ipmiDefaults := ipmi.DefaultConfig()
	learnDefaults := learn.DefaultConfig()

	v.SetDefault("log_level", "")
	v.SetDefault("log_file", defaultLogFile)
	v.SetDefault("data_log_file", defaultDataLogFile)
	v.SetDefault("sysfs_root", sensors.DefaultSysfsRoot)
	v.SetDefault("tool_timeout", sensors.DefaultToolTimeout)

	for domain, th := range map[string]decision.Thresholds{"gpu": policy.GPU, "system": policy.System} {
		v.SetDefault(domain+".low", th.Low)
		v.SetDefault(domain+".med", th.Med)
		v.SetDefault(domain+".high", th.High)
		v.SetDefault(domain+".critical", th.Critical)
	}
	v.SetDefault("speeds.low", policy.Speeds.Low)
	v.SetDefault("speeds.med", policy.Speeds.Med)
	v.SetDefault("speeds.high", policy.Speeds.High)
	v.SetDefault("speeds.critical", policy.Speeds.Critical)
	v.SetDefault("auto_threshold", policy.AutoThreshold)
	v.SetDefault("gpu_override", policy.GPUOverride)

	v.SetDefault("ipmi.host", ipmiDefaults.Host)
	v.SetDefault("ipmi.user", ipmiDefaults.User)
	v.SetDefault("ipmi.password", ipmiDefaults.Password)
	v.SetDefault("ipmi.timeout", ipmiDefaults.Timeout)
	v.SetDefault("ipmi.retries", ipmiDefaults.Retries)

	v.SetDefault("metrics.textfile", metrics.DefaultConfig().Textfile)

	v.SetDefault("learn.window", learnDefaults.Window)
	v.SetDefault("learn.min_records", learnDefaults.MinRecords)
	v.SetDefault("learn.stability", learnDefaults.Stability)
}

// envAliases maps keys to the variable names deployments already use
var envAliases = map[string]string{
	"gpu.low":         "GPU_TEMP_LOW",
	"gpu.med":         "GPU_TEMP_MED",
	"gpu.high":        "GPU_TEMP_HIGH",
	"gpu.critical":    "GPU_TEMP_CRITICAL",
	"system.low":      "SYSTEM_TEMP_LOW",
	"system.med":      "SYSTEM_TEMP_MED",
	"system.high":     "SYSTEM_TEMP_HIGH",
	"system.critical": "SYSTEM_TEMP_CRITICAL",
	"speeds.low":      "FAN_SPEED_LOW",
	"speeds.med":      "FAN_SPEED_MED",
	"speeds.high":     "FAN_SPEED_HIGH",
	"speeds.critical": "FAN_SPEED_CRITICAL",
	"auto_threshold":  "AUTO_MODE_THRESHOLD",
	"gpu_override":    "GPU_TEMP_OVERRIDE",
	"ipmi.host":       "IDRAC_IP",
	"ipmi.user":       "IDRAC_USER",
	"ipmi.password":   "IDRAC_PASS",
	"ipmi.timeout":    "IPMI_TIMEOUT",
	"ipmi.retries":    "IPMI_RETRIES",
	"log_file":        "LOG_FILE",
	"data_log_file":   "DATA_LOG_FILE",
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range envAliases {
		if err := v.BindEnv(key, name); err != nil {
			return err
		}
	}

	return nil
}

type flagValues struct {
	configFile string
	debug      bool
	temps      bool
	fans       bool
	history    int
	detailed   int
}

func newFlagSet(name string, fv *flagValues) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.StringVar(&fv.configFile, "config", "", "Path to the TOML configuration file")
	fs.String("log-level", "", "Log level (debug, info, warning, error)")
	fs.BoolVar(&fv.debug, "debug", false, "Shorthand for --log-level=debug")
	fs.String("log-file", "", "Operational log file")
	fs.String("data-log-file", "", "Structured cycle record log")
	fs.String("sysfs-root", "", "Root of the sysfs tree used for hwmon readings")
	fs.String("metrics-textfile", "", "node_exporter textfile output (*.prom)")
	fs.Duration("window", 0, "Analysis window for thermallearn")

	fs.BoolVar(&fv.temps, "temps", false, "Display current temperatures (read-only)")
	fs.BoolVar(&fv.temps, "check-temps", false, "Alias of --temps")
	fs.BoolVar(&fv.fans, "fans", false, "Display current fan speeds (read-only)")
	fs.BoolVar(&fv.fans, "check-fans", false, "Alias of --fans")
	fs.IntVar(&fv.history, "history", 0, "Show the last N cycle records")
	fs.IntVar(&fv.detailed, "history-detailed", 0, "Show detailed history for the last HOURS")
	fs.Lookup("history").NoOptDefVal = strconv.Itoa(DefaultHistoryEntries)
	fs.Lookup("history-detailed").NoOptDefVal = strconv.Itoa(DefaultHistoryHours)
	_ = fs.MarkHidden("check-temps")
	_ = fs.MarkHidden("check-fans")

	return fs
}

var flagKeys = map[string]string{
	"log-level":        "log_level",
	"log-file":         "log_file",
	"data-log-file":    "data_log_file",
	"sysfs-root":       "sysfs_root",
	"metrics-textfile": "metrics.textfile",
	"window":           "learn.window",
}

// Load builds the configuration for one invocation. name is the program
// name used in usage output; args excludes it.
func Load(name string, args []string) (*Config, error) {
	errFactory := errors.New()
	v := viper.New()
	setDefaults(v)

	var fv flagValues
	fs := newFlagSet(name, &fv)
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrParseFlags, err)
	}

	for flagName, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	if err := bindEnv(v); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	configFile, err := readConfigFile(v, fv.configFile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		durationHook,
		boolHook,
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.ConfigFile = configFile

	if fv.debug {
		cfg.LogLevel = "debug"
	}
	applyMode(cfg, fs, &fv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readConfigFile reads an explicit file (flag, then environment) or the
// default location. Only an explicitly named file is required to exist.
func readConfigFile(v *viper.Viper, flagPath string) (string, error) {
	errFactory := errors.New()

	path := flagPath
	if path == "" {
		path = os.Getenv(configEnvVar)
	}
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return path, nil
}

// applyMode picks the invocation mode from the mode flags. `--history 100`
// is accepted as well as `--history=100`, since pflag only attaches values
// to optional-value flags with '='.
func applyMode(cfg *Config, fs *pflag.FlagSet, fv *flagValues) {
	positional := func(fallback int) int {
		if fs.NArg() > 0 {
			if n, err := strconv.Atoi(fs.Arg(0)); err == nil && n > 0 {
				return n
			}
		}
		return fallback
	}

	switch {
	case fv.temps:
		cfg.Mode = ModeTemps
	case fv.fans:
		cfg.Mode = ModeFans
	case fs.Changed("history"):
		cfg.Mode = ModeHistory
		cfg.HistoryCount = fv.history
		if fs.Lookup("history").Value.String() == fs.Lookup("history").NoOptDefVal {
			cfg.HistoryCount = positional(fv.history)
		}
	case fs.Changed("history-detailed"):
		cfg.Mode = ModeHistoryDetailed
		cfg.HistoryHours = fv.detailed
		if fs.Lookup("history-detailed").Value.String() == fs.Lookup("history-detailed").NoOptDefVal {
			cfg.HistoryHours = positional(fv.detailed)
		}
	default:
		cfg.Mode = ModeControl
	}
}

var durationType = reflect.TypeOf(time.Duration(0))

// durationHook accepts bare numbers as seconds ("20", 20) and a day suffix
// ("7d") in addition to Go duration strings.
func durationHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType || from == durationType {
		return data, nil
	}

	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
	case reflect.String:
		return parseDuration(data.(string))
	default:
		return data, nil
	}
}

// boolHook reads switch strings from the environment: true, 1, yes and on
// (any case) enable, everything else disables.
func boolHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Bool || from.Kind() != reflect.String {
		return data, nil
	}

	switch strings.ToLower(strings.TrimSpace(data.(string))) {
	case "true", "1", "yes", "on":
		return true, nil
	default:
		return false, nil
	}
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}
