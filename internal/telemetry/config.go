package telemetry

import "codeberg.org/mutker/thermalctl/internal/errors"

const (
	defaultDirPerm     = 0o755
	defaultFilePerm    = 0o644
	defaultDataLogFile = "/var/log/thermalctl-data.log"
)

type Config struct {
	// DataLogFile is the append-only record log. Empty disables recording.
	DataLogFile string
}

func DefaultConfig() Config {
	return Config{
		DataLogFile: defaultDataLogFile,
	}
}

func (c Config) Enabled() bool {
	return c.DataLogFile != ""
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Enabled() && c.DataLogFile[len(c.DataLogFile)-1] == '/' {
		return errFactory.WithData(ErrInvalidDataLogPath, c.DataLogFile)
	}
	return nil
}
