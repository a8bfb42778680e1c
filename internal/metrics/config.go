package metrics

import (
	"strings"

	"codeberg.org/mutker/thermalctl/internal/errors"
)

// node_exporter's textfile collector only picks up *.prom files
const textfileSuffix = ".prom"

type Config struct {
	// Textfile is the node_exporter textfile collector output. Empty disables export.
	Textfile string `mapstructure:"textfile"`
}

func DefaultConfig() Config {
	return Config{}
}

func (c Config) Enabled() bool {
	return c.Textfile != ""
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Enabled() && !strings.HasSuffix(c.Textfile, textfileSuffix) {
		return errFactory.WithData(ErrInvalidTextfile, c.Textfile)
	}
	return nil
}
