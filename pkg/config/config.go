package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/msidev/msidev/pkg/msiexec"
	"github.com/pkg/errors"
)

// DefaultPath is where Load looks when no explicit path is given,
// relative to the working directory.
const DefaultPath = "msidev.toml"

// Config holds per-project defaults for the workflow. Every field is
// optional; command line flags win over file values.
type Config struct {
	MSBuild       string `toml:"msbuild"`
	Candle        string `toml:"candle"`
	Msiexec       string `toml:"msiexec"`
	Configuration string `toml:"configuration"`
	Platform      string `toml:"platform"`
	Log           string `toml:"log"`
	UI            string `toml:"ui"`
}

// Load reads a defaults file. A file that does not exist yields an
// empty Config, so a project without one works out of the box. A file
// that exists but does not parse is an error.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}

	if err := validate(cfg); err != nil {
		return Config{}, errors.Wrapf(err, "validating config %s", path)
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.UI != "" {
		var ui msiexec.UILevel
		if err := ui.Set(cfg.UI); err != nil {
			return err
		}
	}
	return nil
}

// Fallback returns value unless it is empty, then def.
func Fallback(value, def string) string {
	if value != "" {
		return value
	}
	return def
}
