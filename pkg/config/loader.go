package config

import (
	"errors"
	"os"

	"github.com/kkyr/fig"
)

const EnvPrefix = "ROOMCALL"

// LoadConfig loads a configuration file into the given struct.
// The path param specifies a custom path to the configuration file.
// Reads and puts environment variables with the prefix ROOMCALL_.
// Params from the config should be in uppercase separated with _.
//
// A missing file is not an error, the struct then keeps its
// defaults with environment overrides on top.
func LoadConfig(config any, path string) error {
	dirs := []string{path}
	if path == "" {
		dirs = append(dirs, ".", "configs", "../../configs")
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, home+"/.roomcall")
		}
	}
	err := fig.Load(config, fig.Dirs(dirs...), fig.UseEnv(EnvPrefix))
	if errors.Is(err, fig.ErrFileNotFound) {
		return LoadConfigEnv(config)
	}
	return err
}

func LoadConfigEnv(config any) error {
	return fig.Load(config, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
}
