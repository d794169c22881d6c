package config

import (
	"emperror.dev/errors"
	"github.com/spf13/viper"
)

type Diff struct {
	// Display prefixes for the old and new sides of a delta.
	OldPrefix string
	NewPrefix string
	// If true, `treeline diff` reports untracked files by default.
	IncludeUntracked bool
}

type Stash struct {
	// If true, `treeline stash save` includes untracked files by default.
	IncludeUntracked bool
}

var Treeline = struct {
	Diff  Diff
	Stash Stash
}{
	Diff: Diff{
		OldPrefix: "a/",
		NewPrefix: "b/",
	},
}

// Load initializes the configuration values.
// It may optionally be called with a list of additional paths to check for
// the config file.
// Returns a boolean indicating whether or not a config file was loaded and
// an error if one occurred.
func Load(paths []string) (bool, error) {
	config := viper.New()

	config.SetConfigName("config")

	config.AddConfigPath("$XDG_CONFIG_HOME/treeline")
	config.AddConfigPath("$HOME/.config/treeline")
	// Add additional custom paths (e.g., $REPO/.git/treeline/config.json).
	for _, path := range paths {
		config.AddConfigPath(path)
	}

	if err := config.ReadInConfig(); err != nil {
		if errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return false, nil
		}
		return false, err
	}

	if err := config.Unmarshal(&Treeline); err != nil {
		return true, errors.Wrap(err, "failed to read treeline configs")
	}

	return true, nil
}
