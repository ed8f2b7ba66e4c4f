// SPDX-License-Identifier: MPL-2.0

// Package config loads the dockstrap configuration: viper carries the
// defaults, an optional CUE file validated against the embedded schema is
// merged on top, and command-line flags override both in the cmd layer.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"dockstrap-cli/internal/cueparse"
	"dockstrap-cli/internal/issue"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "dockstrap"

	// DefaultPath is where the config file lives on provisioned hosts.
	DefaultPath = "/etc/dockstrap/config.cue"

	// ChannelStable and ChannelTest are the vendor release channels.
	ChannelStable = "stable"
	ChannelTest   = "test"
)

//go:embed schema.cue
var configSchema string

// Config holds the tunable knobs of a provisioning run.
type Config struct {
	// Channel selects the vendor repository suite component.
	Channel string `mapstructure:"channel"`

	// Mirror replaces the default vendor download endpoint when set.
	// The distribution ID is appended to form the repository URL.
	Mirror string `mapstructure:"mirror"`

	// ExtraPackages are installed in the same transaction as the engine.
	ExtraPackages []string `mapstructure:"extra_packages"`

	// User overrides invoking-user detection for group membership.
	User string `mapstructure:"user"`

	// SkipUpgrade disables the full system upgrade step.
	SkipUpgrade bool `mapstructure:"skip_upgrade"`
}

// Default returns the configuration used when no file and no flags are given.
func Default() *Config {
	return &Config{
		Channel: ChannelStable,
	}
}

// Load reads the configuration from path. A missing file at the default
// location is not an error; a missing file at an explicitly requested path is.
func Load(path string, explicit bool) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("channel", defaults.Channel)
	v.SetDefault("mirror", defaults.Mirror)
	v.SetDefault("extra_packages", defaults.ExtraPackages)
	v.SetDefault("user", defaults.User)
	v.SetDefault("skip_upgrade", defaults.SkipUpgrade)

	if fileExists(path) {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the expected schema").
				Wrap(err).
				BuildError()
		}
	} else if explicit {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Omit --config to run with built-in defaults").
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks constraints flags can violate after the CUE schema has
// already passed (flag values never go through CUE).
func (c *Config) validate() error {
	if c.Channel != ChannelStable && c.Channel != ChannelTest {
		return issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource("channel").
			WithSuggestion(`Use "stable" or "test"`).
			Wrap(fmt.Errorf("unknown release channel %q", c.Channel)).
			BuildError()
	}
	return nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config
// schema, and merges its contents into viper. The decode target is a map
// rather than Config so viper keeps layering defaults under absent keys.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	unified, err := cueparse.Unify(configSchema, data, "#Config", path)
	if err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueparse.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
