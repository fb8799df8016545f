// Package config provides herald configuration resolution using Viper.
//
// Precedence (highest wins): environment variables (HERALD_*) > project
// herald.toml (walked up from the working directory) > user config
// (~/.config/herald/herald.toml) > defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/herald/errors"
)

// Config is the resolved herald configuration
type Config struct {
	Slack    SlackConfig    `mapstructure:"slack"`
	Store    StoreConfig    `mapstructure:"store"`
	Watchdog WatchdogConfig `mapstructure:"watchdog"`
	Start    StartConfig    `mapstructure:"start"`
}

// SlackConfig configures the conversation channel client
type SlackConfig struct {
	Token         string   `mapstructure:"token"`
	APIURL        string   `mapstructure:"api_url"`
	Channel       string   `mapstructure:"channel"`
	MentionUsers  []string `mapstructure:"mention_users"`
	RatePerSecond float64  `mapstructure:"rate_per_second"`
}

// StoreConfig configures ledger persistence
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // "json", "sqlite", or "none"
	Path    string `mapstructure:"path"`
}

// WatchdogConfig configures the inactivity watchdog
type WatchdogConfig struct {
	DelayMs int `mapstructure:"delay_ms"`
}

// StartConfig configures job-start behavior
type StartConfig struct {
	// Silent defers the top-level post until the first real content is
	// delivered, avoiding noise for jobs that never produce output.
	Silent bool `mapstructure:"silent"`
}

var globalConfig *Config
var viperInstance *viper.Viper

// Load reads the herald configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	globalConfig = &config
	return globalConfig, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}

	return &config, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	return initViper()
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix("HERALD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Token is sensitive and commonly supplied through the environment only
	_ = v.BindEnv("slack.token", "HERALD_SLACK_TOKEN", "SLACK_BOT_TOKEN")

	SetDefaults(v)

	// Merge config files in precedence order: user -> project
	if userPath := userConfigPath(); userPath != "" {
		v.SetConfigFile(userPath)
		v.SetConfigType("toml")
		_ = v.MergeInConfig()
	}
	if projectPath := findProjectConfig(); projectPath != "" {
		v.SetConfigFile(projectPath)
		v.SetConfigType("toml")
		_ = v.MergeInConfig()
	}

	viperInstance = v
	return v
}

// userConfigPath returns ~/.config/herald/herald.toml if it exists
func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".config", "herald", "herald.toml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// findProjectConfig searches for herald.toml by walking up the directory tree.
// Returns the path to the first config file found, or empty string if none found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, "herald.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
