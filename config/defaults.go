package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Slack defaults
	v.SetDefault("slack.api_url", "https://slack.com/api")
	v.SetDefault("slack.channel", "")
	v.SetDefault("slack.mention_users", []string{})
	v.SetDefault("slack.rate_per_second", 1.0) // Slack chat.postMessage tier limit

	// Store defaults
	v.SetDefault("store.backend", "json")
	v.SetDefault("store.path", defaultStorePath())

	// Watchdog defaults
	v.SetDefault("watchdog.delay_ms", 30000)

	// Start defaults
	v.SetDefault("start.silent", false)
}

// defaultStorePath returns the default ledger location under the user's home.
// Falls back to the working directory when home cannot be determined.
func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "herald-jobs.json"
	}
	return filepath.Join(home, ".local", "share", "herald", "jobs.json")
}
