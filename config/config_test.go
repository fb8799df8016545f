package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	assert.Equal(t, "https://slack.com/api", v.GetString("slack.api_url"))
	assert.Equal(t, "json", v.GetString("store.backend"))
	assert.Equal(t, 30000, v.GetInt("watchdog.delay_ms"))
	assert.Equal(t, 1.0, v.GetFloat64("slack.rate_per_second"))
	assert.False(t, v.GetBool("start.silent"))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "herald.toml")
	content := `
[slack]
channel = "C042XYZ"
mention_users = ["U1", "U2"]

[store]
backend = "sqlite"
path = "/tmp/herald.db"

[watchdog]
delay_ms = 5000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "C042XYZ", cfg.Slack.Channel)
	assert.Equal(t, []string{"U1", "U2"}, cfg.Slack.MentionUsers)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "/tmp/herald.db", cfg.Store.Path)
	assert.Equal(t, 5000, cfg.Watchdog.DelayMs)
	// Defaults still apply to sections the file does not set
	assert.Equal(t, "https://slack.com/api", cfg.Slack.APIURL)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	t.Setenv("HERALD_SLACK_CHANNEL", "C_ENV")
	t.Setenv("HERALD_SLACK_TOKEN", "xoxb-env-token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "C_ENV", cfg.Slack.Channel)
	assert.Equal(t, "xoxb-env-token", cfg.Slack.Token)
}
