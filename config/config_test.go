package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "error", cfg.MinLevel)
	assert.True(t, cfg.EmitLocal())
	assert.Equal(t, 30*time.Second, cfg.DedupWindow())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "blocks", cfg.Slack.Format)
	assert.Empty(t, cfg.Slack.WebhookURL)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opsflare.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app: order-sync
env: prod
min_level: warning
dedup_window_seconds: 120
slack:
  webhook_url: https://hooks.slack.com/services/T00/B00/xyz
ses:
  from: alerts@example.com
  to: oncall@example.com, backup@example.com
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "order-sync", cfg.App)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "warning", cfg.MinLevel)
	assert.Equal(t, 2*time.Minute, cfg.DedupWindow())
	assert.Equal(t, "https://hooks.slack.com/services/T00/B00/xyz", cfg.Slack.WebhookURL)
	assert.Equal(t, []string{"oncall@example.com", "backup@example.com"}, cfg.Recipients())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverlay(t *testing.T) {
	t.Setenv("OPSFLARE_APP", "env-app")
	t.Setenv("OPSFLARE_MIN_LEVEL", "critical")
	t.Setenv("OPSFLARE_SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/env")
	t.Setenv("OPSFLARE_DEDUP_WINDOW_SECONDS", "5")

	cfg := FromEnv()

	assert.Equal(t, "env-app", cfg.App)
	assert.Equal(t, "critical", cfg.MinLevel)
	assert.Equal(t, "https://hooks.slack.com/services/env", cfg.Slack.WebhookURL)
	assert.Equal(t, 5*time.Second, cfg.DedupWindow())
}

func TestEnvBeatsFile(t *testing.T) {
	t.Setenv("OPSFLARE_ENV", "staging")

	path := filepath.Join(t.TempDir(), "opsflare.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env: prod\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Env, "viper env overlay wins over file values")
}

func TestApplyEnvDefaults(t *testing.T) {
	t.Setenv("OPSFLARE_APP", "env-app")
	t.Setenv("OPSFLARE_ENV", "prod")
	t.Setenv("OPSFLARE_SES_FROM", "alerts@example.com")

	explicit := &Config{Env: "staging"}
	explicit.ApplyEnvDefaults()

	// Zero fields fill from the environment; explicit ones stand.
	assert.Equal(t, "env-app", explicit.App)
	assert.Equal(t, "staging", explicit.Env)
	assert.Equal(t, "alerts@example.com", explicit.SES.From)
	assert.Equal(t, "error", explicit.MinLevel)
}

func TestRecipientsSplitting(t *testing.T) {
	cfg := &Config{SES: SESConfig{To: " a@x.com ,, b@x.com "}}
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, cfg.Recipients())

	cfg.SES.To = ""
	assert.Nil(t, cfg.Recipients())
}
