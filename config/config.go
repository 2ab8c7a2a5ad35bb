// Package config loads pipeline configuration: explicit values first, a YAML
// file when given, and OPSFLARE_* environment variables filling whatever is
// left. Explicit values always beat the environment. Absent destination
// settings are never an error — they make that destination inert.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "OPSFLARE"

// Config holds every recognized option.
type Config struct {
	App string `mapstructure:"app"`
	Env string `mapstructure:"env"`

	// MinLevel is the minimum severity dispatched to destinations.
	MinLevel string `mapstructure:"min_level"`

	// EmitLocalCopy keeps a structured copy in the local log regardless of
	// dedup and destination outcomes.
	EmitLocalCopy *bool `mapstructure:"emit_local_copy"`

	// DedupWindowSeconds suppresses repeats of one fingerprint; 0 disables.
	DedupWindowSeconds *int `mapstructure:"dedup_window_seconds"`

	// QuietLevel mutes named noisy loggers below this level.
	QuietLevel string `mapstructure:"quiet_level"`

	Log   LogConfig   `mapstructure:"log"`
	Slack SlackConfig `mapstructure:"slack"`
	SES   SESConfig   `mapstructure:"ses"`
	Redis RedisConfig `mapstructure:"redis"`
}

// LogConfig controls the local structured sink.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlackConfig configures the Slack webhook destination.
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Format     string `mapstructure:"format"` // "blocks" or "plain"
}

// SESConfig configures the email destination. To and ReplyTo are
// comma-delimited address lists.
type SESConfig struct {
	From    string `mapstructure:"from"`
	To      string `mapstructure:"to"`
	ReplyTo string `mapstructure:"reply_to"`
	Region  string `mapstructure:"region"`
}

// RedisConfig enables the shared dedup store for warm container fleets.
type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// Default returns the documented defaults.
func Default() *Config {
	emit := true
	window := 30
	return &Config{
		Env:                "dev",
		MinLevel:           "error",
		EmitLocalCopy:      &emit,
		DedupWindowSeconds: &window,
		Log:                LogConfig{Level: "info", Format: "json"},
		Slack:              SlackConfig{Format: "blocks"},
	}
}

// Load reads configuration from an optional YAML file with environment
// overlay and defaults underneath.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// FromEnv builds configuration purely from defaults and environment.
func FromEnv() *Config {
	cfg, err := Load("")
	if err != nil {
		// No file involved: the only failure mode is decode, which the
		// defaults cannot trigger.
		return Default()
	}
	return cfg
}

// ApplyEnvDefaults fills unset fields from the environment, leaving explicit
// values untouched.
func (c *Config) ApplyEnvDefaults() *Config {
	env := FromEnv()
	if c.App == "" {
		c.App = env.App
	}
	if c.Env == "" {
		c.Env = env.Env
	}
	if c.MinLevel == "" {
		c.MinLevel = env.MinLevel
	}
	if c.EmitLocalCopy == nil {
		c.EmitLocalCopy = env.EmitLocalCopy
	}
	if c.DedupWindowSeconds == nil {
		c.DedupWindowSeconds = env.DedupWindowSeconds
	}
	if c.QuietLevel == "" {
		c.QuietLevel = env.QuietLevel
	}
	if c.Log.Level == "" {
		c.Log.Level = env.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = env.Log.Format
	}
	if c.Slack.WebhookURL == "" {
		c.Slack.WebhookURL = env.Slack.WebhookURL
	}
	if c.Slack.Format == "" {
		c.Slack.Format = env.Slack.Format
	}
	if c.SES.From == "" {
		c.SES.From = env.SES.From
	}
	if c.SES.To == "" {
		c.SES.To = env.SES.To
	}
	if c.SES.ReplyTo == "" {
		c.SES.ReplyTo = env.SES.ReplyTo
	}
	if c.SES.Region == "" {
		c.SES.Region = env.SES.Region
	}
	if c.Redis.URL == "" {
		c.Redis.URL = env.Redis.URL
		c.Redis.Enabled = c.Redis.Enabled || env.Redis.Enabled
	}
	return c
}

// DedupWindow returns the suppression window as a duration.
func (c *Config) DedupWindow() time.Duration {
	if c.DedupWindowSeconds == nil {
		return 30 * time.Second
	}
	return time.Duration(*c.DedupWindowSeconds) * time.Second
}

// EmitLocal reports whether the local structured copy is enabled.
func (c *Config) EmitLocal() bool {
	return c.EmitLocalCopy == nil || *c.EmitLocalCopy
}

// Recipients splits the configured SES recipient list.
func (c *Config) Recipients() []string {
	return splitAddresses(c.SES.To)
}

// ReplyTo splits the configured reply-to list.
func (c *Config) ReplyTo() []string {
	return splitAddresses(c.SES.ReplyTo)
}

func splitAddresses(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("env", "dev")
	v.SetDefault("min_level", "error")
	v.SetDefault("emit_local_copy", true)
	v.SetDefault("dedup_window_seconds", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("slack.format", "blocks")

	// OPSFLARE_SLACK_WEBHOOK_URL, OPSFLARE_SES_FROM, OPSFLARE_MIN_LEVEL, …
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so bind the ones that
	// have no default.
	for _, key := range []string{
		"app", "quiet_level",
		"slack.webhook_url",
		"ses.from", "ses.to", "ses.reply_to", "ses.region",
		"redis.url", "redis.enabled",
	} {
		v.BindEnv(key) //nolint:errcheck // only fails on empty input
	}

	return v
}
