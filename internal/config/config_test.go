package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
platform: telegram
telegram:
  token: "123:abc"
  mode: webhook
  webhook:
    endpoint: "https://example.com/tg"
    secret: "s3cret-token_1"
storage:
  driver: sqlite
  sqlite_path: /var/lib/bantrap/bantrap.db
enforcement:
  retention_window: 24h
  max_concurrent: 8
logger:
  level: DEBUG
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, PlatformTelegram, cfg.Platform)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, TelegramModeWebhook, cfg.Telegram.Mode)
	assert.Equal(t, "s3cret-token_1", cfg.Telegram.Webhook.Secret)
	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/bantrap/bantrap.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 24*time.Hour, cfg.Enforcement.RetentionWindow)
	assert.Equal(t, 8, cfg.Enforcement.MaxConcurrent)
	assert.Equal(t, 1000, cfg.Enforcement.PreviewLimit)
	assert.Equal(t, "DEBUG", cfg.Logger.Level)
	assert.Equal(t, "/metrics", cfg.Server.MetricsPath)
}

func TestLoadMissingFileUsesDefaultsAndEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "discord-token")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, PlatformDiscord, cfg.Platform)
	assert.Equal(t, "discord-token", cfg.Discord.Token)
	assert.Equal(t, StorageFile, cfg.Storage.Driver)
	assert.Equal(t, "config.json", cfg.Storage.Path)
	assert.Equal(t, 7*24*time.Hour, cfg.Enforcement.RetentionWindow)
	assert.Equal(t, 30*time.Second, cfg.Enforcement.EventTimeout)
}

func TestLoadPrefixedEnvOverride(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "discord-token")
	t.Setenv("BANTRAP_STORAGE_PATH", "/data/traps.json")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/data/traps.json", cfg.Storage.Path)
}

func TestLoadRejectsMissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	path := writeConfig(t, "platform: discord\n")

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalid)

	cfg, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, PlatformDiscord, cfg.Platform)
	assert.Equal(t, StorageFile, cfg.Storage.Driver)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Platform: PlatformDiscord,
			Discord:  DiscordConfig{Token: "t"},
			Storage:  StorageConfig{Driver: StorageFile, Path: "config.json"},
			Enforcement: EnforcementConfig{
				RetentionWindow: MaxRetentionWindow,
				PreviewLimit:    1000,
				MaxConcurrent:   1,
			},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown platform", func(c *Config) { c.Platform = "irc" }},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "redis" }},
		{"retention too long", func(c *Config) { c.Enforcement.RetentionWindow = 8 * 24 * time.Hour }},
		{"negative retention", func(c *Config) { c.Enforcement.RetentionWindow = -time.Second }},
		{"mysql without host", func(c *Config) { c.Storage.Driver = StorageMySQL }},
		{"webhook without endpoint", func(c *Config) {
			c.Platform = PlatformTelegram
			c.Telegram = TelegramConfig{Token: "t", Mode: TelegramModeWebhook}
		}},
		{"webhook secret with bad characters", func(c *Config) {
			c.Platform = PlatformTelegram
			c.Telegram = TelegramConfig{Token: "t", Mode: TelegramModeWebhook, Webhook: WebhookConfig{Endpoint: "https://x", Secret: "not allowed!"}}
			c.Server.Enabled = true
		}},
		{"webhook secret too long", func(c *Config) {
			c.Platform = PlatformTelegram
			c.Telegram = TelegramConfig{Token: "t", Mode: TelegramModeWebhook, Webhook: WebhookConfig{Endpoint: "https://x", Secret: strings.Repeat("a", 257)}}
			c.Server.Enabled = true
		}},
		{"webhook without server", func(c *Config) {
			c.Platform = PlatformTelegram
			c.Telegram = TelegramConfig{Token: "t", Mode: TelegramModeWebhook, Webhook: WebhookConfig{Endpoint: "https://x"}}
			c.Server.Enabled = false
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}

func TestValidateWebhookSecret(t *testing.T) {
	c := &Config{
		Platform: PlatformTelegram,
		Telegram: TelegramConfig{Token: "t", Mode: TelegramModeWebhook, Webhook: WebhookConfig{Endpoint: "https://x"}},
		Server:   ServerConfig{Enabled: true},
		Storage:  StorageConfig{Driver: StorageFile, Path: "config.json"},
		Enforcement: EnforcementConfig{
			RetentionWindow: MaxRetentionWindow,
			PreviewLimit:    1000,
			MaxConcurrent:   1,
		},
	}
	require.NoError(t, c.Validate())

	c.Telegram.Webhook.Secret = strings.Repeat("A-z_9", 51)
	require.NoError(t, c.Validate())

	c.Telegram.Webhook.Secret = "has space"
	assert.ErrorIs(t, c.Validate(), ErrInvalid)
}
