package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid is returned by Validate for unusable configurations.
var ErrInvalid = errors.New("invalid configuration")

const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"

	StorageFile   = "file"
	StorageMySQL  = "mysql"
	StorageSQLite = "sqlite"

	TelegramModePolling = "polling"
	TelegramModeWebhook = "webhook"

	// MaxRetentionWindow is the longest message purge window a ban may request.
	MaxRetentionWindow = 7 * 24 * time.Hour
)

// global configuration structure
type Config struct {
	Platform    string            `mapstructure:"platform"`
	Discord     DiscordConfig     `mapstructure:"discord"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Server      ServerConfig      `mapstructure:"server"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Enforcement EnforcementConfig `mapstructure:"enforcement"`
}

// Discord bot configuration
type DiscordConfig struct {
	Token string `mapstructure:"token"`
	// CommandGuildID registers slash commands on one guild instead of globally.
	CommandGuildID string `mapstructure:"command_guild_id"`
}

// Telegram bot configuration
type TelegramConfig struct {
	Token   string        `mapstructure:"token"`
	Mode    string        `mapstructure:"mode"`
	Debug   bool          `mapstructure:"debug"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// webhook endpoint configuration
type WebhookConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
	// Secret is sent back by Telegram in X-Telegram-Bot-Api-Secret-Token.
	// Empty derives one from the bot token.
	Secret string `mapstructure:"secret"`
}

// webhookSecretPattern is the character set and length Telegram accepts.
var webhookSecretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

// ops HTTP server configuration
type ServerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ListenPort  string `mapstructure:"listen_port"`
	DebugPath   string `mapstructure:"debug_path"`
	MetricsPath string `mapstructure:"metrics_path"`
}

// logging configuration
type LoggerConfig struct {
	Directory string            `mapstructure:"directory"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
	Level     string            `mapstructure:"level"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

type StorageConfig struct {
	Driver     string         `mapstructure:"driver"`
	Path       string         `mapstructure:"path"`
	SQLitePath string         `mapstructure:"sqlite_path"`
	Database   DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
}

// enforcement tuning
type EnforcementConfig struct {
	RetentionWindow time.Duration `mapstructure:"retention_window"`
	PreviewLimit    int           `mapstructure:"preview_limit"`
	EventTimeout    time.Duration `mapstructure:"event_timeout"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
}

// Load reads configuration from configPath (optional), .env-populated
// environment variables and built-in defaults, then validates it.
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for tools that only need part of the
// configuration.
func Read(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
			log.Printf("Using config file: %s", v.ConfigFileUsed())
		} else {
			log.Printf("Config file %s not found, using defaults and environment", configPath)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.Platform = strings.ToLower(strings.TrimSpace(cfg.Platform))
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	cfg.Telegram.Mode = strings.ToLower(strings.TrimSpace(cfg.Telegram.Mode))

	return cfg, nil
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	switch c.Platform {
	case PlatformDiscord:
		if c.Discord.Token == "" {
			return fmt.Errorf("%w: discord token is required", ErrInvalid)
		}
	case PlatformTelegram:
		if c.Telegram.Token == "" {
			return fmt.Errorf("%w: telegram token is required", ErrInvalid)
		}
		switch c.Telegram.Mode {
		case TelegramModePolling:
		case TelegramModeWebhook:
			if c.Telegram.Webhook.Endpoint == "" {
				return fmt.Errorf("%w: telegram webhook endpoint is required in webhook mode", ErrInvalid)
			}
			if secret := c.Telegram.Webhook.Secret; secret != "" && !webhookSecretPattern.MatchString(secret) {
				return fmt.Errorf("%w: telegram webhook secret must be 1-256 characters of A-Z, a-z, 0-9, _ and -", ErrInvalid)
			}
		default:
			return fmt.Errorf("%w: unknown telegram mode %q", ErrInvalid, c.Telegram.Mode)
		}
	default:
		return fmt.Errorf("%w: unknown platform %q", ErrInvalid, c.Platform)
	}

	switch c.Storage.Driver {
	case StorageFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage path is required", ErrInvalid)
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite path is required", ErrInvalid)
		}
	case StorageMySQL:
		if c.Storage.Database.Host == "" || c.Storage.Database.DBName == "" {
			return fmt.Errorf("%w: database host and dbname are required", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalid, c.Storage.Driver)
	}

	if c.Enforcement.RetentionWindow < 0 || c.Enforcement.RetentionWindow > MaxRetentionWindow {
		return fmt.Errorf("%w: retention window must be between 0 and %s", ErrInvalid, MaxRetentionWindow)
	}
	if c.Enforcement.PreviewLimit <= 0 {
		return fmt.Errorf("%w: preview limit must be positive", ErrInvalid)
	}
	if c.Enforcement.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: max concurrent must be positive", ErrInvalid)
	}

	if c.Platform == PlatformTelegram && c.Telegram.Mode == TelegramModeWebhook && !c.Server.Enabled {
		return fmt.Errorf("%w: webhook mode needs the HTTP server enabled", ErrInvalid)
	}

	return nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("BANTRAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// the names the bot has always been deployed with
	_ = v.BindEnv("discord.token", "BANTRAP_DISCORD_TOKEN", "DISCORD_TOKEN")
	_ = v.BindEnv("telegram.token", "BANTRAP_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("platform", PlatformDiscord)

	v.SetDefault("discord.token", "")
	v.SetDefault("discord.command_guild_id", "")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.mode", TelegramModePolling)
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.webhook.endpoint", "")
	v.SetDefault("telegram.webhook.cert_file", "")
	v.SetDefault("telegram.webhook.key_file", "")
	v.SetDefault("telegram.webhook.secret", "")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.listen_port", "8443")
	v.SetDefault("server.debug_path", "/debug")
	v.SetDefault("server.metrics_path", "/metrics")

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.rotation.max_size", 10)
	v.SetDefault("logger.rotation.max_backups", 30)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)
	v.SetDefault("logger.level", "INFO")

	v.SetDefault("storage.driver", StorageFile)
	v.SetDefault("storage.path", "config.json")
	v.SetDefault("storage.sqlite_path", "bantrap.db")
	v.SetDefault("storage.database.host", "")
	v.SetDefault("storage.database.port", 3306)
	v.SetDefault("storage.database.username", "")
	v.SetDefault("storage.database.password", "")
	v.SetDefault("storage.database.dbname", "")
	v.SetDefault("storage.database.charset", "utf8mb4")

	v.SetDefault("enforcement.retention_window", MaxRetentionWindow)
	v.SetDefault("enforcement.preview_limit", 1000)
	v.SetDefault("enforcement.event_timeout", 30*time.Second)
	v.SetDefault("enforcement.max_concurrent", 64)
}
