package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Authority  AuthorityConfig  `yaml:"authority"`
	Moderation ModerationConfig `yaml:"moderation"`
	Scanner    ScannerConfig    `yaml:"scanner"`
	Queue      QueueConfig      `yaml:"queue"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the admin API listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds optional Redis settings. When disabled, the blocklist
// cache and the drain lock fall back to in-process alternatives.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthorityConfig holds the remote authority protocol settings.
type AuthorityConfig struct {
	BaseURL             string `yaml:"base_url"`
	Token               string `yaml:"token"`
	SyncIntervalMinutes int    `yaml:"sync_interval_minutes"`
	SyncTimeoutSeconds  int    `yaml:"sync_timeout_seconds"`
	RetryTimeoutSeconds int    `yaml:"retry_timeout_seconds"`
}

// ModerationConfig holds decision-engine settings.
type ModerationConfig struct {
	DefaultMode       string   `yaml:"default_mode"`
	ProtectedIDs      []string `yaml:"protected_ids"`
	AdminRoles        []string `yaml:"admin_roles"`
	KickRetryAttempts int      `yaml:"kick_retry_attempts"`
	KickRetryDelayMS  int      `yaml:"kick_retry_delay_ms"`
	VerifyKick        bool     `yaml:"verify_kick"`
	VerifyDelayMS     int      `yaml:"verify_delay_ms"`
	NotifyTemplate    string   `yaml:"notify_template"`
	KickFailTemplate  string   `yaml:"kick_fail_template"`
}

// KickRetryDelay returns the delay between removal attempts.
func (m ModerationConfig) KickRetryDelay() time.Duration {
	return time.Duration(m.KickRetryDelayMS) * time.Millisecond
}

// VerifyDelay returns the settle delay before post-kick verification.
func (m ModerationConfig) VerifyDelay() time.Duration {
	return time.Duration(m.VerifyDelayMS) * time.Millisecond
}

// ScannerConfig holds group-scan settings.
type ScannerConfig struct {
	BatchSize int  `yaml:"batch_size"`
	SkipBots  bool `yaml:"skip_bots"`
}

// QueueConfig holds offline-queue settings.
type QueueConfig struct {
	DrainIntervalMinutes int    `yaml:"drain_interval_minutes"`
	DeadLetterS3Bucket   string `yaml:"dead_letter_s3_bucket"`
	DeadLetterS3Region   string `yaml:"dead_letter_s3_region"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactIDs bool   `yaml:"redact_ids"`
}

// Load reads and parses the YAML config file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Authority.SyncIntervalMinutes == 0 {
		c.Authority.SyncIntervalMinutes = 5
	}
	if c.Authority.SyncTimeoutSeconds == 0 {
		c.Authority.SyncTimeoutSeconds = 10
	}
	if c.Authority.RetryTimeoutSeconds == 0 {
		c.Authority.RetryTimeoutSeconds = 5
	}
	if c.Moderation.DefaultMode == "" {
		c.Moderation.DefaultMode = "both"
	}
	if c.Moderation.KickRetryAttempts == 0 {
		c.Moderation.KickRetryAttempts = 3
	}
	if c.Moderation.KickRetryDelayMS == 0 {
		c.Moderation.KickRetryDelayMS = 1000
	}
	if c.Moderation.VerifyDelayMS == 0 {
		c.Moderation.VerifyDelayMS = 2000
	}
	if c.Moderation.NotifyTemplate == "" {
		c.Moderation.NotifyTemplate = "{{ display_name }} ({{ user_id }}) is on the blocklist: {{ reason }}"
	}
	if c.Moderation.KickFailTemplate == "" {
		c.Moderation.KickFailTemplate = "Failed to remove {{ display_name }} ({{ user_id }}) from group {{ group_id }}"
	}
	if c.Scanner.BatchSize == 0 {
		c.Scanner.BatchSize = 5
	}
	if c.Queue.DrainIntervalMinutes == 0 {
		c.Queue.DrainIntervalMinutes = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	switch c.Moderation.DefaultMode {
	case "off", "notify", "kick", "both":
	default:
		return fmt.Errorf("moderation.default_mode: unknown mode %q", c.Moderation.DefaultMode)
	}
	return nil
}

// LoadFromEnv loads the config file, then applies environment overrides.
// A .env file in the working directory is honored if present.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if os.IsNotExist(err) {
		// No config file: run on defaults plus environment overrides.
		cfg = &Config{}
		cfg.applyDefaults()
	} else if err != nil {
		return nil, err
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = addr
	}
	if baseURL := os.Getenv("AUTHORITY_BASE_URL"); baseURL != "" {
		cfg.Authority.BaseURL = baseURL
	}
	if token := os.Getenv("AUTHORITY_TOKEN"); token != "" {
		cfg.Authority.Token = token
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	return cfg, nil
}
