// config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Store     StoreConfig     `yaml:"store" toml:"store"`
	Secrets   SecretsConfig   `yaml:"secrets" toml:"secrets"`
	Crypto    CryptoConfig    `yaml:"crypto" toml:"crypto"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Notify    NotifyConfig    `yaml:"notify" toml:"notify"`
	Log       LogConfig       `yaml:"log" toml:"log"`
}

type ServerConfig struct {
	Host         string `yaml:"host" toml:"host"`
	Port         int    `yaml:"port" toml:"port"`
	BaseURL      string `yaml:"base_url" toml:"base_url"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" toml:"max_body_bytes"`
}

type StoreConfig struct {
	Type   string       `yaml:"type" toml:"type"`
	Redis  RedisConfig  `yaml:"redis" toml:"redis"`
	SQLite SQLiteConfig `yaml:"sqlite" toml:"sqlite"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
}

type SQLiteConfig struct {
	DSN string `yaml:"dsn" toml:"dsn"`
}

type SecretsConfig struct {
	DefaultMinutes int      `yaml:"default_minutes" toml:"default_minutes"`
	MaxMinutes     int      `yaml:"max_minutes" toml:"max_minutes"`
	DefaultViews   int      `yaml:"default_views" toml:"default_views"`
	MaxViews       int      `yaml:"max_views" toml:"max_views"`
	MaxContent     int      `yaml:"max_content_bytes" toml:"max_content_bytes"`
	UpdateAttempts int      `yaml:"update_attempts" toml:"update_attempts"`
	SweepInterval  Duration `yaml:"sweep_interval" toml:"sweep_interval"`
	PurgeAfter     Duration `yaml:"purge_after" toml:"purge_after"`
}

type CryptoConfig struct {
	KDFIterations int    `yaml:"kdf_iterations" toml:"kdf_iterations"`
	Argon2Memory  uint32 `yaml:"argon2_memory_kib" toml:"argon2_memory_kib"`
	Argon2Time    uint32 `yaml:"argon2_time" toml:"argon2_time"`
	Argon2Threads uint8  `yaml:"argon2_threads" toml:"argon2_threads"`
}

type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled" toml:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min" toml:"requests_per_min"`
	RevealPerMin   int  `yaml:"reveal_per_min" toml:"reveal_per_min"`
}

type NotifyConfig struct {
	Driver         string   `yaml:"driver" toml:"driver"`
	WebhookURL     string   `yaml:"webhook_url" toml:"webhook_url"`
	ResendAPIKey   string   `yaml:"resend_api_key" toml:"resend_api_key"`
	ResendEndpoint string   `yaml:"resend_endpoint" toml:"resend_endpoint"`
	From           string   `yaml:"from" toml:"from"`
	LocationHeader string   `yaml:"location_header" toml:"location_header"`
	QueueSize      int      `yaml:"queue_size" toml:"queue_size"`
	Workers        int      `yaml:"workers" toml:"workers"`
	Timeout        Duration `yaml:"timeout" toml:"timeout"`
}

type LogConfig struct {
	Verbose bool `yaml:"verbose" toml:"verbose"`
	Debug   bool `yaml:"debug" toml:"debug"`
}

// Duration accepts "90s"-style strings in both YAML and TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			BaseURL:      "http://localhost:8080",
			MaxBodyBytes: 15 << 20,
		},
		Store: StoreConfig{
			Type: "memory",
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				Password: "",
				DB:       0,
			},
			SQLite: SQLiteConfig{
				DSN: "file:secrets.db?_pragma=busy_timeout(5000)",
			},
		},
		Secrets: SecretsConfig{
			DefaultMinutes: 15,
			MaxMinutes:     7 * 24 * 60,
			DefaultViews:   1,
			MaxViews:       100,
			MaxContent:     10 << 20,
			UpdateAttempts: 8,
			SweepInterval:  Duration{time.Minute},
		},
		Crypto: CryptoConfig{
			KDFIterations: 100_000,
			Argon2Memory:  64 * 1024,
			Argon2Time:    3,
			Argon2Threads: 2,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 100,
			RevealPerMin:   20,
		},
		Notify: NotifyConfig{
			Driver:    "log",
			From:      "Secret Share <notifications@secretshare.app>",
			QueueSize: 64,
			Workers:   2,
			Timeout:   Duration{10 * time.Second},
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is OK, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	}

	return nil
}

func (c *Config) loadFromEnv() {
	// Server
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}

	if v := os.Getenv("STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Store.Redis.DB = db
		}
	}
	if v := os.Getenv("SQLITE_DSN"); v != "" {
		c.Store.SQLite.DSN = v
	}

	if v := os.Getenv("DEFAULT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Secrets.DefaultMinutes = n
		}
	}
	if v := os.Getenv("MAX_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Secrets.MaxMinutes = n
		}
	}
	if v := os.Getenv("DEFAULT_VIEWS"); v != "" {
		if views, err := strconv.Atoi(v); err == nil {
			c.Secrets.DefaultViews = views
		}
	}
	if v := os.Getenv("MAX_VIEWS"); v != "" {
		if views, err := strconv.Atoi(v); err == nil {
			c.Secrets.MaxViews = views
		}
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Secrets.SweepInterval.Duration = d
		}
	}
	if v := os.Getenv("PURGE_AFTER"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Secrets.PurgeAfter.Duration = d
		}
	}

	if v := os.Getenv("KDF_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Crypto.KDFIterations = n
		}
	}

	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		c.RateLimit.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.RequestsPerMin = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_REVEAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.RevealPerMin = n
		}
	}

	if v := os.Getenv("NOTIFY_DRIVER"); v != "" {
		c.Notify.Driver = v
	}
	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		c.Notify.WebhookURL = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		c.Notify.ResendAPIKey = v
	}
	if v := os.Getenv("NOTIFY_FROM"); v != "" {
		c.Notify.From = v
	}
	if v := os.Getenv("NOTIFY_LOCATION_HEADER"); v != "" {
		c.Notify.LocationHeader = v
	}

	if v := os.Getenv("LOG_VERBOSE"); v != "" {
		c.Log.Verbose = v == "true" || v == "1"
	}
	if v := os.Getenv("LOG_DEBUG"); v != "" {
		c.Log.Debug = v == "true" || v == "1"
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Server.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	switch c.Store.Type {
	case "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required when store type is 'redis'")
		}
	case "sqlite":
		if c.Store.SQLite.DSN == "" {
			return fmt.Errorf("sqlite dsn is required when store type is 'sqlite'")
		}
	default:
		return fmt.Errorf("invalid store type: %s (must be 'memory', 'redis' or 'sqlite')", c.Store.Type)
	}

	if c.Secrets.DefaultMinutes < 1 {
		return fmt.Errorf("default_minutes must be at least 1")
	}

	if c.Secrets.MaxMinutes < c.Secrets.DefaultMinutes {
		return fmt.Errorf("max_minutes must be >= default_minutes")
	}

	if c.Secrets.DefaultViews < 1 {
		return fmt.Errorf("default_views must be at least 1")
	}

	if c.Secrets.MaxViews < c.Secrets.DefaultViews {
		return fmt.Errorf("max_views must be >= default_views")
	}

	if c.Secrets.UpdateAttempts < 1 {
		return fmt.Errorf("update_attempts must be at least 1")
	}

	if c.Secrets.SweepInterval.Duration <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}

	if c.Crypto.KDFIterations < 10_000 {
		return fmt.Errorf("kdf_iterations must be at least 10000")
	}

	switch c.Notify.Driver {
	case "none", "log":
	case "webhook":
		if c.Notify.WebhookURL == "" {
			return fmt.Errorf("webhook_url is required when notify driver is 'webhook'")
		}
	case "resend":
		if c.Notify.ResendAPIKey == "" {
			return fmt.Errorf("resend_api_key is required when notify driver is 'resend'")
		}
	default:
		return fmt.Errorf("invalid notify driver: %s", c.Notify.Driver)
	}

	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
