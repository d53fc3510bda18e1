package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"spiketrend/internal/filter"
	"spiketrend/internal/reference"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment
// variables and an optional YAML file.
type Config struct {
	// Run parameters
	Filter     filter.Config `yaml:"filter"`
	Workers    int           `yaml:"workers"`
	References string        `yaml:"references"` // e.g. "SMA:11,SAVGOL:11:2"

	// Infrastructure
	SQLitePath    string `yaml:"sqlite_path"`
	RedisAddr     string `yaml:"redis_addr"` // empty disables Redis
	RedisPassword string `yaml:"redis_password"`
	MetricsAddr   string `yaml:"metrics_addr"`
	HTTPAddr      string `yaml:"http_addr"`
	LogLevel      string `yaml:"log_level"`

	// Alerts
	WebhookURL       string `yaml:"webhook_url"`
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`
}

// Load reads configuration from environment variables with sensible
// defaults, then applies CONFIG_FILE when set.
func Load() (*Config, error) {
	c := FromEnv()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := c.ApplyFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FromEnv reads the environment only.
func FromEnv() *Config {
	return &Config{
		Filter: filter.Config{
			Window:         getEnvInt("FILTER_WINDOW", 4),
			Threshold:      getEnvFloat("FILTER_THRESHOLD", 1.3),
			TrendWindow:    getEnvInt("TREND_WINDOW", filter.DefaultTrendWindow),
			TrendThreshold: getEnvFloat("TREND_THRESHOLD", 0),
		},
		Workers:    getEnvInt("FILTER_WORKERS", 1),
		References: getEnv("REFERENCE_FILTERS", "SMA:11,SAVGOL:11:2"),

		SQLitePath:    getEnv("SQLITE_PATH", "data/series.db"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
	}
}

// ApplyFile overlays the YAML file at path. Keys present in the file
// replace the current values; absent keys are left untouched.
func (c *Config) ApplyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	log.Printf("[config] applied %s", path)
	return nil
}

// Validate checks the run parameters and worker count.
func (c *Config) Validate() error {
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		return errors.New("config: TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// ReferenceSpecs parses References.
func (c *Config) ReferenceSpecs() []reference.Spec {
	return reference.ParseSpecs(c.References)
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
