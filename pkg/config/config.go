package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Redis    RedisConfig    `yaml:"redis"`
	TieBreak TieBreakConfig `yaml:"tiebreak"`
	Pairing  PairingConfig  `yaml:"pairing"`
	Repair   RepairConfig   `yaml:"repair"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RedisConfig holds the key-value store configuration. An empty URL selects
// the in-memory store.
type RedisConfig struct {
	URL       string `yaml:"url"`
	ResultTTL int    `yaml:"result_ttl"` // seconds, TTL for cached scan results
}

// TieBreakConfig holds configuration for the external tie-break model
type TieBreakConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout"` // seconds per tie-break call
}

// PairingConfig exposes the pairing engine's empirical constants as tunables.
// The defaults were hand-tuned against a golden dataset and are validated by
// the scenario tests.
type PairingConfig struct {
	TopK            int     `yaml:"top_k"`
	ScoreFloor      float64 `yaml:"score_floor"`
	MarginGap       float64 `yaml:"margin_gap"`
	OrphanThreshold float64 `yaml:"orphan_threshold"`
	CategoryWeight  float64 `yaml:"category_weight"`
	ProximityWindow int     `yaml:"proximity_window"`
}

// RepairConfig holds the retroactive orphan repair sweep configuration
type RepairConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron expression
}

// DefaultConfig returns a configuration populated with defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  30,
			WriteTimeout: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Redis: RedisConfig{
			URL:       "",
			ResultTTL: 3600,
		},
		TieBreak: TieBreakConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 30,
		},
		Pairing: PairingConfig{
			TopK:            8,
			ScoreFloor:      1.5,
			MarginGap:       1.0,
			OrphanThreshold: 0.5,
			CategoryWeight:  1.0,
			ProximityWindow: 3,
		},
		Repair: RepairConfig{
			Enabled:  false,
			Schedule: "@every 15m",
		},
	}
}

// LoadConfig loads configuration from an optional YAML file, then applies
// environment variable overrides. A missing path is not an error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides on top of file values
func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.TieBreak.BaseURL = getEnv("TIEBREAK_BASE_URL", c.TieBreak.BaseURL)
	c.TieBreak.APIKey = getEnv("TIEBREAK_API_KEY", c.TieBreak.APIKey)
	c.TieBreak.Model = getEnv("TIEBREAK_MODEL", c.TieBreak.Model)
	c.TieBreak.Timeout = getEnvAsInt("TIEBREAK_TIMEOUT", c.TieBreak.Timeout)
	c.Pairing.TopK = getEnvAsInt("PAIRING_TOP_K", c.Pairing.TopK)
	c.Repair.Schedule = getEnv("REPAIR_SCHEDULE", c.Repair.Schedule)
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Pairing.TopK <= 0 {
		return fmt.Errorf("pairing.top_k must be positive, got %d", c.Pairing.TopK)
	}
	if c.Pairing.MarginGap < 0 {
		return fmt.Errorf("pairing.margin_gap must not be negative, got %f", c.Pairing.MarginGap)
	}
	if c.Pairing.OrphanThreshold < 0 || c.Pairing.OrphanThreshold > 1 {
		return fmt.Errorf("pairing.orphan_threshold must be between 0 and 1, got %f", c.Pairing.OrphanThreshold)
	}
	if c.TieBreak.Timeout <= 0 {
		return fmt.Errorf("tiebreak.timeout must be positive, got %d", c.TieBreak.Timeout)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
