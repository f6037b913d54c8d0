// Package config provides environment-based configuration for the dashboard.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the API server and the dashboard client.
type Config struct {
	// Database configuration. An empty DSN selects the in-memory store.
	DatabaseDSN string `yaml:"database_url"`

	// Server configuration
	APIHost string `yaml:"api_host"`
	APIPort int    `yaml:"api_port"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// SeedBuilders registers the demo builders when the store is empty.
	SeedBuilders bool `yaml:"seed_builders"`

	Log       LogConfig       `yaml:"log"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// DashboardConfig holds dashboard client settings.
type DashboardConfig struct {
	APIURL             string        `yaml:"api_url"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ActivityInterval   time.Duration `yaml:"activity_interval"`
	ExecutionsInterval time.Duration `yaml:"executions_interval"`
	StatusInterval     time.Duration `yaml:"status_interval"`
	// Timezone is an IANA name used for activity timestamps. Empty means local time.
	Timezone string `yaml:"timezone"`
}

// Load reads configuration from environment variables. When CONFIG_FILE is set, the
// YAML file it names is applied on top of the environment.
func Load() (*Config, error) {
	cfg := LoadWithDefaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration from the environment without validating it.
func LoadWithDefaults() *Config {
	return &Config{
		DatabaseDSN:     getEnv("DATABASE_URL", ""),
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		APIPort:         getIntEnv("API_PORT", 8000),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		SeedBuilders:    getBoolEnv("SEED_BUILDERS", true),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Dashboard: DashboardConfig{
			APIURL:             getEnv("DASHBOARD_API_URL", "http://127.0.0.1:8000"),
			RequestTimeout:     getDurationEnv("DASHBOARD_REQUEST_TIMEOUT", 30*time.Second),
			ActivityInterval:   getDurationEnv("DASHBOARD_ACTIVITY_INTERVAL", 5*time.Second),
			ExecutionsInterval: getDurationEnv("DASHBOARD_EXECUTIONS_INTERVAL", 7*time.Second),
			StatusInterval:     getDurationEnv("DASHBOARD_STATUS_INTERVAL", 5*time.Second),
			Timezone:           getEnv("DASHBOARD_TIMEZONE", ""),
		},
	}
}

// ApplyFile overlays the YAML file at path onto c. Keys absent from the file keep
// their current values.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535, got %d", c.APIPort)
	}
	if c.Dashboard.APIURL == "" {
		return fmt.Errorf("DASHBOARD_API_URL is required")
	}
	for name, d := range map[string]time.Duration{
		"activity":   c.Dashboard.ActivityInterval,
		"executions": c.Dashboard.ExecutionsInterval,
		"status":     c.Dashboard.StatusInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s poll interval must be positive", name)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	if c.Dashboard.Timezone != "" {
		if _, err := time.LoadLocation(c.Dashboard.Timezone); err != nil {
			return fmt.Errorf("DASHBOARD_TIMEZONE: %w", err)
		}
	}
	return nil
}

// Location returns the time zone used for dashboard timestamps.
func (d DashboardConfig) Location() *time.Location {
	if d.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// JSONLogs reports whether logs should be written as JSON.
func (l LogConfig) JSONLogs() bool {
	return !strings.EqualFold(l.Format, "text")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
