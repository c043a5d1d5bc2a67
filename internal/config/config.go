package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Search       SearchConfig       `yaml:"search"`
	Redis        RedisConfig        `yaml:"redis"`
	Auth         AuthConfig         `yaml:"auth"`
	Lifecycle    LifecycleConfig    `yaml:"lifecycle"`
	Appointments AppointmentsConfig `yaml:"appointments"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
}

// RedisConfig contains Redis settings for the view counters
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig contains token verification settings
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LifecycleConfig contains listing lifecycle settings
type LifecycleConfig struct {
	RetentionHours       int  `yaml:"retention_hours"`
	SweepIntervalMinutes int  `yaml:"sweep_interval_minutes"`
	SweepBatchSize       int  `yaml:"sweep_batch_size"`
	MaxDeletionsPerRun   int  `yaml:"max_deletions_per_run"`
	SweepDryRun          bool `yaml:"sweep_dry_run"`
}

// GetRetention returns the rejection grace period as a duration
func (c LifecycleConfig) GetRetention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

// GetSweepInterval returns the sweep interval as a duration
func (c LifecycleConfig) GetSweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// AppointmentsConfig contains viewing-request settings
type AppointmentsConfig struct {
	BookingWindowDays int `yaml:"booking_window_days"`
}

// RateLimitConfig contains per-caller write rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8084",
			CORSOrigins: []string{"http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Type: "mysql",
		},
		Lifecycle: LifecycleConfig{
			RetentionHours:       48,
			SweepIntervalMinutes: 5,
			SweepBatchSize:       100,
			MaxDeletionsPerRun:   1000,
		},
		Appointments: AppointmentsConfig{
			BookingWindowDays: 30,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			RequestsPerHour:   300,
		},
	}
}

// LoadConfig reads the YAML configuration from path
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}
