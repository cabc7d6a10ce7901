// Package config loads engine configuration from an optional YAML file with
// environment variable overrides. Environment always wins so containerized
// deployments can tune a baked-in config file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Worker   WorkerConfig   `yaml:"worker"`
	Limits   LimitsConfig   `yaml:"limits"`

	// APIKeys seeds the in-memory key store when no database is configured.
	// Raw keys are hashed at load time and never kept in memory.
	APIKeys []APIKeyConfig `yaml:"api_keys"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds the optional PostgreSQL settings.
type DatabaseConfig struct {
	URL                string `yaml:"url"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
	ConnMaxIdleSec     int    `yaml:"conn_max_idle_sec"`
}

// RedisConfig holds the optional Redis settings.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// WorkerConfig holds the async worker pool settings.
type WorkerConfig struct {
	Concurrency    int `yaml:"concurrency"`
	DequeueTimeout int `yaml:"dequeue_timeout_sec"`
}

// LimitsConfig holds upload and processing ceilings.
type LimitsConfig struct {
	MaxUploadMB   int `yaml:"max_upload_mb"`
	JobTimeoutSec int `yaml:"job_timeout_sec"`
}

// APIKeyConfig is one statically configured API key.
type APIKeyConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
	RPM  int    `yaml:"rpm"`
	RPD  int    `yaml:"rpd"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			MaxOpenConns:       25,
			MaxIdleConns:       5,
			ConnMaxLifetimeSec: 300,
			ConnMaxIdleSec:     60,
		},
		Worker: WorkerConfig{
			Concurrency:    2,
			DequeueTimeout: 5,
		},
		Limits: LimitsConfig{
			MaxUploadMB:   100,
			JobTimeoutSec: 600,
		},
	}
}

// Load reads the YAML file at path (when non-empty) over the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return cfg, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Limits.MaxUploadMB <= 0 {
		return cfg, fmt.Errorf("max_upload_mb must be positive")
	}
	return cfg, nil
}

// applyEnv overlays environment variables on the loaded values.
func (c *Config) applyEnv() {
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Worker.Concurrency = getEnvInt("WORKER_CONCURRENCY", c.Worker.Concurrency)
	c.Worker.DequeueTimeout = getEnvInt("WORKER_DEQUEUE_TIMEOUT", c.Worker.DequeueTimeout)
	c.Limits.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", c.Limits.MaxUploadMB)
	c.Limits.JobTimeoutSec = getEnvInt("JOB_TIMEOUT_SEC", c.Limits.JobTimeoutSec)
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Limits.MaxUploadMB) * 1024 * 1024
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}
