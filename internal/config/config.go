package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBSource    string `yaml:"db_source"`
	StoreDriver string `yaml:"store_driver"`
	Port        string `yaml:"port"`
	Env         string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	DBLogLevel  string `yaml:"db_log_level"`

	Sync SyncConfig `yaml:"sync"`
}

// SyncConfig configures the downstream history mirrors.
type SyncConfig struct {
	URL         string        `yaml:"url"`
	Timeout     time.Duration `yaml:"timeout"`
	RedisAddr   string        `yaml:"redis_addr"`
	RedisStream string        `yaml:"redis_stream"`
}

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// Load builds the configuration from .env, an optional YAML file named by
// CONFIG_FILE, and the process environment, in increasing precedence.
func Load() (*Config, error) {
	dotenv, err := godotenv.Read()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	fromDotenv := func(key string) string { return dotenv[key] }

	cfg := &Config{}
	if err := cfg.override(fromDotenv); err != nil {
		return nil, fmt.Errorf(".env: %w", err)
	}

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = dotenv["CONFIG_FILE"]
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.override(os.Getenv); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// override replaces every field whose variable is set in lookup.
func (c *Config) override(lookup func(string) string) error {
	set := func(dst *string, key string) {
		if v := lookup(key); v != "" {
			*dst = v
		}
	}
	set(&c.DBSource, "DB_SOURCE")
	set(&c.StoreDriver, "STORE_DRIVER")
	set(&c.Port, "SERVER_PORT")
	set(&c.Env, "ENVIRONMENT")
	set(&c.LogLevel, "LOG_LEVEL")
	set(&c.DBLogLevel, "DB_LOG_LEVEL")
	set(&c.Sync.URL, "SYNC_URL")
	set(&c.Sync.RedisAddr, "REDIS_ADDR")
	set(&c.Sync.RedisStream, "REDIS_STREAM")

	if v := lookup("SYNC_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SYNC_TIMEOUT %q: %w", v, err)
		}
		c.Sync.Timeout = d
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.StoreDriver == "" {
		c.StoreDriver = DriverPostgres
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Sync.URL == "" {
		c.Sync.URL = "http://localhost:8080"
	}
	if c.Sync.Timeout <= 0 {
		c.Sync.Timeout = 5 * time.Second
	}
	if c.Sync.RedisStream == "" {
		c.Sync.RedisStream = "history.sync"
	}
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverMySQL:
		if c.DBSource == "" {
			return fmt.Errorf("DB_SOURCE environment variable is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}
