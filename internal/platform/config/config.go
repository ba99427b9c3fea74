// Package config loads application configuration from environment
// variables with the PORTAL_ prefix, optionally overlaid on a YAML file
// named by PORTAL_CONFIG_FILE. Environment values win over file values.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	ContentAPI ContentAPIConfig `yaml:"content_api"`
	Loader     LoaderConfig     `yaml:"loader"`
	DeepLink   DeepLinkConfig   `yaml:"deeplink"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds PostgreSQL connection settings for progress
// persistence. Empty URL disables the Postgres recorder.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// CacheConfig holds Redis connection settings for the persisted
// key-value store. Empty URL falls back to the in-memory store.
type CacheConfig struct {
	URL string `yaml:"url"`
}

// ContentAPIConfig holds remote content API settings. StaticDir, when
// set, adds a filesystem source as fallback behind the remote API; with
// an empty BaseURL it serves content alone.
type ContentAPIConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	StaticDir string `yaml:"static_dir"`
}

// LoaderConfig holds tree loader settings.
type LoaderConfig struct {
	MaxInFlight int `yaml:"max_in_flight"`
}

// DeepLinkConfig holds resolver timing settings, in milliseconds.
type DeepLinkConfig struct {
	MountDelayMS     int `yaml:"mount_delay_ms"`
	HighlightDwellMS int `yaml:"highlight_dwell_ms"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Database: DatabaseConfig{
			MaxConns: 25,
			MinConns: 5,
		},
		Loader: LoaderConfig{
			MaxInFlight: 8,
		},
		DeepLink: DeepLinkConfig{
			MountDelayMS:     500,
			HighlightDwellMS: 3000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration: defaults, then the optional YAML file, then
// environment overrides.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("PORTAL_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = envInt("PORTAL_SERVER_PORT", c.Server.Port)
	c.Server.Host = envStr("PORTAL_SERVER_HOST", c.Server.Host)

	c.Database.URL = envStr("PORTAL_DATABASE_URL", c.Database.URL)
	c.Database.MaxConns = envInt("PORTAL_DATABASE_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = envInt("PORTAL_DATABASE_MIN_CONNS", c.Database.MinConns)

	c.Cache.URL = envStr("PORTAL_CACHE_URL", c.Cache.URL)

	c.ContentAPI.BaseURL = envStr("PORTAL_CONTENT_API_URL", c.ContentAPI.BaseURL)
	c.ContentAPI.APIKey = envStr("PORTAL_CONTENT_API_KEY", c.ContentAPI.APIKey)
	c.ContentAPI.StaticDir = envStr("PORTAL_CONTENT_STATIC_DIR", c.ContentAPI.StaticDir)

	c.Loader.MaxInFlight = envInt("PORTAL_LOADER_MAX_IN_FLIGHT", c.Loader.MaxInFlight)

	c.DeepLink.MountDelayMS = envInt("PORTAL_DEEPLINK_MOUNT_DELAY_MS", c.DeepLink.MountDelayMS)
	c.DeepLink.HighlightDwellMS = envInt("PORTAL_DEEPLINK_HIGHLIGHT_DWELL_MS", c.DeepLink.HighlightDwellMS)

	c.Log.Level = envStr("PORTAL_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envStr("PORTAL_LOG_FORMAT", c.Log.Format)
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.ContentAPI.BaseURL == "" && c.ContentAPI.StaticDir == "" {
		return fmt.Errorf("at least one content source must be configured (PORTAL_CONTENT_API_URL or PORTAL_CONTENT_STATIC_DIR)")
	}

	if c.Loader.MaxInFlight < 1 {
		return fmt.Errorf("PORTAL_LOADER_MAX_IN_FLIGHT must be at least 1, got %d", c.Loader.MaxInFlight)
	}

	if c.DeepLink.MountDelayMS < 0 || c.DeepLink.HighlightDwellMS < 0 {
		return fmt.Errorf("deeplink delays must not be negative")
	}

	return nil
}

// HasDatabase reports whether progress persistence is configured.
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasCache reports whether the redis-backed store is configured.
func (c *Config) HasCache() bool {
	return c.Cache.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
