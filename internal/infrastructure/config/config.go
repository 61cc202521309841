package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Bridge    BridgeConfig
	Fetch     FetchConfig
	Headless  HeadlessConfig
	CDP       CDPConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// BridgeConfig holds script bridge configuration.
type BridgeConfig struct {
	EvalTimeout time.Duration `envconfig:"BRIDGE_EVAL_TIMEOUT" default:"800ms"`
	EventBuffer int           `envconfig:"BRIDGE_EVENT_BUFFER" default:"256"`
}

// FetchConfig holds metadata fallback HTTP client configuration.
type FetchConfig struct {
	UserAgent    string        `envconfig:"FETCH_USER_AGENT" default:"DefcommBrowser/0.1"`
	MaxRedirects int           `envconfig:"FETCH_MAX_REDIRECTS" default:"5"`
	Timeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	RateLimit    float64       `envconfig:"FETCH_RATE_LIMIT" default:"20"`
	Retries      int           `envconfig:"FETCH_RETRIES" default:"1"`
}

// HeadlessConfig holds embedded JavaScript surface configuration.
type HeadlessConfig struct {
	ScriptTimeout time.Duration `envconfig:"HEADLESS_SCRIPT_TIMEOUT" default:"2s"`
}

// CDPConfig holds DevTools protocol surface configuration.
type CDPConfig struct {
	URL     string `envconfig:"CDP_URL"`
	Enabled bool   `envconfig:"CDP_ENABLED" default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects settings the bridge cannot run with.
func (c *Config) Validate() error {
	if c.Bridge.EvalTimeout <= 0 {
		return fmt.Errorf("BRIDGE_EVAL_TIMEOUT must be positive, got %s", c.Bridge.EvalTimeout)
	}
	if c.Bridge.EventBuffer <= 0 {
		return fmt.Errorf("BRIDGE_EVENT_BUFFER must be positive, got %d", c.Bridge.EventBuffer)
	}
	if c.Fetch.MaxRedirects < 0 {
		return fmt.Errorf("FETCH_MAX_REDIRECTS must not be negative, got %d", c.Fetch.MaxRedirects)
	}
	if c.CDP.Enabled && c.CDP.URL == "" {
		return fmt.Errorf("CDP_ENABLED requires CDP_URL")
	}
	return nil
}

// Address returns host:port for the listener.
func (s ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "127.0.0.1",
		},
		Bridge: BridgeConfig{
			EvalTimeout: 800 * time.Millisecond,
			EventBuffer: 256,
		},
		Fetch: FetchConfig{
			UserAgent:    "DefcommBrowser/0.1",
			MaxRedirects: 5,
			Timeout:      10 * time.Second,
			RateLimit:    20,
			Retries:      1,
		},
		Headless: HeadlessConfig{
			ScriptTimeout: 2 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
