package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// PromptTerminal is the dialog mode that draws on the controlling terminal.
const PromptTerminal = "terminal"

// TerminalLogFile receives logs when LOG_FILE is unset and dialogs are
// drawn on the terminal.
const TerminalLogFile = "/tmp/pms-shell/shell.log"

// Config holds all host configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Surface    SurfaceConfig    `toml:"surface"`
	Logging    LogConfig        `toml:"logging"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
	Token      TokenConfig      `toml:"token"`
	Permission PermissionConfig `toml:"permission"`
	Location   LocationConfig   `toml:"location"`
	Prompt     PromptConfig     `toml:"prompt"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" toml:"port"`
	Host string `envconfig:"HOST" default:"127.0.0.1" toml:"host"`
}

// SurfaceConfig describes the embedded content surface.
type SurfaceConfig struct {
	OriginURL   string   `envconfig:"SURFACE_ORIGIN" default:"https://mobile.wiselabpms.co.kr" toml:"origin_url"`
	BridgePath  string   `envconfig:"SURFACE_BRIDGE_PATH" default:"/bridge" toml:"bridge_path"`
	AllowOrigin []string `envconfig:"SURFACE_ALLOW_ORIGIN" default:"*" toml:"allow_origin"`
	// Inbound bridge messages per second accepted from one surface connection.
	MessageRate  int `envconfig:"BRIDGE_RATE_LIMIT" default:"50" toml:"message_rate"`
	MessageBurst int `envconfig:"BRIDGE_RATE_BURST" default:"100" toml:"message_burst"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development"`
	File        string `envconfig:"LOG_FILE" default:"" toml:"file"`
}

// RateLimitConfig holds HTTP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled"`
}

// TokenConfig selects and configures the auth token backend.
type TokenConfig struct {
	Backend     string        `envconfig:"TOKEN_STORE" default:"file" toml:"backend"` // "file", "redis", "memory"
	Path        string        `envconfig:"TOKEN_PATH" default:"/tmp/pms-shell/auth_token" toml:"path"`
	Secret      string        `envconfig:"TOKEN_SECRET" default:"" toml:"secret"`
	RedisURL    string        `envconfig:"TOKEN_REDIS_URL" default:"redis://localhost:6379/0" toml:"redis_url"`
	RedisKey    string        `envconfig:"TOKEN_REDIS_KEY" default:"shell:auth_token" toml:"redis_key"`
	RedisPool   int           `envconfig:"TOKEN_REDIS_POOL" default:"4" toml:"redis_pool"`
	DialTimeout time.Duration `envconfig:"TOKEN_REDIS_DIAL_TIMEOUT" default:"5s" toml:"dial_timeout"`
}

// PermissionConfig selects the platform permission model.
type PermissionConfig struct {
	Platform    string `envconfig:"HOST_PLATFORM" default:"android" toml:"platform"` // "android", "ios"
	StateFile   string `envconfig:"PERMISSION_STATE_FILE" default:"/tmp/pms-shell/permissions.yaml" toml:"state_file"`
	SettingsURL string `envconfig:"PERMISSION_SETTINGS_URL" default:"app-settings:" toml:"settings_url"`
}

// LocationConfig selects and configures the position facility.
type LocationConfig struct {
	Provider   string        `envconfig:"LOCATION_PROVIDER" default:"geoip" toml:"provider"` // "geoip", "static"
	Endpoint   string        `envconfig:"LOCATION_ENDPOINT" default:"http://ip-api.com/json" toml:"endpoint"`
	Timeout    time.Duration `envconfig:"LOCATION_TIMEOUT" default:"15s" toml:"timeout"`
	MaximumAge time.Duration `envconfig:"LOCATION_MAXIMUM_AGE" default:"10s" toml:"maximum_age"`
	Latitude   float64       `envconfig:"LOCATION_LATITUDE" default:"37.5665" toml:"latitude"`
	Longitude  float64       `envconfig:"LOCATION_LONGITUDE" default:"126.978" toml:"longitude"`
}

// PromptConfig selects how native dialogs are answered.
type PromptConfig struct {
	Mode string `envconfig:"PROMPT_MODE" default:"terminal" toml:"mode"` // "terminal", "cancel", "confirm"
}

// Load loads configuration from environment variables, then overlays the
// TOML file named by SHELL_CONFIG when set.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if path := os.Getenv("SHELL_CONFIG"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	cfg.settle()
	return &cfg, nil
}

// settle fills settings derived from other settings.
func (c *Config) settle() {
	// Dialogs own the terminal; logs must not be drawn over them.
	if (c.Prompt.Mode == PromptTerminal || c.Prompt.Mode == "") && c.Logging.File == "" {
		c.Logging.File = TerminalLogFile
	}
}

// overlayFile decodes a TOML document onto cfg. Keys absent from the file
// keep their current value.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "127.0.0.1",
		},
		Surface: SurfaceConfig{
			OriginURL:    "https://mobile.wiselabpms.co.kr",
			BridgePath:   "/bridge",
			AllowOrigin:  []string{"*"},
			MessageRate:  50,
			MessageBurst: 100,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
			File:        TerminalLogFile,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Token: TokenConfig{
			Backend:     "file",
			Path:        "/tmp/pms-shell/auth_token",
			RedisURL:    "redis://localhost:6379/0",
			RedisKey:    "shell:auth_token",
			RedisPool:   4,
			DialTimeout: 5 * time.Second,
		},
		Permission: PermissionConfig{
			Platform:    "android",
			StateFile:   "/tmp/pms-shell/permissions.yaml",
			SettingsURL: "app-settings:",
		},
		Location: LocationConfig{
			Provider:   "geoip",
			Endpoint:   "http://ip-api.com/json",
			Timeout:    15 * time.Second,
			MaximumAge: 10 * time.Second,
			Latitude:   37.5665,
			Longitude:  126.978,
		},
		Prompt: PromptConfig{
			Mode: PromptTerminal,
		},
	}
}
