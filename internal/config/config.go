// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// TokenEnv is the variable holding the Graph API bearer token. It is read
// on every outbound call, never cached in Config.
const TokenEnv = "WHATS_TOKEN"

// Config holds all application configuration.
type Config struct {
	Port     string `env:"PORT" envDefault:"3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	MaxBody  int64  `env:"MAX_BODY_BYTES" envDefault:"10485760"`

	VerifyToken   string        `env:"VERIFY_TOKEN"`
	PhoneNumberID string        `env:"PHONE_NUMBER_ID"`
	GraphURL      string        `env:"GRAPH_API_URL" envDefault:"https://graph.facebook.com/v20.0"`
	GraphTimeout  time.Duration `env:"GRAPH_TIMEOUT" envDefault:"30s"`

	LilaStickerID  string   `env:"LILA_ID_1"`
	DoryStickerID  string   `env:"DORY_ID_1"`
	ThanksStickers []string `env:"THANKS_STICKER_IDS" envSeparator:","`

	Generation GenerationConfig `envPrefix:"GENERATION_"`
	State      StateConfig      `envPrefix:"STATE_"`

	RepliesPath string `env:"REPLIES_PATH"`
}

// GenerationConfig configures the text-generation backend.
type GenerationConfig struct {
	APIKey      string        `env:"API_KEY"`
	BaseURL     string        `env:"BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	Model       string        `env:"MODEL" envDefault:"gemini-2.0-flash"`
	MaxTokens   int           `env:"MAX_TOKENS" envDefault:"512"`
	Temperature float64       `env:"TEMPERATURE" envDefault:"0.9"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"20s"`

	// RateLimit is the number of generation calls a sender may make per
	// RateWindow. Zero disables limiting.
	RateLimit  int           `env:"RATE_LIMIT" envDefault:"20"`
	RateWindow time.Duration `env:"RATE_WINDOW" envDefault:"1m"`
}

// StateConfig selects where sessions and counters are kept.
type StateConfig struct {
	Backend     string `env:"BACKEND" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH" envDefault:"./data/lilabot.db"`
	Dir         string `env:"DIR" envDefault:"./data/state"`
	RedisURL    string `env:"REDIS_URL"`
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"lilabot"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.VerifyToken == "" {
		return fmt.Errorf("VERIFY_TOKEN cannot be empty")
	}
	if c.PhoneNumberID == "" {
		return fmt.Errorf("PHONE_NUMBER_ID cannot be empty")
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be > 0")
	}
	if c.Generation.RateLimit < 0 {
		return fmt.Errorf("GENERATION_RATE_LIMIT must be >= 0")
	}
	if c.Generation.RateLimit > 0 && c.Generation.RateWindow <= 0 {
		return fmt.Errorf("GENERATION_RATE_WINDOW must be > 0")
	}
	if c.MaxBody <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be > 0")
	}
	switch strings.ToLower(c.State.Backend) {
	case "sqlite":
		if c.State.DBPath == "" {
			return fmt.Errorf("STATE_DB_PATH cannot be empty")
		}
	case "file":
		if c.State.Dir == "" {
			return fmt.Errorf("STATE_DIR cannot be empty")
		}
	case "redis":
		if c.State.RedisURL == "" {
			return fmt.Errorf("STATE_REDIS_URL cannot be empty")
		}
	case "memory":
	default:
		return fmt.Errorf("STATE_BACKEND must be one of sqlite, file, redis, memory")
	}
	return nil
}

// StickerIDs returns the configured thank-you stickers without blanks or
// duplicates.
func (c *Config) StickerIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, id := range append([]string{c.LilaStickerID, c.DoryStickerID}, c.ThanksStickers...) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
