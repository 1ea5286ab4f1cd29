package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Model     ModelConfig
	Extract   ExtractConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port     int
	Env      string
	LogLevel string
	// WriteTimeout of zero leaves long generations uninterrupted
	WriteTimeout time.Duration
}

// ModelConfig describes the completions server hosting the language model.
type ModelConfig struct {
	// URL is the base URL of an OpenAI-compatible completions server
	URL    string
	Name   string
	APIKey string
	// Timeout of zero means no client-side timeout
	Timeout time.Duration
	// MaxLength caps the max_length a request may ask for
	MaxLength int
}

// ExtractConfig holds the tunable filter sets of the extraction pipeline.
// Nil slices mean "use the built-in defaults".
type ExtractConfig struct {
	StopPrefixes     []string
	NegationPrefixes []string
	// PrefixesFile is a YAML file that overrides both sets
	PrefixesFile string
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

// RateLimitConfig guards the generate endpoint. RPS of zero disables it.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func (c *Config) IsDev() bool {
	return c.Server.Env == "development"
}

// Load reads configuration from the environment, after loading envFiles
// (default ".env") into it. Missing env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", 8000)
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "0s")
	v.SetDefault("MODEL_URL", "http://localhost:8001")
	v.SetDefault("MODEL_NAME", "microsoft/BioGPT-Large")
	v.SetDefault("MODEL_API_KEY", "")
	v.SetDefault("MODEL_TIMEOUT", "0s")
	v.SetDefault("MODEL_MAX_LENGTH", 512)
	v.SetDefault("EXTRACT_STOP_PREFIXES", "")
	v.SetDefault("EXTRACT_NEGATION_PREFIXES", "")
	v.SetDefault("EXTRACT_PREFIXES_FILE", "")
	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetInt("SERVER_PORT"),
			Env:          v.GetString("ENV"),
			LogLevel:     v.GetString("LOG_LEVEL"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		Model: ModelConfig{
			URL:       strings.TrimRight(v.GetString("MODEL_URL"), "/"),
			Name:      v.GetString("MODEL_NAME"),
			APIKey:    v.GetString("MODEL_API_KEY"),
			Timeout:   v.GetDuration("MODEL_TIMEOUT"),
			MaxLength: v.GetInt("MODEL_MAX_LENGTH"),
		},
		Extract: ExtractConfig{
			StopPrefixes:     splitList(v.GetString("EXTRACT_STOP_PREFIXES")),
			NegationPrefixes: splitList(v.GetString("EXTRACT_NEGATION_PREFIXES")),
			PrefixesFile:     v.GetString("EXTRACT_PREFIXES_FILE"),
		},
		Auth: AuthConfig{
			Enabled:   v.GetBool("AUTH_ENABLED"),
			JWTSecret: v.GetString("JWT_SECRET"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail at request time.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Model.URL == "" {
		return fmt.Errorf("MODEL_URL is required")
	}
	if c.Model.MaxLength < 1 {
		return fmt.Errorf("MODEL_MAX_LENGTH must be positive, got %d", c.Model.MaxLength)
	}
	if c.Model.Timeout < 0 {
		return fmt.Errorf("MODEL_TIMEOUT must not be negative")
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_ENABLED is set")
	}
	return nil
}

// splitList parses a comma-separated list. An unset value yields nil.
// Entries are not trimmed on the right so "no " keeps its trailing space.
func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimLeft(part, " \t")
		if strings.TrimSpace(part) != "" {
			result = append(result, part)
		}
	}
	return result
}
