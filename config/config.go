// Package config provides environment-driven application configuration for
// the personamesh server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/personamesh/engine"
)

// Provider names for the generative backend.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config holds all server configuration.
type Config struct {
	Port      string
	Provider  string
	Model     string // optional model override, provider default when empty
	AMQPURL   string // empty disables the broker, sessions run in-memory
	LogLevel  string
	LogFormat string // "json" or "text"
	Engine    engine.Config
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	eng := engine.DefaultConfig
	eng.MaxConversationTurns = getEnvInt("MAX_CONVERSATION_TURNS", eng.MaxConversationTurns)
	eng.MaxActionRetries = getEnvInt("MAX_ACTION_RETRIES", eng.MaxActionRetries)
	eng.GenerationTimeout = getEnvDuration("GENERATION_TIMEOUT", eng.GenerationTimeout)
	eng.FollowUpDelayMin = getEnvDuration("FOLLOWUP_DELAY_MIN", eng.FollowUpDelayMin)
	eng.FollowUpDelayMax = getEnvDuration("FOLLOWUP_DELAY_MAX", eng.FollowUpDelayMax)

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		Provider:  strings.ToLower(getEnv("MODEL_PROVIDER", ProviderMock)),
		Model:     getEnv("MODEL_NAME", ""),
		AMQPURL:   getEnv("AMQP_URL", ""),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		Engine:    eng,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		return fmt.Errorf("MODEL_PROVIDER must be one of openai, anthropic, mock; got %q", c.Provider)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text; got %q", c.LogFormat)
	}
	if c.Engine.MaxConversationTurns <= 0 {
		return fmt.Errorf("MAX_CONVERSATION_TURNS must be > 0")
	}
	if c.Engine.GenerationTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
