// Package config reads server settings from the environment and an optional
// .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Suggestion backends.
const (
	BackendLocal  = "local"
	BackendGemini = "gemini"
)

type Config struct {
	LogLevel  string
	LogFormat string

	// CacheSize is the number of decoded images kept in memory.
	CacheSize int

	// ProcessingWidth caps the width top-down photos are analyzed at.
	ProcessingWidth   int
	Sensitivity       float64
	DetailSuppression float64

	SuggestBackend string
	GeminiAPIKey   string
	GeminiModel    string
}

// LoadFromEnv loads .env when present, then reads the ROOFLINE_* variables.
// Values that do not parse or fall outside their range are errors.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel:       strings.ToLower(getEnvOrDefault("ROOFLINE_LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnvOrDefault("ROOFLINE_LOG_FORMAT", "text")),
		SuggestBackend: strings.ToLower(getEnvOrDefault("ROOFLINE_SUGGEST_BACKEND", BackendLocal)),
		GeminiAPIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:    getEnvOrDefault("ROOFLINE_GEMINI_MODEL", "gemini-2.5-flash"),
	}

	var err error
	if cfg.CacheSize, err = parseIntOrDefault("ROOFLINE_CACHE_SIZE", 32); err != nil {
		return nil, err
	}
	if cfg.ProcessingWidth, err = parseIntOrDefault("ROOFLINE_PROCESSING_WIDTH", 800); err != nil {
		return nil, err
	}
	if cfg.Sensitivity, err = parseFloatOrDefault("ROOFLINE_SENSITIVITY", 0.5); err != nil {
		return nil, err
	}
	if cfg.DetailSuppression, err = parseFloatOrDefault("ROOFLINE_DETAIL_SUPPRESSION", 0.25); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and backend requirements.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid ROOFLINE_LOG_LEVEL: %q", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid ROOFLINE_LOG_FORMAT: %q", c.LogFormat)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("ROOFLINE_CACHE_SIZE must be > 0 (got %d)", c.CacheSize)
	}
	if c.ProcessingWidth < 64 || c.ProcessingWidth > 4096 {
		return fmt.Errorf("ROOFLINE_PROCESSING_WIDTH must be in [64, 4096] (got %d)", c.ProcessingWidth)
	}
	if c.Sensitivity < 0 || c.Sensitivity > 1 {
		return fmt.Errorf("ROOFLINE_SENSITIVITY must be in [0, 1] (got %v)", c.Sensitivity)
	}
	if c.DetailSuppression < 0 || c.DetailSuppression > 1 {
		return fmt.Errorf("ROOFLINE_DETAIL_SUPPRESSION must be in [0, 1] (got %v)", c.DetailSuppression)
	}
	switch c.SuggestBackend {
	case BackendLocal:
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("ROOFLINE_SUGGEST_BACKEND=gemini requires GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("invalid ROOFLINE_SUGGEST_BACKEND: %q (want local or gemini)", c.SuggestBackend)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return n, nil
}

func parseFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return f, nil
}
