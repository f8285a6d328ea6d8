// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mbd888/nexaguard/internal/sui"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port           string
	Env            string // "development", "staging", "production"
	LogLevel       string
	LogFormat      string // "json" or "text"
	RequestTimeout time.Duration
	AllowedOrigins []string

	// Sui fullnode
	SuiNetwork       string
	SuiNodeURL       string
	SuiRPCTimeout    time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration

	// Tracing (optional, disabled when empty)
	OTLPEndpoint string
}

const (
	DefaultPort             = "4000"
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultSuiNetwork       = "mainnet"
	DefaultSuiRPCTimeout    = 15 * time.Second
	DefaultRequestTimeout   = 30 * time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	network := strings.ToLower(getEnv("SUI_NETWORK", DefaultSuiNetwork))

	cfg := &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:        getEnv("LOG_FORMAT", DefaultLogFormat),
		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", DefaultRequestTimeout),
		AllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS"),
		SuiNetwork:       network,
		SuiNodeURL:       getEnv("SUI_NODE_URL", sui.FullnodeURL(network)),
		SuiRPCTimeout:    getEnvDuration("SUI_RPC_TIMEOUT", DefaultSuiRPCTimeout),
		BreakerThreshold: int(getEnvInt64("BREAKER_THRESHOLD", DefaultBreakerThreshold)),
		BreakerCooldown:  getEnvDuration("BREAKER_COOLDOWN", DefaultBreakerCooldown),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.SuiNodeURL == "" {
		return fmt.Errorf("SUI_NODE_URL is required")
	}
	u, err := url.Parse(c.SuiNodeURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SUI_NODE_URL must be an http(s) URL, got %q", c.SuiNodeURL)
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if c.SuiRPCTimeout <= 0 {
		return fmt.Errorf("SUI_RPC_TIMEOUT must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.BreakerThreshold < 1 {
		return fmt.Errorf("BREAKER_THRESHOLD must be at least 1")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
