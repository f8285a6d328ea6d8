package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/nexaguard/internal/sui"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if !had {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "ENV", "LOG_LEVEL", "LOG_FORMAT", "REQUEST_TIMEOUT", "CORS_ALLOWED_ORIGINS",
		"SUI_NETWORK", "SUI_NODE_URL", "SUI_RPC_TIMEOUT", "BREAKER_THRESHOLD", "BREAKER_COOLDOWN",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		setEnv(t, k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, sui.MainnetURL, cfg.SuiNodeURL)
	assert.Equal(t, "mainnet", cfg.SuiNetwork)
	assert.Equal(t, DefaultSuiRPCTimeout, cfg.SuiRPCTimeout)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, DefaultBreakerThreshold, cfg.BreakerThreshold)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	setEnv(t, "PORT", "9090")
	setEnv(t, "SUI_NODE_URL", "http://localhost:9000")
	setEnv(t, "SUI_RPC_TIMEOUT", "2s")
	setEnv(t, "BREAKER_THRESHOLD", "3")
	setEnv(t, "CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	setEnv(t, "ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://localhost:9000", cfg.SuiNodeURL)
	assert.Equal(t, 2*time.Second, cfg.SuiRPCTimeout)
	assert.Equal(t, 3, cfg.BreakerThreshold)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_NetworkSelectsFullnode(t *testing.T) {
	clearEnv(t)
	setEnv(t, "SUI_NETWORK", "Testnet")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, sui.TestnetURL, cfg.SuiNodeURL)
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	clearEnv(t)
	setEnv(t, "REQUEST_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Port:             "4000",
		SuiNodeURL:       sui.MainnetURL,
		SuiRPCTimeout:    time.Second,
		RequestTimeout:   time.Second,
		BreakerThreshold: 1,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing node url", func(c *Config) { c.SuiNodeURL = "" }, "SUI_NODE_URL is required"},
		{"bad scheme", func(c *Config) { c.SuiNodeURL = "ftp://node" }, "http(s) URL"},
		{"bad port", func(c *Config) { c.Port = "eighty" }, "PORT must be numeric"},
		{"zero rpc timeout", func(c *Config) { c.SuiRPCTimeout = 0 }, "SUI_RPC_TIMEOUT"},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }, "REQUEST_TIMEOUT"},
		{"zero threshold", func(c *Config) { c.BreakerThreshold = 0 }, "BREAKER_THRESHOLD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
