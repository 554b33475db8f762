package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("LLM_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ProviderModelsLab, cfg.LLM.Provider)
	assert.Equal(t, "https://modelslab.com/api/v6/llm/uncensored_chat", cfg.LLM.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, 10, cfg.FreeReviewLimit)
	assert.Equal(t, 1024*1024, cfg.BodyLimitBytes)
}

func TestLoadOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JWT_SECRET", "fallback-secret")
	t.Setenv("MODELS_LAB_API_KEY", "ml-key")
	t.Setenv("LLM_TIMEOUT", "45")
	t.Setenv("FREE_REVIEW_LIMIT", "3")
	t.Setenv("APP_URL", "https://roast.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "fallback-secret", cfg.JWTSecret)
	assert.Equal(t, "ml-key", cfg.LLM.APIKey)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.FreeReviewLimit)
	assert.Equal(t, "https://roast.example.com", cfg.Stripe.AppURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing jwt secret", mutate: func(c *Config) { c.JWTSecret = " " }, wantErr: "JWT secret"},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "carrier-pigeon" }, wantErr: "LLM_PROVIDER"},
		{name: "missing llm key", mutate: func(c *Config) { c.LLM.APIKey = "" }, wantErr: "LLM_API_KEY"},
		{name: "zero timeout", mutate: func(c *Config) { c.LLM.Timeout = 0 }, wantErr: "LLM_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				JWTSecret: "s",
				LLM:       LLMConfig{Provider: ProviderOpenAI, APIKey: "k", Timeout: time.Second},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "roast", SSLMode: "disable", TimeZone: "UTC"}
	assert.Equal(t, "host=db user=u password=p dbname=roast port=5432 sslmode=disable TimeZone=UTC", c.DSN())
}

// chdirTemp moves into an empty directory so a developer's .env is not picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
