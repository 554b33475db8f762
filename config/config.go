// Package config loads the service configuration from the environment.
// A .env file in the working directory is honored when present.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderModelsLab = "modelslab"
	ProviderOpenAI    = "openai"
)

type Config struct {
	Port           string
	AllowedOrigins string
	BodyLimitBytes int
	RateLimitMax   int
	RateLimitWin   time.Duration

	DB DBConfig

	JWTSecret string
	JWTTTL    time.Duration

	LLM LLMConfig

	Stripe StripeConfig

	FreeReviewLimit int

	LogLevel  string
	LogFormat string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string

	MaxOpenConns int
}

// DSN renders the Postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone)
}

// LLMConfig is injected into the review client at construction.
type LLMConfig struct {
	Provider  string
	Endpoint  string
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	ProPriceID    string
	TeamPriceID   string
	AppURL        string
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}

	bodyLimit := envInt("BODY_LIMIT_BYTES", 0)
	if bodyLimit <= 0 {
		bodyLimit = envInt("BODY_LIMIT_MB", 1) * 1024 * 1024
	}

	provider := strings.ToLower(envString("LLM_PROVIDER", ProviderModelsLab))
	endpoint := envString("LLM_ENDPOINT", "")
	if endpoint == "" && provider == ProviderModelsLab {
		endpoint = "https://modelslab.com/api/v6/llm/uncensored_chat"
	}

	cfg := &Config{
		Port:           envString("PORT", "8080"),
		AllowedOrigins: envString("ALLOWED_ORIGINS", "*"),
		BodyLimitBytes: bodyLimit,
		RateLimitMax:   envInt("RATE_LIMIT_MAX", 60),
		RateLimitWin:   time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		DB: DBConfig{
			Host:     envString("DB_HOST", "db"),
			Port:     envInt("DB_PORT", 5432),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  envString("DB_SSLMODE", "disable"),
			TimeZone: envString("DB_TIMEZONE", "UTC"),

			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 10),
		},
		JWTSecret: firstNonEmpty(os.Getenv("JWT_SECRET_KEY"), os.Getenv("JWT_SECRET")),
		JWTTTL:    envDuration("JWT_TTL", 24*time.Hour),
		LLM: LLMConfig{
			Provider:  provider,
			Endpoint:  endpoint,
			APIKey:    firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("MODELS_LAB_API_KEY")),
			Model:     envString("LLM_MODEL", "gpt-4o-mini"),
			Timeout:   envDuration("LLM_TIMEOUT", 30*time.Second),
			MaxTokens: envInt("LLM_MAX_TOKENS", 2000),
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			ProPriceID:    os.Getenv("STRIPE_PRO_PRICE_ID"),
			TeamPriceID:   os.Getenv("STRIPE_TEAM_PRICE_ID"),
			AppURL:        strings.TrimRight(envString("APP_URL", "http://localhost:3000"), "/"),
		},
		FreeReviewLimit: envInt("FREE_REVIEW_LIMIT", 10),
		LogLevel:        envString("LOG_LEVEL", "info"),
		LogFormat:       envString("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT secret not configured (set JWT_SECRET_KEY or JWT_SECRET)"))
	}
	switch c.LLM.Provider {
	case ProviderModelsLab, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider))
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("LLM_API_KEY must be set"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT must be positive"))
	}
	if c.FreeReviewLimit < 0 {
		errs = append(errs, errors.New("FREE_REVIEW_LIMIT must not be negative"))
	}
	return errors.Join(errs...)
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// envDuration accepts Go durations ("30s") or plain seconds ("30").
func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
