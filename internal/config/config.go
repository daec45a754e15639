package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const EnvProduction = "production"

type Config struct {
	Env      string `koanf:"app_env"`
	Port     int    `koanf:"port"`
	LogLevel string `koanf:"log_level"`
	BaseURL  string `koanf:"base_url"`

	AllowedOrigins []string `koanf:"allowed_origins"`

	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`

	// RedisAddr enables the shared rate limiter when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`

	JWTSecret   string        `koanf:"jwt_secret"`
	JWTTTL      time.Duration `koanf:"jwt_ttl"`
	SessionKey  string        `koanf:"session_key"`
	TokenSecret string        `koanf:"token_secret"`

	SpotifyClientID     string   `koanf:"spotify_client_id"`
	SpotifyClientSecret string   `koanf:"spotify_client_secret"`
	SpotifyAPIURL       string   `koanf:"spotify_api_url"`
	SpotifyScopes       []string `koanf:"spotify_scopes"`

	OpenAIAPIKey  string `koanf:"openai_api_key"`
	OpenAIModel   string `koanf:"openai_model"`
	OpenAIBaseURL string `koanf:"openai_base_url"`

	// DevSpotifyUserID substitutes an identity for unauthenticated requests
	// outside production.
	DevSpotifyUserID string `koanf:"dev_spotify_user_id"`

	BatchRateLimit  int           `koanf:"batch_rate_limit"`
	BatchRateWindow time.Duration `koanf:"batch_rate_window"`
}

func defaultConfig() Config {
	return Config{
		Env:             "development",
		Port:            8080,
		LogLevel:        "info",
		BaseURL:         "http://localhost:8080",
		MongoDatabase:   "cratedigger",
		JWTTTL:          24 * time.Hour,
		SpotifyAPIURL:   "https://api.spotify.com/v1",
		SpotifyScopes:   []string{"user-read-email", "user-library-read", "streaming", "user-read-private"},
		OpenAIModel:     "gpt-5-nano",
		BatchRateLimit:  10,
		BatchRateWindow: time.Minute,
	}
}

// Load layers environment variables (and a .env file) over the defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Keys are kept flat: SPOTIFY_CLIENT_ID -> spotify_client_id.
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for _, key := range []string{"allowed_origins", "spotify_scopes"} {
		if raw, ok := k.Get(key).(string); ok {
			if err := k.Set(key, splitList(raw)); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", key, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// BypassEnabled reports whether unauthenticated requests may run as DevSpotifyUserID.
func (c *Config) BypassEnabled() bool {
	return !c.IsProduction() && c.DevSpotifyUserID != ""
}

func (c *Config) Validate() error {
	var errs []error
	if c.IsProduction() && c.DevSpotifyUserID != "" {
		errs = append(errs, errors.New("DEV_SPOTIFY_USER_ID must not be set in production"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.TokenSecret == "" {
		errs = append(errs, errors.New("TOKEN_SECRET is required"))
	}
	if c.IsProduction() && (c.SpotifyClientID == "" || c.SpotifyClientSecret == "") {
		errs = append(errs, errors.New("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET are required in production"))
	}
	if c.BatchRateLimit <= 0 || c.BatchRateWindow <= 0 {
		errs = append(errs, errors.New("batch rate limit requires positive limit and window"))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
