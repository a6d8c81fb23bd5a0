// Package config loads runtime settings from the environment.
//
// A .env file in the working directory is loaded first when present (via
// godotenv), but real environment variables always win: godotenv.Load never
// overwrites a variable that is already set. Every setting has a fallback
// that works for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevJWTSecret is used when JWT_SECRET is unset. Never deploy with it.
const DevJWTSecret = "locali-dev-secret-change-me"

type Config struct {
	Port   int
	DBPath string

	JWTSecret string
	TokenTTL  time.Duration

	PlacesAPIKey  string
	PlacesBaseURL string
	AvatarBaseURL string

	CORSOrigins []string
	LogLevel    slog.Level
}

// UsingDevSecret reports whether the token secret is the built-in fallback.
func (c Config) UsingDevSecret() bool {
	return c.JWTSecret == DevJWTSecret
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary lookup function, so tests do
// not have to mutate the real environment.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := Config{
		DBPath:        get("DB_PATH", "data/locali.db"),
		JWTSecret:     get("JWT_SECRET", DevJWTSecret),
		PlacesAPIKey:  get("PLACES_API_KEY", ""),
		PlacesBaseURL: strings.TrimRight(get("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"), "/"),
		AvatarBaseURL: get("AVATAR_BASE_URL", "https://api.dicebear.com/9.x/initials/svg"),
	}

	port, err := strconv.Atoi(get("PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("config: invalid PORT %q", get("PORT", ""))
	}
	cfg.Port = port

	ttl, err := time.ParseDuration(get("TOKEN_TTL", "168h"))
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("config: invalid TOKEN_TTL %q", get("TOKEN_TTL", ""))
	}
	cfg.TokenTTL = ttl

	for _, origin := range strings.Split(get("CORS_ORIGINS", "http://localhost:3000"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	// slog.Level understands "debug", "info", "warn", "error" (any case).
	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "debug"))); err != nil {
		return Config{}, fmt.Errorf("config: invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}
