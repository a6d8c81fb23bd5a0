package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/locali.db", cfg.DBPath)
	assert.True(t, cfg.UsingDevSecret())
	assert.Equal(t, 168*time.Hour, cfg.TokenTTL)
	assert.Empty(t, cfg.PlacesAPIKey)
	assert.Equal(t, "https://maps.googleapis.com/maps/api/place", cfg.PlacesBaseURL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"PORT":            "9000",
		"DB_PATH":         "/tmp/x.db",
		"JWT_SECRET":      "a-production-secret-value",
		"TOKEN_TTL":       "30m",
		"PLACES_API_KEY":  "key-123",
		"PLACES_BASE_URL": "http://places.local/api/",
		"CORS_ORIGINS":    "https://locali.app, https://www.locali.app ,",
		"LOG_LEVEL":       "WARN",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.False(t, cfg.UsingDevSecret())
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "key-123", cfg.PlacesAPIKey)
	assert.Equal(t, "http://places.local/api", cfg.PlacesBaseURL)
	assert.Equal(t, []string{"https://locali.app", "https://www.locali.app"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestFromLookup_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"port not a number": {"PORT": "eighty"},
		"port out of range": {"PORT": "70000"},
		"bad ttl":           {"TOKEN_TTL": "forever"},
		"negative ttl":      {"TOKEN_TTL": "-1h"},
		"bad log level":     {"LOG_LEVEL": "loud"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromLookup(lookupFrom(env))
			assert.Error(t, err)
		})
	}
}
