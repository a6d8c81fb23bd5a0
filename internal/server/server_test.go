package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/locali/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		Port:          0,
		DBPath:        ":memory:",
		JWTSecret:     "server-test-secret-0123456789",
		TokenTTL:      time.Hour,
		AvatarBaseURL: "https://avatars.test/svg",
		CORSOrigins:   []string{"http://localhost:5173"},
		LogLevel:      slog.LevelError,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	srv, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestNew_RejectsShortSecret(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(config.Config{DBPath: ":memory:", JWTSecret: "short"}, logger)
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/health", http.StatusOK},
		{http.MethodGet, "/api/countries", http.StatusOK},
		{http.MethodGet, "/api/lists", http.StatusOK},
		{http.MethodGet, "/api/lists/missing", http.StatusNotFound},
		{http.MethodGet, "/api/cities/missing", http.StatusNotFound},
		{http.MethodGet, "/api/countries/missing/cities", http.StatusNotFound},
		{http.MethodGet, "/api/cities/search?q=lis", http.StatusOK},
		{http.MethodGet, "/api/cities/lookup/abc", http.StatusOK},
		{http.MethodGet, "/api/places/abc", http.StatusOK},
		{http.MethodGet, "/api/users", http.StatusUnauthorized},
		{http.MethodGet, "/api/users/me", http.StatusUnauthorized},
		{http.MethodGet, "/api/users/me/liked-lists", http.StatusUnauthorized},
		{http.MethodGet, "/api/users/me/locations", http.StatusUnauthorized},
		{http.MethodPost, "/api/lists", http.StatusUnauthorized},
		{http.MethodPost, "/api/lists/abc/like", http.StatusUnauthorized},
		{http.MethodGet, "/api/nothing-here", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
		})
	}
}

func TestRegisterThenMe(t *testing.T) {
	h := newTestServer(t).Handler()

	body := `{"name":"Ana Souza","email":"ana@example.com","password":"correct horse"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/lists", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	req = httptest.NewRequest(http.MethodGet, "/api/lists", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/lists", nil))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `locali_http_requests_total{method="GET",route="/api/lists",status="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
