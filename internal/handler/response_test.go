package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sakif/locali/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		errorType string
		message   string
		field     string
	}{
		{"validation", apperror.ValidationFailed("name", "name is required"), http.StatusBadRequest, "validation_error", "name is required", "name"},
		{"unauthorized", apperror.Unauthorized("invalid email or password"), http.StatusUnauthorized, "unauthorized", "invalid email or password", ""},
		{"not found", apperror.NotFound("list", "abc"), http.StatusNotFound, "not_found", "list not found with id abc", ""},
		{"conflict", apperror.Conflict("like", "abc"), http.StatusConflict, "conflict", "", ""},
		{"wrapped not found", fmt.Errorf("service: %w", apperror.NotFound("city", "x")), http.StatusNotFound, "not_found", "city not found with id x", ""},
		{"unknown", errors.New("disk I/O error at /var/lib/locali.db"), http.StatusInternalServerError, "internal_error", "An internal error occurred", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.errorType, body.Error)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
			assert.Equal(t, tt.field, body.Field)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"Portland"}`, ""},
		{"empty", ``, "request body is required"},
		{"malformed", `{"name":`, "request body is not valid JSON"},
		{"wrong type", `{"name":42}`, "request body is not valid JSON"},
		{"two values", `{"name":"a"}{"name":"b"}`, "request body must be a single JSON object"},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, "request body must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			var dst payload
			err := decodeJSON(rr, req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Portland", dst.Name)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "body", appErr.Field)
			assert.Contains(t, appErr.Message, tt.wantErr)
		})
	}
}

func TestPageOptions(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users?limit=5&offset=10", nil)
	opts := pageOptions(req)
	assert.Equal(t, 5, opts.Limit)
	assert.Equal(t, 10, opts.Offset)

	req = httptest.NewRequest(http.MethodGet, "/api/users?limit=lots", nil)
	opts = pageOptions(req)
	assert.Zero(t, opts.Limit)
	assert.Zero(t, opts.Offset)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{`45.5`, ptr(45.5)},
		{`-122`, ptr(-122.0)},
		{`"45.5"`, ptr(45.5)},
		{`" 12 "`, ptr(12.0)},
		{`null`, nil},
		{``, nil},
		{`"north"`, nil},
		{`"NaN"`, nil},
		{`"Inf"`, nil},
		{`true`, nil},
		{`{}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := parseNumber(json.RawMessage(tt.raw))
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		raw  string
		want *int
	}{
		{`2`, ptr(2)},
		{`2.0`, ptr(2)},
		{`"7"`, ptr(7)},
		{`-1`, ptr(-1)},
		{`2.5`, nil},
		{`"second"`, nil},
		{`1e12`, nil},
		{`null`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := parseInteger(json.RawMessage(tt.raw))
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func ptr[T any](v T) *T { return &v }
