package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is satisfied by *sqlite.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the API can reach its database. The places
// provider is reported but never makes the service unhealthy: enrichment
// degrades on its own.
type HealthHandler struct {
	db            Pinger
	placesEnabled bool
	logger        *slog.Logger
}

func NewHealthHandler(db Pinger, placesEnabled bool, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, placesEnabled: placesEnabled, logger: logger}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Places   string `json:"places"`
}

// HandleHealth: GET /api/health. 200 when healthy, 503 otherwise.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Places: "disabled"}
	if h.placesEnabled {
		resp.Places = "enabled"
	}

	status := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check: database unreachable", slog.String("error", err.Error()))
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
