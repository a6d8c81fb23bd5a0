package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/locali/internal/service"
)

type PlaceHandler struct {
	svc    *service.PlaceService
	logger *slog.Logger
}

func NewPlaceHandler(svc *service.PlaceService, logger *slog.Logger) *PlaceHandler {
	return &PlaceHandler{svc: svc, logger: logger}
}

// HandleDetails: GET /api/places/{placeId}
//
// Always 200 for a non-empty id: when the provider is unavailable the
// provider fields are null and the stored place (if any) fills in.
func (h *PlaceHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Details(r.Context(), r.PathValue("placeId"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.Debug("place details served",
		slog.String("placeID", detail.ExternalID),
		slog.Bool("stored", detail.Place != nil),
		slog.Int("photos", len(detail.Photos)),
	)
	writeJSON(w, http.StatusOK, detail)
}
