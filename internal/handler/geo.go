package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/locali/internal/service"
)

// GeoHandler serves countries, cities and city search.
type GeoHandler struct {
	geo    *service.GeoService
	places *service.PlaceService
	logger *slog.Logger
}

func NewGeoHandler(geo *service.GeoService, places *service.PlaceService, logger *slog.Logger) *GeoHandler {
	return &GeoHandler{geo: geo, places: places, logger: logger}
}

// HandleCountries: GET /api/countries
func (h *GeoHandler) HandleCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.geo.ListCountries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

// HandleCountryCities: GET /api/countries/{id}/cities
func (h *GeoHandler) HandleCountryCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.geo.ListCities(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

// HandleCity: GET /api/cities/{id}
func (h *GeoHandler) HandleCity(w http.ResponseWriter, r *http.Request) {
	detail, err := h.geo.GetCity(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleSearch: GET /api/cities/search?q=port
//
// Suggestions come straight from the places provider; with no API key the
// result is simply empty.
func (h *GeoHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	predictions, err := h.places.SearchCities(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.Debug("city search", slog.String("q", q), slog.Int("results", len(predictions)))
	writeJSON(w, http.StatusOK, predictions)
}

// HandleLookup: GET /api/cities/lookup/{placeId}
func (h *GeoHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	lookup, err := h.places.CityLookup(r.Context(), r.PathValue("placeId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !lookup.Found {
		h.logger.Warn("city lookup found nothing", slog.String("placeID", lookup.PlaceID))
	}
	writeJSON(w, http.StatusOK, lookup)
}
