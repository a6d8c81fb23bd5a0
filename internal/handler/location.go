package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/locali/internal/model"
	"github.com/sakif/locali/internal/service"
)

// LocationHandler manages the signed-in user's cities.
type LocationHandler struct {
	svc    *service.LocationService
	logger *slog.Logger
}

func NewLocationHandler(svc *service.LocationService, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{svc: svc, logger: logger}
}

// locationRequest names a city by id, or by country and city name for a
// city picked from autocomplete that may not be stored yet.
type locationRequest struct {
	CityID      string   `json:"cityId"`
	CountryName string   `json:"countryName"`
	CountryCode string   `json:"countryCode"`
	CityName    string   `json:"cityName"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Status      string   `json:"status"`
}

func (req locationRequest) input() service.AddLocationInput {
	return service.AddLocationInput{
		CityID:      req.CityID,
		CountryName: req.CountryName,
		CountryCode: req.CountryCode,
		CityName:    req.CityName,
		Lat:         req.Lat,
		Lng:         req.Lng,
		Status:      model.LocationStatus(req.Status),
	}
}

// HandleList: GET /api/users/me/locations
func (h *LocationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	locs, err := h.svc.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

// HandleAdd: POST /api/users/me/locations
// REQUEST BODY: {"cityId":"...","status":"BORN_THERE"}
// or {"countryName":"Japan","cityName":"Osaka","status":"LIVED_PAST"}
//
// Responds 201 with the user's full, updated location list.
func (h *LocationHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req locationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	locs, err := h.svc.Add(r.Context(), userID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, locs)
}

type replaceLocationsRequest struct {
	Locations []locationRequest `json:"locations"`
}

// HandleReplace: PUT /api/users/me/locations
// REQUEST BODY: {"locations":[...]}; an empty array clears every location.
func (h *LocationHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req replaceLocationsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	inputs := make([]service.AddLocationInput, len(req.Locations))
	for i, l := range req.Locations {
		inputs[i] = l.input()
	}

	locs, err := h.svc.Replace(r.Context(), userID, inputs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

// HandleRemove: DELETE /api/users/me/locations/{cityId}
func (h *LocationHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cityID := r.PathValue("cityId")
	if err := h.svc.Remove(r.Context(), userID, cityID); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("location removed", slog.String("userID", userID), slog.String("cityID", cityID))
	w.WriteHeader(http.StatusNoContent)
}
