package handler

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/locali/internal/auth"
	"github.com/sakif/locali/internal/model"
	"github.com/sakif/locali/internal/repository"
	"github.com/sakif/locali/internal/service"
)

// ListHandler serves list browsing, creation and likes.
type ListHandler struct {
	svc    *service.ListService
	logger *slog.Logger
}

func NewListHandler(svc *service.ListService, logger *slog.Logger) *ListHandler {
	return &ListHandler{svc: svc, logger: logger}
}

// listItemRequest mirrors one entry of the list editor. Coordinates and
// order are decoded loosely (json.Number, strings, nulls) so that a single
// malformed item is dropped or renumbered instead of failing the request.
type listItemRequest struct {
	ExternalID  string          `json:"externalId"`
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	Lat         json.RawMessage `json:"lat"`
	Lng         json.RawMessage `json:"lng"`
	Image       *string         `json:"image"`
	Description *string         `json:"description"`
	Note        *string         `json:"note"`
	Order       json.RawMessage `json:"order"`
}

type listLocationRequest struct {
	CountryName string          `json:"countryName"`
	CountryCode string          `json:"countryCode"`
	CityName    string          `json:"cityName"`
	Lat         json.RawMessage `json:"lat"`
	Lng         json.RawMessage `json:"lng"`
}

type createListRequest struct {
	Name        string              `json:"name"`
	Description *string             `json:"description"`
	Genre       *string             `json:"genre"`
	Subgenre    *string             `json:"subgenre"`
	Location    listLocationRequest `json:"location"`
	Items       []listItemRequest   `json:"items"`
}

// HandleCreate: POST /api/lists
//
// REQUEST BODY:
//
//	{
//	  "name": "Best Vegan Spots in Portland",
//	  "location": {"countryName": "United States", "cityName": "Portland"},
//	  "items": [{"externalId": "ChIJ...", "name": "...", "address": "...", "lat": 45.5, "lng": -122.6}]
//	}
func (h *ListHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid list JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	items := make([]service.ListItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.ListItemInput{
			ExternalID:  it.ExternalID,
			Name:        it.Name,
			Address:     it.Address,
			Lat:         parseNumber(it.Lat),
			Lng:         parseNumber(it.Lng),
			Image:       it.Image,
			Description: it.Description,
			Note:        it.Note,
			Order:       parseInteger(it.Order),
		}
	}

	h.logger.Debug("list create requested", slog.String("userID", userID), slog.Int("items", len(items)))
	list, err := h.svc.Create(r.Context(), service.CreateListInput{
		CreatorID:   userID,
		Name:        req.Name,
		Description: req.Description,
		Genre:       req.Genre,
		Subgenre:    req.Subgenre,
		Location: service.GeoInput{
			CountryName: req.Location.CountryName,
			CountryCode: req.Location.CountryCode,
			CityName:    req.Location.CityName,
			Lat:         parseNumber(req.Location.Lat),
			Lng:         parseNumber(req.Location.Lng),
		},
		Items: items,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, list)
}

type listDetailResponse struct {
	*model.List
	LikedByMe bool `json:"likedByMe"`
}

// HandleGet: GET /api/lists/{id}
//
// Public. Under OptionalAuth a signed-in caller also learns whether they
// already liked the list.
func (h *ListHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := listDetailResponse{List: list}
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		liked, err := h.svc.HasLiked(r.Context(), userID, list.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.LikedByMe = liked
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleBrowse: GET /api/lists?cityId=&creatorId=&sort=popular&limit=&offset=
func (h *ListHandler) HandleBrowse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lists, err := h.svc.Browse(r.Context(), repository.ListFilter{
		CityID:      q.Get("cityId"),
		CreatorID:   q.Get("creatorId"),
		Popular:     q.Get("sort") == "popular",
		ListOptions: pageOptions(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

type likeResponse struct {
	ListID    string `json:"listId"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"likeCount"`
}

// HandleLike: POST /api/lists/{id}/like. A repeated like answers 409.
func (h *ListHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	list, err := h.svc.Like(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("list liked", slog.String("listID", list.ID), slog.String("userID", userID))
	writeJSON(w, http.StatusOK, likeResponse{ListID: list.ID, Liked: true, LikeCount: list.LikeCount})
}

// HandleUnlike: DELETE /api/lists/{id}/like
func (h *ListHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	list, err := h.svc.Unlike(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("list unliked", slog.String("listID", list.ID), slog.String("userID", userID))
	writeJSON(w, http.StatusOK, likeResponse{ListID: list.ID, Liked: false, LikeCount: list.LikeCount})
}

// HandleLikedLists: GET /api/users/me/liked-lists
func (h *ListHandler) HandleLikedLists(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ids, err := h.svc.LikedListIDs(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"listIds": ids})
}

// parseNumber accepts a JSON number or a numeric string. Anything else,
// including null and NaN/Inf, is treated as missing.
func parseNumber(raw json.RawMessage) *float64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// parseInteger is parseNumber restricted to whole numbers: 2 and 2.0 are
// accepted, 2.5 is not.
func parseInteger(raw json.RawMessage) *int {
	f := parseNumber(raw)
	if f == nil || *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt32 {
		return nil
	}
	n := int(*f)
	return &n
}
