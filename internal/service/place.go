package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/locali/internal/apperror"
	"github.com/sakif/locali/internal/model"
	"github.com/sakif/locali/internal/places"
	"github.com/sakif/locali/internal/repository"
)

// PlacesProvider is the subset of *places.Client the services use.
type PlacesProvider interface {
	PlaceDetails(ctx context.Context, placeID string) *places.Details
	PhotoURLs(ctx context.Context, refs []string) []string
	AutocompleteCities(ctx context.Context, input string) []places.Prediction
}

var _ PlacesProvider = (*places.Client)(nil)

// PlaceDetail is a place page. Every provider-sourced field is null when the
// provider has nothing, so the page renders with whatever is stored.
type PlaceDetail struct {
	ExternalID   string       `json:"externalId"`
	Name         *string      `json:"name"`
	Address      *string      `json:"address"`
	Lat          *float64     `json:"lat"`
	Lng          *float64     `json:"lng"`
	Image        *string      `json:"image"`
	Description  *string      `json:"description"`
	Phone        *string      `json:"phone"`
	Website      *string      `json:"website"`
	MapsURL      *string      `json:"mapsUrl"`
	Rating       *float64     `json:"rating"`
	RatingCount  *int         `json:"ratingCount"`
	PriceLevel   *int         `json:"priceLevel"`
	OpeningHours []string     `json:"openingHours"`
	Photos       []string     `json:"photos"`
	Category     string       `json:"category"`
	Place        *model.Place `json:"place"` // stored row, nil if no list uses the place yet
	Lists        []model.List `json:"lists"`
}

// CityLookup is the provider's answer for a city place id.
type CityLookup struct {
	PlaceID     string   `json:"placeId"`
	Found       bool     `json:"found"`
	Name        string   `json:"name"`
	Country     string   `json:"country"`
	CountryCode string   `json:"countryCode"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

type PlaceService struct {
	places   repository.PlaceRepository
	lists    repository.ListRepository
	provider PlacesProvider
	logger   *slog.Logger
}

func NewPlaceService(
	placeRepo repository.PlaceRepository,
	lists repository.ListRepository,
	provider PlacesProvider,
	logger *slog.Logger,
) *PlaceService {
	return &PlaceService{
		places:   placeRepo,
		lists:    lists,
		provider: provider,
		logger:   logger,
	}
}

// Details merges the stored place (if any) with live provider data.
// Provider values win; stored values fill the gaps.
func (s *PlaceService) Details(ctx context.Context, externalID string) (*PlaceDetail, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, apperror.ValidationFailed("placeId", "place id is required")
	}

	stored, err := s.places.GetPlaceByExternalID(ctx, externalID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/place: %w", err)
		}
		stored = nil
	}

	d := s.provider.PlaceDetails(ctx, externalID)
	photos := s.provider.PhotoURLs(ctx, d.PhotoRefs)

	detail := &PlaceDetail{
		ExternalID:   externalID,
		Name:         d.Name,
		Address:      d.Address,
		Lat:          d.Lat,
		Lng:          d.Lng,
		Description:  d.Summary,
		Phone:        d.Phone,
		Website:      d.Website,
		MapsURL:      d.MapsURL,
		Rating:       d.Rating,
		RatingCount:  d.RatingCount,
		PriceLevel:   d.PriceLevel,
		OpeningHours: d.OpeningHours,
		Photos:       photos,
		Category:     places.Category(d.Types),
		Place:        stored,
		Lists:        []model.List{},
	}
	if len(photos) > 0 {
		detail.Image = &photos[0]
	}

	if stored != nil {
		if detail.Name == nil {
			detail.Name = &stored.Name
		}
		if detail.Address == nil {
			detail.Address = &stored.Address
		}
		if detail.Lat == nil || detail.Lng == nil {
			detail.Lat, detail.Lng = &stored.Lat, &stored.Lng
		}
		if detail.Image == nil {
			detail.Image = stored.Image
		}
		if detail.Description == nil {
			detail.Description = stored.Description
		}

		lists, err := s.lists.ListsContainingPlace(ctx, stored.ID)
		if err != nil {
			return nil, fmt.Errorf("service/place: listing lists with place %s: %w", stored.ID, err)
		}
		detail.Lists = lists
	}

	return detail, nil
}

// SearchCities is the city picker's autocomplete.
func (s *PlaceService) SearchCities(ctx context.Context, q string) ([]places.Prediction, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.ValidationFailed("q", "search query is required")
	}
	return s.provider.AutocompleteCities(ctx, q), nil
}

// CityLookup resolves an autocomplete pick into the names GeoService.Upsert
// expects.
func (s *PlaceService) CityLookup(ctx context.Context, placeID string) (*CityLookup, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, apperror.ValidationFailed("placeId", "place id is required")
	}

	d := s.provider.PlaceDetails(ctx, placeID)
	out := &CityLookup{PlaceID: placeID, Lat: d.Lat, Lng: d.Lng}

	for _, typ := range []string{
		"locality",
		"postal_town",
		"administrative_area_level_3",
		"administrative_area_level_2",
		"administrative_area_level_1",
	} {
		if c, ok := d.Component(typ); ok {
			out.Name = c.LongName
			break
		}
	}
	if out.Name == "" && d.Name != nil {
		out.Name = *d.Name
	}
	if c, ok := d.Component("country"); ok {
		out.Country = c.LongName
		out.CountryCode = c.ShortName
	}

	out.Found = out.Name != "" && out.Country != ""
	return out, nil
}
