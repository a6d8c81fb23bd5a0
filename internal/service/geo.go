// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never *sqlite.DB, and return
// apperror kinds instead of HTTP status codes. The same services back the
// HTTP API and the cmd/seed tool.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/locali/internal/apperror"
	"github.com/sakif/locali/internal/model"
	"github.com/sakif/locali/internal/repository"
	"github.com/sakif/locali/internal/slug"
)

// MaxCityLists caps how many lists GetCity returns.
const MaxCityLists = 100

// GeoInput names a city the way the front end sends it: by country and city
// name, with optional code and coordinates from the places provider.
type GeoInput struct {
	CountryName string
	CountryCode string
	CityName    string
	Lat         *float64
	Lng         *float64
}

// GeoService resolves free-text country/city names into stored rows.
type GeoService struct {
	geo    repository.GeoRepository
	lists  repository.ListRepository
	logger *slog.Logger
}

func NewGeoService(geo repository.GeoRepository, lists repository.ListRepository, logger *slog.Logger) *GeoService {
	return &GeoService{
		geo:    geo,
		lists:  lists,
		logger: logger,
	}
}

// Upsert finds or creates the country and then the city inside it.
//
// Names are trimmed and used verbatim as keys, so "Portland" and "portland"
// are different cities. Calling Upsert twice with the same names returns the
// same ids and never modifies the existing rows.
func (s *GeoService) Upsert(ctx context.Context, in GeoInput) (*model.Country, *model.City, error) {
	countryName := strings.TrimSpace(in.CountryName)
	cityName := strings.TrimSpace(in.CityName)

	if countryName == "" {
		return nil, nil, apperror.ValidationFailed("countryName", "country name is required")
	}
	if cityName == "" {
		return nil, nil, apperror.ValidationFailed("cityName", "city name is required")
	}

	country := &model.Country{
		Name: countryName,
		Code: strings.ToUpper(strings.TrimSpace(in.CountryCode)),
		Slug: slug.Make(countryName),
	}
	if err := s.geo.UpsertCountry(ctx, country); err != nil {
		return nil, nil, fmt.Errorf("service/geo: upserting country %q: %w", countryName, err)
	}

	city := &model.City{
		CountryID: country.ID,
		Name:      cityName,
		Slug:      slug.Make(cityName),
		Lat:       in.Lat,
		Lng:       in.Lng,
	}
	if err := s.geo.UpsertCity(ctx, city); err != nil {
		return nil, nil, fmt.Errorf("service/geo: upserting city %q: %w", cityName, err)
	}
	city.Country = country

	return country, city, nil
}

// Lookup finds a stored city by names without creating anything. found is
// false when the country or the city is not stored yet.
func (s *GeoService) Lookup(ctx context.Context, countryName, cityName string) (city *model.City, found bool, err error) {
	city, err = s.geo.FindCityByName(ctx, strings.TrimSpace(countryName), strings.TrimSpace(cityName))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("service/geo: %w", err)
	}
	return city, true, nil
}

func (s *GeoService) ListCountries(ctx context.Context) ([]model.Country, error) {
	countries, err := s.geo.ListCountries(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/geo: listing countries: %w", err)
	}
	return countries, nil
}

// ListCities returns the cities of an existing country; an unknown country
// id is a not-found error rather than an empty list.
func (s *GeoService) ListCities(ctx context.Context, countryID string) ([]model.City, error) {
	if _, err := s.geo.GetCountryByID(ctx, countryID); err != nil {
		return nil, fmt.Errorf("service/geo: %w", err)
	}

	cities, err := s.geo.ListCitiesByCountry(ctx, countryID)
	if err != nil {
		return nil, fmt.Errorf("service/geo: listing cities: %w", err)
	}
	return cities, nil
}

// CityDetail is a city page: the city, its country, and its lists.
type CityDetail struct {
	City  *model.City  `json:"city"`
	Lists []model.List `json:"lists"`
}

// GetCity returns the city with its most liked lists first.
func (s *GeoService) GetCity(ctx context.Context, id string) (*CityDetail, error) {
	city, err := s.geo.GetCityByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/geo: %w", err)
	}

	lists, err := s.lists.BrowseLists(ctx, repository.ListFilter{
		CityID:      id,
		Popular:     true,
		ListOptions: repository.ListOptions{Limit: MaxCityLists},
	})
	if err != nil {
		return nil, fmt.Errorf("service/geo: listing lists of city %s: %w", id, err)
	}

	return &CityDetail{City: city, Lists: lists}, nil
}
