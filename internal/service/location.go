package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/locali/internal/apperror"
	"github.com/sakif/locali/internal/model"
	"github.com/sakif/locali/internal/repository"
)

// LocationInput is one candidate (city, status) pair.
type LocationInput struct {
	CityID string
	Status model.LocationStatus
}

// CityChecker reports which of the given ids are stored cities.
// repository.GeoRepository satisfies it.
type CityChecker interface {
	ExistingCityIDs(ctx context.Context, ids []string) ([]string, error)
}

// ValidateLocations checks a user's complete location set: the rows already
// stored plus the ones being added, or the full replacement set.
//
// Rules, checked in this order:
//  1. every status is BORN_THERE, LIVED_PAST or CURRENTLY_LIVING
//  2. no city appears twice
//  3. at most one BORN_THERE and at most one CURRENTLY_LIVING
//  4. every city id names a stored city
//
// The first broken rule is returned as a validation error. Rule 4 costs one
// query for the whole set and only runs when rules 1-3 pass. Nothing is
// written.
func ValidateLocations(ctx context.Context, cities CityChecker, candidates []LocationInput) error {
	if err := validateStatuses(candidates); err != nil {
		return err
	}
	if err := validateNoDuplicateCities(candidates); err != nil {
		return err
	}
	if err := validateCardinality(candidates); err != nil {
		return err
	}
	return validateCitiesExist(ctx, cities, candidates)
}

func validateStatuses(candidates []LocationInput) error {
	for _, c := range candidates {
		if !c.Status.Valid() {
			return apperror.ValidationFailed("status",
				fmt.Sprintf("status %q must be one of %s, %s, %s", c.Status,
					model.StatusBornThere, model.StatusLivedPast, model.StatusCurrentlyLiving))
		}
	}
	return nil
}

func validateNoDuplicateCities(candidates []LocationInput) error {
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.CityID == "" {
			return apperror.ValidationFailed("cityId", "city id is required")
		}
		if seen[c.CityID] {
			return apperror.ValidationFailed("cityId", "each city can only appear once")
		}
		seen[c.CityID] = true
	}
	return nil
}

func validateCardinality(candidates []LocationInput) error {
	var born, current int
	for _, c := range candidates {
		switch c.Status {
		case model.StatusBornThere:
			born++
		case model.StatusCurrentlyLiving:
			current++
		}
	}
	if born > 1 {
		return apperror.ValidationFailed("status", "only one city can be marked BORN_THERE")
	}
	if current > 1 {
		return apperror.ValidationFailed("status", "only one city can be marked CURRENTLY_LIVING")
	}
	return nil
}

func validateCitiesExist(ctx context.Context, cities CityChecker, candidates []LocationInput) error {
	if len(candidates) == 0 {
		return nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.CityID
	}

	found, err := cities.ExistingCityIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("service/location: checking cities: %w", err)
	}

	exists := make(map[string]bool, len(found))
	for _, id := range found {
		exists[id] = true
	}
	for _, id := range ids {
		if !exists[id] {
			return apperror.ValidationFailed("cityId", fmt.Sprintf("city %s does not exist", id))
		}
	}
	return nil
}

// AddLocationInput identifies the city either by CityID or by names. Names
// are resolved with GeoService.Upsert, which creates the city if needed.
type AddLocationInput struct {
	CityID      string
	CountryName string
	CountryCode string
	CityName    string
	Lat         *float64
	Lng         *float64
	Status      model.LocationStatus
}

func (in AddLocationInput) byName() bool {
	return strings.TrimSpace(in.CityID) == ""
}

// check reports a by-name input that is missing one of its names.
func (in AddLocationInput) check() error {
	if !in.byName() {
		return nil
	}
	country := strings.TrimSpace(in.CountryName)
	city := strings.TrimSpace(in.CityName)
	switch {
	case country == "" && city == "":
		return apperror.ValidationFailed("cityId", "cityId or countryName and cityName are required")
	case country == "":
		return apperror.ValidationFailed("countryName", "country name is required")
	case city == "":
		return apperror.ValidationFailed("cityName", "city name is required")
	}
	return nil
}

type LocationService struct {
	locations repository.LocationRepository
	users     repository.UserRepository
	cities    CityChecker
	geo       *GeoService
	logger    *slog.Logger
}

func NewLocationService(
	locations repository.LocationRepository,
	users repository.UserRepository,
	cities CityChecker,
	geo *GeoService,
	logger *slog.Logger,
) *LocationService {
	return &LocationService{
		locations: locations,
		users:     users,
		cities:    cities,
		geo:       geo,
		logger:    logger,
	}
}

func (s *LocationService) List(ctx context.Context, userID string) ([]model.UserLocation, error) {
	locs, err := s.locations.ListUserLocations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/location: listing locations of user %s: %w", userID, err)
	}
	return locs, nil
}

// Add appends one location and returns the user's updated set.
func (s *LocationService) Add(ctx context.Context, userID string, in AddLocationInput) ([]model.UserLocation, error) {
	existing, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates := make([]LocationInput, 0, len(existing)+1)
	for _, l := range existing {
		candidates = append(candidates, LocationInput{CityID: l.CityID, Status: l.Status})
	}

	candidates, err = s.prepare(ctx, candidates, []AddLocationInput{in})
	if err != nil {
		return nil, err
	}
	if err := ValidateLocations(ctx, s.cities, candidates); err != nil {
		return nil, err
	}
	cityID := candidates[len(candidates)-1].CityID

	loc := &model.UserLocation{UserID: userID, CityID: cityID, Status: in.Status}
	if err := s.locations.AddUserLocation(ctx, loc); err != nil {
		return nil, fmt.Errorf("service/location: adding location: %w", err)
	}

	s.logger.Info("location added",
		slog.String("userID", userID),
		slog.String("cityID", cityID),
		slog.String("status", string(in.Status)),
	)

	return s.refresh(ctx, userID)
}

// Replace swaps the user's whole location set. The new set is validated as a
// whole and stored in one transaction.
func (s *LocationService) Replace(ctx context.Context, userID string, inputs []AddLocationInput) ([]model.UserLocation, error) {
	candidates, err := s.prepare(ctx, nil, inputs)
	if err != nil {
		return nil, err
	}
	if err := ValidateLocations(ctx, s.cities, candidates); err != nil {
		return nil, err
	}

	locs := make([]model.UserLocation, len(candidates))
	for i, c := range candidates {
		locs[i] = model.UserLocation{UserID: userID, CityID: c.CityID, Status: c.Status}
	}
	if err := s.locations.ReplaceUserLocations(ctx, userID, locs); err != nil {
		return nil, fmt.Errorf("service/location: replacing locations: %w", err)
	}

	s.logger.Info("locations replaced",
		slog.String("userID", userID),
		slog.Int("count", len(locs)),
	)

	return s.refresh(ctx, userID)
}

func (s *LocationService) Remove(ctx context.Context, userID, cityID string) error {
	if err := s.locations.DeleteUserLocation(ctx, userID, cityID); err != nil {
		return fmt.Errorf("service/location: %w", err)
	}
	_, err := s.refresh(ctx, userID)
	return err
}

// prepare turns inputs into candidates appended to existing, checking every
// rule it can before anything is written. Cities named but not stored yet
// stand in under their names for the duplicate check and are created only
// after all checks pass, so a rejected request leaves no geo rows behind.
func (s *LocationService) prepare(ctx context.Context, existing []LocationInput, inputs []AddLocationInput) ([]LocationInput, error) {
	candidates := make([]LocationInput, 0, len(existing)+len(inputs))
	candidates = append(candidates, existing...)
	for _, in := range inputs {
		candidates = append(candidates, LocationInput{Status: in.Status})
	}
	if err := validateStatuses(candidates); err != nil {
		return nil, err
	}
	if err := validateCardinality(candidates); err != nil {
		return nil, err
	}

	// keyed mirrors candidates; cities still to be created get a name key.
	keyed := slices.Clone(candidates)
	var stored []LocationInput
	pending := map[int]AddLocationInput{}
	for i, in := range inputs {
		if err := in.check(); err != nil {
			return nil, err
		}
		idx := len(existing) + i

		if !in.byName() {
			candidates[idx].CityID = strings.TrimSpace(in.CityID)
		} else {
			city, found, err := s.geo.Lookup(ctx, in.CountryName, in.CityName)
			if err != nil {
				return nil, err
			}
			if !found {
				pending[idx] = in
				keyed[idx].CityID = "name:" + strings.TrimSpace(in.CountryName) + "\x00" + strings.TrimSpace(in.CityName)
				continue
			}
			candidates[idx].CityID = city.ID
		}
		keyed[idx].CityID = candidates[idx].CityID
		stored = append(stored, candidates[idx])
	}
	for i := range existing {
		stored = append(stored, existing[i])
	}

	if err := validateNoDuplicateCities(keyed); err != nil {
		return nil, err
	}
	if err := validateCitiesExist(ctx, s.cities, stored); err != nil {
		return nil, err
	}

	for idx, in := range pending {
		_, city, err := s.geo.Upsert(ctx, GeoInput{
			CountryName: in.CountryName,
			CountryCode: in.CountryCode,
			CityName:    in.CityName,
			Lat:         in.Lat,
			Lng:         in.Lng,
		})
		if err != nil {
			return nil, err
		}
		candidates[idx].CityID = city.ID
	}
	return candidates, nil
}

// refresh re-reads the user's locations and recomputes users.is_local.
func (s *LocationService) refresh(ctx context.Context, userID string) ([]model.UserLocation, error) {
	locs, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetUserLocal(ctx, userID, IsLocal(locs)); err != nil {
		return nil, fmt.Errorf("service/location: updating local flag: %w", err)
	}
	return locs, nil
}

// IsLocal reports whether the locations make the user a local somewhere:
// born there or living there now.
func IsLocal(locs []model.UserLocation) bool {
	for _, l := range locs {
		if l.Status == model.StatusBornThere || l.Status == model.StatusCurrentlyLiving {
			return true
		}
	}
	return false
}
