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

const MaxListNameLength = 120

// ListItemInput is one place as the list editor sends it. Lat and Lng are
// nil when the client did not send a number; Order is nil when the client
// did not send an integer.
type ListItemInput struct {
	ExternalID  string
	Name        string
	Address     string
	Lat         *float64
	Lng         *float64
	Image       *string
	Description *string
	Note        *string
	Order       *int
}

func (it ListItemInput) usable() bool {
	return strings.TrimSpace(it.ExternalID) != "" &&
		strings.TrimSpace(it.Name) != "" &&
		strings.TrimSpace(it.Address) != "" &&
		it.Lat != nil && it.Lng != nil
}

type CreateListInput struct {
	CreatorID   string
	Name        string
	Description *string
	Genre       *string
	Subgenre    *string
	Location    GeoInput
	Items       []ListItemInput
}

type ListService struct {
	lists  repository.ListRepository
	places repository.PlaceRepository
	cities repository.GeoRepository
	geo    *GeoService
	logger *slog.Logger
}

func NewListService(
	lists repository.ListRepository,
	places repository.PlaceRepository,
	cities repository.GeoRepository,
	geo *GeoService,
	logger *slog.Logger,
) *ListService {
	return &ListService{
		lists:  lists,
		places: places,
		cities: cities,
		geo:    geo,
		logger: logger,
	}
}

// Create saves a new list and returns it fully populated.
//
// THE FLOW:
//  1. Require name, country name and city name. Nothing is written on failure.
//  2. Upsert the country and city.
//  3. Drop items without externalId, name, address or numeric coordinates.
//  4. Find or create each remaining place by externalId.
//  5. Number the items: the client's order when given, else 1, 2, 3...
//  6. Insert the list and its places in one transaction.
//  7. Bump the city's listCount.
//
// Step 7 is a separate write. If it fails the list still exists and the
// counter is one short; that drift is logged and tolerated.
func (s *ListService) Create(ctx context.Context, in CreateListInput) (*model.List, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "list name is required")
	}
	if len(name) > MaxListNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("list name must be %d characters or fewer", MaxListNameLength))
	}
	if strings.TrimSpace(in.Location.CountryName) == "" {
		return nil, apperror.ValidationFailed("location.countryName", "country name is required")
	}
	if strings.TrimSpace(in.Location.CityName) == "" {
		return nil, apperror.ValidationFailed("location.cityName", "city name is required")
	}

	_, city, err := s.geo.Upsert(ctx, in.Location)
	if err != nil {
		return nil, err
	}

	entries := make([]model.ListPlace, 0, len(in.Items))
	seq := 0
	for i, item := range in.Items {
		if !item.usable() {
			s.logger.Debug("dropping list item without required fields",
				slog.Int("index", i),
				slog.String("externalID", item.ExternalID),
			)
			continue
		}
		seq++

		place := &model.Place{
			ExternalID:  strings.TrimSpace(item.ExternalID),
			CityID:      city.ID,
			Name:        strings.TrimSpace(item.Name),
			Address:     strings.TrimSpace(item.Address),
			Lat:         *item.Lat,
			Lng:         *item.Lng,
			Image:       item.Image,
			Description: item.Description,
		}
		if _, err := s.places.FindOrCreatePlace(ctx, place); err != nil {
			return nil, fmt.Errorf("service/list: saving place %s: %w", item.ExternalID, err)
		}
		if place.CityID != city.ID {
			s.logger.Warn("place belongs to another city",
				slog.String("placeID", place.ID),
				slog.String("placeCityID", place.CityID),
				slog.String("listCityID", city.ID),
			)
		}

		order := seq
		if item.Order != nil {
			order = *item.Order
		}
		entries = append(entries, model.ListPlace{
			PlaceID: place.ID,
			Order:   order,
			Note:    item.Note,
		})
	}

	list := &model.List{
		Name:        name,
		Description: trimmedOrNil(in.Description),
		Genre:       trimmedOrNil(in.Genre),
		Subgenre:    trimmedOrNil(in.Subgenre),
		CityID:      city.ID,
		CreatorID:   in.CreatorID,
	}
	if err := s.lists.CreateList(ctx, list, entries); err != nil {
		return nil, fmt.Errorf("service/list: creating list %q: %w", name, err)
	}

	if err := s.cities.IncrementCityListCount(ctx, city.ID); err != nil {
		s.logger.Error("failed to bump city list count",
			slog.String("cityID", city.ID),
			slog.String("listID", list.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("list created",
		slog.String("listID", list.ID),
		slog.String("cityID", city.ID),
		slog.Int("places", len(entries)),
		slog.Int("dropped", len(in.Items)-len(entries)),
	)

	return s.Get(ctx, list.ID)
}

func (s *ListService) Get(ctx context.Context, id string) (*model.List, error) {
	list, err := s.lists.GetListByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/list: %w", err)
	}
	return list, nil
}

func (s *ListService) Browse(ctx context.Context, filter repository.ListFilter) ([]model.List, error) {
	lists, err := s.lists.BrowseLists(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/list: browsing lists: %w", err)
	}
	return lists, nil
}

// Like records the user's like. Liking twice is a conflict.
func (s *ListService) Like(ctx context.Context, userID, listID string) (*model.List, error) {
	if err := s.lists.LikeList(ctx, userID, listID); err != nil {
		return nil, fmt.Errorf("service/list: %w", err)
	}
	return s.Get(ctx, listID)
}

// Unlike removes the user's like; not found when there was none.
func (s *ListService) Unlike(ctx context.Context, userID, listID string) (*model.List, error) {
	if err := s.lists.UnlikeList(ctx, userID, listID); err != nil {
		return nil, fmt.Errorf("service/list: %w", err)
	}
	return s.Get(ctx, listID)
}

func (s *ListService) LikedListIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.lists.LikedListIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/list: %w", err)
	}
	return ids, nil
}

// HasLiked reports whether userID currently likes listID.
func (s *ListService) HasLiked(ctx context.Context, userID, listID string) (bool, error) {
	ids, err := s.LikedListIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, listID), nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
