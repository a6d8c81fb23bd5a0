// Package repository declares the storage interfaces the service layer depends on.
// internal/repository/sqlite implements all of them on a single *sqlite.DB.
package repository

import (
	"context"

	"github.com/sakif/locali/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ListFilter narrows BrowseLists. Empty fields do not filter.
// Results are newest first unless Popular is set (most liked first).
type ListFilter struct {
	CityID    string
	CreatorID string
	Popular   bool
	ListOptions
}

// GeoRepository stores countries and cities.
//
// UpsertCountry and UpsertCity are find-or-create on the unique key
// (country name; country id + city name). They fill in the passed struct with
// the stored row, including the id of a row that already existed.
type GeoRepository interface {
	UpsertCountry(ctx context.Context, country *model.Country) error
	UpsertCity(ctx context.Context, city *model.City) error
	GetCountryByID(ctx context.Context, id string) (*model.Country, error)
	GetCityByID(ctx context.Context, id string) (*model.City, error)
	// FindCityByName reads the city under its unique key without creating it.
	FindCityByName(ctx context.Context, countryName, cityName string) (*model.City, error)
	ListCountries(ctx context.Context) ([]model.Country, error)
	ListCitiesByCountry(ctx context.Context, countryID string) ([]model.City, error)
	// ExistingCityIDs returns the subset of ids that name a stored city, in one query.
	ExistingCityIDs(ctx context.Context, ids []string) ([]string, error)
	IncrementCityListCount(ctx context.Context, cityID string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, error)
	SetUserLocal(ctx context.Context, id string, isLocal bool) error
}

type LocationRepository interface {
	ListUserLocations(ctx context.Context, userID string) ([]model.UserLocation, error)
	AddUserLocation(ctx context.Context, loc *model.UserLocation) error
	// ReplaceUserLocations swaps a user's whole location set in one transaction.
	ReplaceUserLocations(ctx context.Context, userID string, locs []model.UserLocation) error
	DeleteUserLocation(ctx context.Context, userID, cityID string) error
}

type PlaceRepository interface {
	// FindOrCreatePlace looks the place up by ExternalID and inserts it when
	// missing. On return place holds the stored row; created reports an insert.
	FindOrCreatePlace(ctx context.Context, place *model.Place) (created bool, err error)
	GetPlaceByExternalID(ctx context.Context, externalID string) (*model.Place, error)
}

type ListRepository interface {
	// CreateList inserts the list and its places in one transaction and sets
	// list.PlaceCount to len(places).
	CreateList(ctx context.Context, list *model.List, places []model.ListPlace) error
	GetListByID(ctx context.Context, id string) (*model.List, error)
	BrowseLists(ctx context.Context, filter ListFilter) ([]model.List, error)
	ListsContainingPlace(ctx context.Context, placeID string) ([]model.List, error)
	LikeList(ctx context.Context, userID, listID string) error
	UnlikeList(ctx context.Context, userID, listID string) error
	LikedListIDs(ctx context.Context, userID string) ([]string, error)
}
