package service

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/locali/internal/model"
	"github.com/sakif/locali/internal/places"
	"github.com/sakif/locali/internal/repository/sqlite"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeProvider stands in for the places client. Unknown place ids get the
// same all-null details the real client returns when it has no API key.
type fakeProvider struct {
	details     map[string]*places.Details
	photos      map[string]string
	predictions []places.Prediction
	lastInput   string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		details: map[string]*places.Details{},
		photos:  map[string]string{},
	}
}

func (f *fakeProvider) PlaceDetails(_ context.Context, placeID string) *places.Details {
	if d, ok := f.details[placeID]; ok {
		return d
	}
	return places.EmptyDetails(placeID)
}

func (f *fakeProvider) PhotoURLs(_ context.Context, refs []string) []string {
	urls := []string{}
	for _, ref := range refs {
		if u, ok := f.photos[ref]; ok {
			urls = append(urls, u)
		}
	}
	return urls
}

func (f *fakeProvider) AutocompleteCities(_ context.Context, input string) []places.Prediction {
	f.lastInput = input
	return f.predictions
}

// testEnv wires every service over one in-memory database.
type testEnv struct {
	db        *sqlite.DB
	provider  *fakeProvider
	geo       *GeoService
	locations *LocationService
	lists     *ListService
	places    *PlaceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := testLogger()
	provider := newFakeProvider()
	geo := NewGeoService(db, db, logger)

	return &testEnv{
		db:        db,
		provider:  provider,
		geo:       geo,
		locations: NewLocationService(db, db, db, geo, logger),
		lists:     NewListService(db, db, db, geo, logger),
		places:    NewPlaceService(db, db, provider, logger),
	}
}

func (e *testEnv) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "x", Name: email}
	require.NoError(t, e.db.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) createCity(t *testing.T, country, city string) *model.City {
	t.Helper()
	_, c, err := e.geo.Upsert(context.Background(), GeoInput{CountryName: country, CityName: city})
	require.NoError(t, err)
	return c
}

func ptr[T any](v T) *T { return &v }
