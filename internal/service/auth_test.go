package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/locali/internal/apperror"
	"github.com/sakif/locali/internal/auth"
	"github.com/sakif/locali/internal/model"
	"github.com/sakif/locali/internal/repository"
	"github.com/sakif/locali/internal/repository/sqlite"
)

const testAvatarBase = "https://avatars.example.com/svg"

// newTestAuthService returns an AuthService over an in-memory database.
func newTestAuthService(t *testing.T) (*AuthService, *sqlite.DB, *auth.TokenService) {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)

	// Cost 4 is the bcrypt minimum; keeps tests fast.
	ps := auth.NewPasswordServiceForTest(4)

	return NewAuthService(db, db, ts, ps, testAvatarBase, testLogger()), db, ts
}

func TestRegister(t *testing.T) {
	svc, _, ts := newTestAuthService(t)

	result, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Ana María",
		Email:    "  Ana@Example.COM ",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.User.ID)
	assert.Equal(t, "ana@example.com", result.User.Email)
	assert.Equal(t, testAvatarBase+"?seed=Ana+Mar%C3%ADa", result.User.Avatar)
	assert.True(t, strings.HasPrefix(result.User.PasswordHash, "$2a$"))

	userID, err := ts.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, userID)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"missing name", RegisterInput{Email: "a@b.co", Password: "password1"}, "name"},
		{"missing email", RegisterInput{Name: "A", Password: "password1"}, "email"},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Password: "password1"}, "email"},
		{"short password", RegisterInput{Name: "A", Email: "a@b.co", Password: "short"}, "password"},
		{"long password", RegisterInput{Name: "A", Email: "a@b.co", Password: strings.Repeat("x", 73)}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "dup@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "DUP@example.com", Password: "password2"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Name: "Bo", Email: "bo@example.com", Password: "password1"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, "BO@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, result.User.ID)
	assert.NotEmpty(t, result.Token)

	for _, tc := range []struct{ email, password string }{
		{"bo@example.com", "wrong-password"},
		{"nobody@example.com", "password1"},
		{"", ""},
	} {
		_, err := svc.Login(ctx, tc.email, tc.password)
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
		assert.EqualError(t, err, "invalid email or password")
	}
}

// brokenUsers fails every email lookup with a storage error.
type brokenUsers struct {
	repository.UserRepository
}

func (brokenUsers) GetUserByEmail(context.Context, string) (*model.User, error) {
	return nil, errors.New("database is on fire")
}

func TestLogin_RepositoryError(t *testing.T) {
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)
	svc := NewAuthService(brokenUsers{}, nil, ts, auth.NewPasswordServiceForTest(4), testAvatarBase, testLogger())

	_, err = svc.Login(context.Background(), "a@b.co", "password1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrUnauthorized, "storage failures are not credential failures")
}

func TestMe(t *testing.T) {
	svc, db, _ := newTestAuthService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Name: "Cy", Email: "cy@example.com", Password: "password1"})
	require.NoError(t, err)

	country := &model.Country{Name: "Peru"}
	require.NoError(t, db.UpsertCountry(ctx, country))
	city := &model.City{CountryID: country.ID, Name: "Lima"}
	require.NoError(t, db.UpsertCity(ctx, city))
	require.NoError(t, db.AddUserLocation(ctx, &model.UserLocation{
		UserID: reg.User.ID, CityID: city.ID, Status: model.StatusBornThere,
	}))

	profile, err := svc.Me(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "cy@example.com", profile.User.Email)
	require.Len(t, profile.Locations, 1)
	assert.Equal(t, "Lima", profile.Locations[0].City.Name)

	_, err = svc.Me(ctx, "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.Me(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestListUsers(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := svc.Register(ctx, RegisterInput{Name: email, Email: email, Password: "password1"})
		require.NoError(t, err)
	}

	page, err := svc.ListUsers(ctx, repository.ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := svc.ListUsers(ctx, repository.ListOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c@example.com", rest[0].Email)
}
