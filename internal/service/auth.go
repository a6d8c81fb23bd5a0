package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"github.com/sakif/locali/internal/apperror"
	"github.com/sakif/locali/internal/auth"
	"github.com/sakif/locali/internal/model"
	"github.com/sakif/locali/internal/repository"
)

const (
	MinPasswordLength = 8
	MaxNameLength     = 80
)

// errBadCredentials is deliberately vague: login must not reveal whether the
// email exists.
var errBadCredentials = apperror.Unauthorized("invalid email or password")

// AuthService is the business logic layer for authentication:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// It does NOT read HTTP requests or write headers; the handler does that.
type AuthService struct {
	users         repository.UserRepository
	locations     repository.LocationRepository
	tokens        *auth.TokenService
	passwords     *auth.PasswordService
	avatarBaseURL string
	logger        *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	locations repository.LocationRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	avatarBaseURL string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:         users,
		locations:     locations,
		tokens:        tokens,
		passwords:     passwords,
		avatarBaseURL: avatarBaseURL,
		logger:        logger,
	}
}

// AuthResult bundles the user with a freshly issued bearer token.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Address  string
}

// Register creates an account and logs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or fewer", MaxNameLength))
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperror.ValidationFailed("email", "email is not a valid address")
	}
	if len(in.Password) < MinPasswordLength || len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be between %d and %d characters", MinPasswordLength, auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Avatar:       s.avatarFor(name),
		Address:      strings.TrimSpace(in.Address),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))

	return s.issue(user)
}

// Login checks the credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errBadCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Debug("login rejected", slog.String("userID", user.ID))
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	return s.issue(user)
}

// Profile is the signed-in user's own view.
type Profile struct {
	User      *model.User          `json:"user"`
	Locations []model.UserLocation `json:"locations"`
}

func (s *AuthService) Me(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("valid authentication required")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}

	locs, err := s.locations.ListUserLocations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching locations of %s: %w", userID, err)
	}

	return &Profile{User: user, Locations: locs}, nil
}

func (s *AuthService) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/auth: listing users: %w", err)
	}
	return users, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// avatarFor derives a seeded avatar image from the display name.
func (s *AuthService) avatarFor(name string) string {
	return s.avatarBaseURL + "?seed=" + url.QueryEscape(name)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
