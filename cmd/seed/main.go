// Command seed fills the configured database with demo data: a handful of
// cities, users with home towns, lists and likes. It is safe to run more
// than once: existing users and lists are reused and repeated likes are
// ignored.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/locali/internal/apperror"
	"github.com/sakif/locali/internal/auth"
	"github.com/sakif/locali/internal/config"
	"github.com/sakif/locali/internal/model"
	"github.com/sakif/locali/internal/repository"
	sqliteRepo "github.com/sakif/locali/internal/repository/sqlite"
	"github.com/sakif/locali/internal/service"
)

const demoPassword = "locali-demo-password"

type demoUser struct {
	name, email string
	home        service.GeoInput
	status      model.LocationStatus
}

type demoList struct {
	owner string // demoUser email
	name  string
	genre string
	city  service.GeoInput
	items []service.ListItemInput
}

var (
	portland = service.GeoInput{CountryName: "United States", CountryCode: "US", CityName: "Portland", Lat: ptr(45.5152), Lng: ptr(-122.6784)}
	lisbon   = service.GeoInput{CountryName: "Portugal", CountryCode: "PT", CityName: "Lisbon", Lat: ptr(38.7223), Lng: ptr(-9.1393)}
	osaka    = service.GeoInput{CountryName: "Japan", CountryCode: "JP", CityName: "Osaka", Lat: ptr(34.6937), Lng: ptr(135.5023)}
)

var demoUsers = []demoUser{
	{"Maya Chen", "maya@locali.dev", portland, model.StatusCurrentlyLiving},
	{"João Silva", "joao@locali.dev", lisbon, model.StatusBornThere},
	{"Haruto Sato", "haruto@locali.dev", osaka, model.StatusBornThere},
	{"Sam Rivera", "sam@locali.dev", portland, model.StatusLivedPast},
}

var demoLists = []demoList{
	{
		owner: "maya@locali.dev",
		name:  "Best Vegan Spots in Portland",
		genre: "Food & Drink",
		city:  portland,
		items: []service.ListItemInput{
			place("demo-pdx-1", "Homegrown Smoker", "8638 N Lombard St, Portland, OR", 45.5898, -122.7541),
			place("demo-pdx-2", "Virtuous Pie", "1126 SE Division St, Portland, OR", 45.5049, -122.6545),
		},
	},
	{
		owner: "joao@locali.dev",
		name:  "Miradouros a locals actually use",
		genre: "Views",
		city:  lisbon,
		items: []service.ListItemInput{
			place("demo-lis-1", "Miradouro da Senhora do Monte", "Largo Monte, Lisboa", 38.7192, -9.1327),
			place("demo-lis-2", "Miradouro de Santa Catarina", "R. de Santa Catarina, Lisboa", 38.7095, -9.1471),
		},
	},
	{
		owner: "haruto@locali.dev",
		name:  "Late-night Osaka",
		genre: "Nightlife",
		city:  osaka,
		items: []service.ListItemInput{
			place("demo-osa-1", "Ura Namba", "Namba, Chuo Ward, Osaka", 34.6654, 135.5031),
		},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		logger.Error("failed to create database directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("seeding complete")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	geo := service.NewGeoService(db, db, logger)
	users := service.NewAuthService(db, db, tokens, auth.NewPasswordService(), cfg.AvatarBaseURL, logger)
	locations := service.NewLocationService(db, db, db, geo, logger)
	lists := service.NewListService(db, db, db, geo, logger)

	ids := make(map[string]string, len(demoUsers))
	for _, u := range demoUsers {
		id, err := ensureUser(ctx, db, users, u)
		if err != nil {
			return err
		}
		ids[u.email] = id

		_, err = locations.Replace(ctx, id, []service.AddLocationInput{{
			CountryName: u.home.CountryName,
			CountryCode: u.home.CountryCode,
			CityName:    u.home.CityName,
			Lat:         u.home.Lat,
			Lng:         u.home.Lng,
			Status:      u.status,
		}})
		if err != nil {
			return fmt.Errorf("setting location of %s: %w", u.email, err)
		}
	}

	var listIDs []string
	for _, l := range demoLists {
		existing, err := findList(ctx, lists, ids[l.owner], l.name)
		if err != nil {
			return err
		}
		if existing != "" {
			listIDs = append(listIDs, existing)
			continue
		}

		created, err := lists.Create(ctx, service.CreateListInput{
			CreatorID: ids[l.owner],
			Name:      l.name,
			Genre:     ptr(l.genre),
			Location:  l.city,
			Items:     l.items,
		})
		if err != nil {
			return fmt.Errorf("creating list %q: %w", l.name, err)
		}
		listIDs = append(listIDs, created.ID)
	}

	// Everyone likes everyone else's lists.
	for _, u := range demoUsers {
		for i, listID := range listIDs {
			if demoLists[i].owner == u.email {
				continue
			}
			if _, err := lists.Like(ctx, ids[u.email], listID); err != nil && !errors.Is(err, apperror.ErrConflict) {
				return fmt.Errorf("liking list %s: %w", listID, err)
			}
		}
	}

	logger.Info("seeded",
		slog.Int("users", len(demoUsers)),
		slog.Int("lists", len(listIDs)),
	)
	return nil
}

// ensureUser registers u, or returns the id of the existing account.
func ensureUser(ctx context.Context, db *sqliteRepo.DB, users *service.AuthService, u demoUser) (string, error) {
	result, err := users.Register(ctx, service.RegisterInput{Name: u.name, Email: u.email, Password: demoPassword})
	if err == nil {
		return result.User.ID, nil
	}
	if !errors.Is(err, apperror.ErrConflict) {
		return "", fmt.Errorf("registering %s: %w", u.email, err)
	}

	existing, err := db.GetUserByEmail(ctx, u.email)
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", u.email, err)
	}
	return existing.ID, nil
}

// findList returns the id of the owner's list called name, or "".
func findList(ctx context.Context, lists *service.ListService, ownerID, name string) (string, error) {
	owned, err := lists.Browse(ctx, repository.ListFilter{
		CreatorID:   ownerID,
		ListOptions: repository.ListOptions{Limit: 100},
	})
	if err != nil {
		return "", fmt.Errorf("browsing lists of %s: %w", ownerID, err)
	}
	for _, l := range owned {
		if l.Name == name {
			return l.ID, nil
		}
	}
	return "", nil
}

func place(externalID, name, address string, lat, lng float64) service.ListItemInput {
	return service.ListItemInput{
		ExternalID: externalID,
		Name:       name,
		Address:    address,
		Lat:        &lat,
		Lng:        &lng,
	}
}

func ptr[T any](v T) *T { return &v }
