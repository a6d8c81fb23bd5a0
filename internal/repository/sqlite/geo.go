package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/locali/internal/apperror"
	"github.com/sakif/locali/internal/model"
	"github.com/sakif/locali/internal/repository"
)

var _ repository.GeoRepository = (*DB)(nil)

// UpsertCountry finds the country by name or creates it.
//
// FIND-OR-CREATE IN ONE ROUND TRIP PAIR:
// INSERT ... ON CONFLICT(name) DO NOTHING leaves an existing row untouched,
// then the SELECT on the same unique key reads back whichever row won. Two
// concurrent upserts of a new name both end up with the same id: the UNIQUE
// constraint makes the loser's INSERT a no-op.
func (db *DB) UpsertCountry(ctx context.Context, country *model.Country) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO countries (id, name, code, slug, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		xid.New().String(),
		country.Name,
		country.Code,
		country.Slug,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting country %q: %w", country.Name, err)
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT id, name, code, slug, created_at FROM countries WHERE name = ?`,
		country.Name,
	).Scan(&country.ID, &country.Name, &country.Code, &country.Slug, &country.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: reading back country %q: %w", country.Name, err)
	}
	return nil
}

// UpsertCity is UpsertCountry for the (country_id, name) key. An existing
// city keeps its stored slug and coordinates.
func (db *DB) UpsertCity(ctx context.Context, city *model.City) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO cities (id, country_id, name, slug, lat, lng, list_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT(country_id, name) DO NOTHING`,
		xid.New().String(),
		city.CountryID,
		city.Name,
		city.Slug,
		city.Lat,
		city.Lng,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting city %q: %w", city.Name, err)
	}

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+cityColumns+` FROM cities WHERE country_id = ? AND name = ?`,
		city.CountryID, city.Name,
	)
	if err := scanCity(row, city); err != nil {
		return fmt.Errorf("sqlite: reading back city %q: %w", city.Name, err)
	}
	return nil
}

func (db *DB) GetCountryByID(ctx context.Context, id string) (*model.Country, error) {
	var c model.Country
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, code, slug, created_at FROM countries WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Code, &c.Slug, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("country", id)
		}
		return nil, fmt.Errorf("sqlite: getting country %s: %w", id, err)
	}
	return &c, nil
}

// GetCityByID returns the city with its Country populated.
func (db *DB) GetCityByID(ctx context.Context, id string) (*model.City, error) {
	var (
		city    model.City
		country model.Country
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT c.id, c.country_id, c.name, c.slug, c.lat, c.lng, c.list_count, c.created_at,
		        k.id, k.name, k.code, k.slug, k.created_at
		 FROM cities c
		 JOIN countries k ON k.id = c.country_id
		 WHERE c.id = ?`,
		id,
	).Scan(
		&city.ID, &city.CountryID, &city.Name, &city.Slug,
		&city.Lat, &city.Lng, &city.ListCount, &city.CreatedAt,
		&country.ID, &country.Name, &country.Code, &country.Slug, &country.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("city", id)
		}
		return nil, fmt.Errorf("sqlite: getting city %s: %w", id, err)
	}
	city.Country = &country
	return &city, nil
}

// FindCityByName looks the city up by (country name, city name). Returns
// apperror.ErrNotFound when either does not exist.
func (db *DB) FindCityByName(ctx context.Context, countryName, cityName string) (*model.City, error) {
	var c model.City
	row := db.conn.QueryRowContext(ctx,
		`SELECT c.id, c.country_id, c.name, c.slug, c.lat, c.lng, c.list_count, c.created_at
		 FROM cities c
		 JOIN countries k ON k.id = c.country_id
		 WHERE k.name = ? AND c.name = ?`,
		countryName, cityName,
	)
	if err := scanCity(row, &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("city", countryName+"/"+cityName)
		}
		return nil, fmt.Errorf("sqlite: finding city %q in %q: %w", cityName, countryName, err)
	}
	return &c, nil
}

func (db *DB) ListCountries(ctx context.Context) ([]model.Country, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, code, slug, created_at FROM countries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing countries: %w", err)
	}
	defer rows.Close()

	countries := []model.Country{}
	for rows.Next() {
		var c model.Country
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.Slug, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning country row: %w", err)
		}
		countries = append(countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating countries: %w", err)
	}
	return countries, nil
}

// ListCitiesByCountry returns the country's cities, busiest first.
func (db *DB) ListCitiesByCountry(ctx context.Context, countryID string) ([]model.City, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+cityColumns+` FROM cities
		 WHERE country_id = ?
		 ORDER BY list_count DESC, name`,
		countryID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing cities of %s: %w", countryID, err)
	}
	defer rows.Close()

	cities := []model.City{}
	for rows.Next() {
		var c model.City
		if err := scanCity(rows, &c); err != nil {
			return nil, fmt.Errorf("sqlite: scanning city row: %w", err)
		}
		cities = append(cities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating cities: %w", err)
	}
	return cities, nil
}

// ExistingCityIDs answers "which of these ids are real cities" with a single
// SELECT ... WHERE id IN (...). Duplicates in ids are harmless.
func (db *DB) ExistingCityIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id FROM cities WHERE id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking city ids: %w", err)
	}
	defer rows.Close()

	found := make([]string, 0, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning city id: %w", err)
		}
		found = append(found, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating city ids: %w", err)
	}
	return found, nil
}

// IncrementCityListCount bumps the denormalized counter by one. The UPDATE
// is a single statement, so concurrent increments do not lose counts.
func (db *DB) IncrementCityListCount(ctx context.Context, cityID string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE cities SET list_count = list_count + 1 WHERE id = ?`, cityID)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing list count of city %s: %w", cityID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("city", cityID)
	}
	return nil
}

const cityColumns = `id, country_id, name, slug, lat, lng, list_count, created_at`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCity(s scanner, c *model.City) error {
	return s.Scan(&c.ID, &c.CountryID, &c.Name, &c.Slug, &c.Lat, &c.Lng, &c.ListCount, &c.CreatedAt)
}
