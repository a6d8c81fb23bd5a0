package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/locali/internal/apperror"
	"github.com/sakif/locali/internal/model"
	"github.com/sakif/locali/internal/repository"
)

var _ repository.LocationRepository = (*DB)(nil)

// ListUserLocations returns the user's locations with City (and its Country)
// populated, oldest first.
func (db *DB) ListUserLocations(ctx context.Context, userID string) ([]model.UserLocation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT l.id, l.user_id, l.city_id, l.status, l.created_at,
		        c.id, c.country_id, c.name, c.slug, c.lat, c.lng, c.list_count, c.created_at,
		        k.id, k.name, k.code, k.slug, k.created_at
		 FROM user_locations l
		 JOIN cities c ON c.id = l.city_id
		 JOIN countries k ON k.id = c.country_id
		 WHERE l.user_id = ?
		 ORDER BY l.created_at, l.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing locations of user %s: %w", userID, err)
	}
	defer rows.Close()

	locations := []model.UserLocation{}
	for rows.Next() {
		var (
			loc     model.UserLocation
			city    model.City
			country model.Country
		)
		if err := rows.Scan(
			&loc.ID, &loc.UserID, &loc.CityID, &loc.Status, &loc.CreatedAt,
			&city.ID, &city.CountryID, &city.Name, &city.Slug,
			&city.Lat, &city.Lng, &city.ListCount, &city.CreatedAt,
			&country.ID, &country.Name, &country.Code, &country.Slug, &country.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning location row: %w", err)
		}
		city.Country = &country
		loc.City = &city
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating locations: %w", err)
	}
	return locations, nil
}

// AddUserLocation inserts one row. A second row for the same (user, city)
// violates the UNIQUE key and returns apperror.ErrConflict.
func (db *DB) AddUserLocation(ctx context.Context, loc *model.UserLocation) error {
	loc.ID = xid.New().String()
	loc.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_locations (id, user_id, city_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		loc.ID, loc.UserID, loc.CityID, loc.Status, loc.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("location", loc.CityID)
		}
		return fmt.Errorf("sqlite: inserting location for user %s: %w", loc.UserID, err)
	}
	return nil
}

// ReplaceUserLocations deletes every location of the user and inserts locs,
// all inside one transaction: either the whole new set is stored or nothing
// changes.
func (db *DB) ReplaceUserLocations(ctx context.Context, userID string, locs []model.UserLocation) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after Commit is a no-op, so deferring it is always safe.
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_locations WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: clearing locations of user %s: %w", userID, err)
	}

	now := time.Now()
	for i := range locs {
		locs[i].ID = xid.New().String()
		locs[i].UserID = userID
		locs[i].CreatedAt = now
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_locations (id, user_id, city_id, status, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			locs[i].ID, userID, locs[i].CityID, locs[i].Status, now,
		); err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("location", locs[i].CityID)
			}
			return fmt.Errorf("sqlite: inserting location for user %s: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing locations of user %s: %w", userID, err)
	}
	return nil
}

func (db *DB) DeleteUserLocation(ctx context.Context, userID, cityID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM user_locations WHERE user_id = ? AND city_id = ?`,
		userID, cityID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting location %s of user %s: %w", cityID, userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("location", cityID)
	}
	return nil
}
