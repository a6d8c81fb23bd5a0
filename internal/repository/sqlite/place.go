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

var _ repository.PlaceRepository = (*DB)(nil)

const placeColumns = `id, external_id, city_id, name, address, lat, lng, image, description, created_at`

// FindOrCreatePlace keys on external_id. When the place already exists the
// stored row wins: its city, name and coordinates are NOT overwritten by the
// incoming values, so a place first saved under one city stays there.
func (db *DB) FindOrCreatePlace(ctx context.Context, place *model.Place) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO places (`+placeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(external_id) DO NOTHING`,
		xid.New().String(),
		place.ExternalID,
		place.CityID,
		place.Name,
		place.Address,
		place.Lat,
		place.Lng,
		place.Image,
		place.Description,
		time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: upserting place %s: %w", place.ExternalID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+placeColumns+` FROM places WHERE external_id = ?`, place.ExternalID)
	if err := scanPlace(row, place); err != nil {
		return false, fmt.Errorf("sqlite: reading back place %s: %w", place.ExternalID, err)
	}

	return rowsAffected == 1, nil
}

func (db *DB) GetPlaceByExternalID(ctx context.Context, externalID string) (*model.Place, error) {
	var p model.Place
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+placeColumns+` FROM places WHERE external_id = ?`, externalID)
	if err := scanPlace(row, &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("place", externalID)
		}
		return nil, fmt.Errorf("sqlite: getting place %s: %w", externalID, err)
	}
	return &p, nil
}

func scanPlace(s scanner, p *model.Place) error {
	return s.Scan(
		&p.ID,
		&p.ExternalID,
		&p.CityID,
		&p.Name,
		&p.Address,
		&p.Lat,
		&p.Lng,
		&p.Image,
		&p.Description,
		&p.CreatedAt,
	)
}
