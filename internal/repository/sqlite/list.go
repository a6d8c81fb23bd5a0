package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/locali/internal/apperror"
	"github.com/sakif/locali/internal/model"
	"github.com/sakif/locali/internal/repository"
)

var _ repository.ListRepository = (*DB)(nil)

const listColumns = `l.id, l.name, l.description, l.genre, l.subgenre, l.city_id, l.creator_id,
	l.place_count, l.like_count, l.created_at`

// CreateList inserts the list row and all of its list_places rows in one
// transaction. The city's list_count is NOT touched here; the service bumps
// it with a separate IncrementCityListCount call.
func (db *DB) CreateList(ctx context.Context, list *model.List, places []model.ListPlace) error {
	list.ID = xid.New().String()
	list.CreatedAt = time.Now()
	list.PlaceCount = len(places)
	list.LikeCount = 0

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO lists (id, name, description, genre, subgenre, city_id, creator_id,
		                    place_count, like_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		list.ID,
		list.Name,
		list.Description,
		list.Genre,
		list.Subgenre,
		list.CityID,
		list.CreatorID,
		list.PlaceCount,
		list.LikeCount,
		list.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting list %q: %w", list.Name, err)
	}

	for i := range places {
		places[i].ListID = list.ID
		_, err := tx.ExecContext(ctx,
			`INSERT INTO list_places (list_id, place_id, position, note) VALUES (?, ?, ?, ?)`,
			list.ID, places[i].PlaceID, places[i].Order, places[i].Note,
		)
		if err != nil {
			return fmt.Errorf("sqlite: attaching place %s to list %s: %w", places[i].PlaceID, list.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing list %s: %w", list.ID, err)
	}

	list.Places = places
	return nil
}

// GetListByID returns the list with City, Creator and ordered Places filled in.
func (db *DB) GetListByID(ctx context.Context, id string) (*model.List, error) {
	var (
		list    model.List
		city    model.City
		country model.Country
		creator model.UserSummary
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+listColumns+`,
		        c.id, c.country_id, c.name, c.slug, c.lat, c.lng, c.list_count, c.created_at,
		        k.id, k.name, k.code, k.slug, k.created_at,
		        u.id, u.name, u.avatar
		 FROM lists l
		 JOIN cities c ON c.id = l.city_id
		 JOIN countries k ON k.id = c.country_id
		 JOIN users u ON u.id = l.creator_id
		 WHERE l.id = ?`,
		id,
	).Scan(
		&list.ID, &list.Name, &list.Description, &list.Genre, &list.Subgenre,
		&list.CityID, &list.CreatorID, &list.PlaceCount, &list.LikeCount, &list.CreatedAt,
		&city.ID, &city.CountryID, &city.Name, &city.Slug,
		&city.Lat, &city.Lng, &city.ListCount, &city.CreatedAt,
		&country.ID, &country.Name, &country.Code, &country.Slug, &country.CreatedAt,
		&creator.ID, &creator.Name, &creator.Avatar,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("list", id)
		}
		return nil, fmt.Errorf("sqlite: getting list %s: %w", id, err)
	}
	city.Country = &country
	list.City = &city
	list.Creator = &creator

	// QueryRow has already released the connection, so the second query is safe
	// with a single-connection pool.
	places, err := db.listPlaces(ctx, id)
	if err != nil {
		return nil, err
	}
	list.Places = places

	return &list, nil
}

// listPlaces returns the list's entries ordered by position. Entries sharing a
// position keep insertion order (rowid).
func (db *DB) listPlaces(ctx context.Context, listID string) ([]model.ListPlace, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT lp.list_id, lp.place_id, lp.position, lp.note,
		        p.id, p.external_id, p.city_id, p.name, p.address, p.lat, p.lng,
		        p.image, p.description, p.created_at
		 FROM list_places lp
		 JOIN places p ON p.id = lp.place_id
		 WHERE lp.list_id = ?
		 ORDER BY lp.position, lp.rowid`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing places of list %s: %w", listID, err)
	}
	defer rows.Close()

	entries := []model.ListPlace{}
	for rows.Next() {
		var (
			lp model.ListPlace
			p  model.Place
		)
		if err := rows.Scan(
			&lp.ListID, &lp.PlaceID, &lp.Order, &lp.Note,
			&p.ID, &p.ExternalID, &p.CityID, &p.Name, &p.Address, &p.Lat, &p.Lng,
			&p.Image, &p.Description, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning list place row: %w", err)
		}
		lp.Place = &p
		entries = append(entries, lp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating list places: %w", err)
	}
	return entries, nil
}

// BrowseLists returns list rows (without places) matching filter.
func (db *DB) BrowseLists(ctx context.Context, filter repository.ListFilter) ([]model.List, error) {
	limit, offset := clampPage(filter.ListOptions)

	var (
		where []string
		args  []any
	)
	if filter.CityID != "" {
		where = append(where, "l.city_id = ?")
		args = append(args, filter.CityID)
	}
	if filter.CreatorID != "" {
		where = append(where, "l.creator_id = ?")
		args = append(args, filter.CreatorID)
	}

	query := `SELECT ` + listColumns + ` FROM lists l`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if filter.Popular {
		query += ` ORDER BY l.like_count DESC, l.created_at DESC, l.id DESC`
	} else {
		query += ` ORDER BY l.created_at DESC, l.id DESC`
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: browsing lists: %w", err)
	}
	return collectLists(rows, limit)
}

// ListsContainingPlace returns every list that includes the place, most liked first.
func (db *DB) ListsContainingPlace(ctx context.Context, placeID string) ([]model.List, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+listColumns+` FROM lists l
		 WHERE l.id IN (SELECT list_id FROM list_places WHERE place_id = ?)
		 ORDER BY l.like_count DESC, l.created_at DESC`,
		placeID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lists with place %s: %w", placeID, err)
	}
	return collectLists(rows, 0)
}

func collectLists(rows *sql.Rows, capHint int) ([]model.List, error) {
	defer rows.Close()

	lists := make([]model.List, 0, capHint)
	for rows.Next() {
		var l model.List
		if err := rows.Scan(
			&l.ID, &l.Name, &l.Description, &l.Genre, &l.Subgenre,
			&l.CityID, &l.CreatorID, &l.PlaceCount, &l.LikeCount, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning list row: %w", err)
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lists: %w", err)
	}
	return lists, nil
}

// LikeList records the like and bumps like_count in one transaction.
// A repeated like hits the (user_id, list_id) primary key and returns
// apperror.ErrConflict; callers that want idempotence ignore that kind.
func (db *DB) LikeList(ctx context.Context, userID, listID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM lists WHERE id = ?`, listID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("list", listID)
		}
		return fmt.Errorf("sqlite: checking list %s: %w", listID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO list_likes (user_id, list_id, created_at) VALUES (?, ?, ?)`,
		userID, listID, time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("like", listID)
		}
		return fmt.Errorf("sqlite: inserting like on list %s: %w", listID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE lists SET like_count = like_count + 1 WHERE id = ?`, listID); err != nil {
		return fmt.Errorf("sqlite: incrementing like count of list %s: %w", listID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing like on list %s: %w", listID, err)
	}
	return nil
}

// UnlikeList removes the like and decrements like_count (never below zero).
// Returns apperror.ErrNotFound when the user had not liked the list.
func (db *DB) UnlikeList(ctx context.Context, userID, listID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM list_likes WHERE user_id = ? AND list_id = ?`, userID, listID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting like on list %s: %w", listID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("like", listID)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE lists SET like_count = MAX(like_count - 1, 0) WHERE id = ?`, listID); err != nil {
		return fmt.Errorf("sqlite: decrementing like count of list %s: %w", listID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing unlike on list %s: %w", listID, err)
	}
	return nil
}

// LikedListIDs returns the ids of lists the user liked, most recent first.
func (db *DB) LikedListIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT list_id FROM list_likes WHERE user_id = ? ORDER BY created_at DESC, list_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing likes of user %s: %w", userID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning liked list id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating liked list ids: %w", err)
	}
	return ids, nil
}
