// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the binary builds without CGo and
// tests can use an in-memory database (":memory:") with no setup at all.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB   — a connection pool (NOT a single connection!)
//   - sql.Tx   — a transaction; every statement inside it must go through the Tx
//   - sql.Row  — a single result row
//   - sql.Rows — multiple result rows (must be closed!)
//
// ONE CONNECTION:
// The pool is capped at a single connection. SQLite serialises writers anyway,
// PRAGMAs such as foreign_keys are per connection, and every new connection to
// ":memory:" would otherwise open a brand-new empty database. The cost is that
// a query must never be issued while *sql.Rows from another query is still
// open, and statements inside a transaction must use the *sql.Tx.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool. It implements every interface in
// internal/repository; the methods live in geo.go, user.go, location.go,
// place.go and list.go.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/locali.db" → file-based database (persistent)
//   - ":memory:"       → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	// Ping forces the first real connection so a bad path fails here,
	// not on the first request.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (for backwards compatibility).
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /api/health.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrations run in order on every start. Each statement is idempotent
// (CREATE ... IF NOT EXISTS), so re-running them on an existing file is safe.
var migrations = []struct {
	name string
	sql  string
}{
	{"countries", `
		CREATE TABLE IF NOT EXISTS countries (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			code       TEXT NOT NULL DEFAULT '',
			slug       TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`},
	{"cities", `
		CREATE TABLE IF NOT EXISTS cities (
			id         TEXT PRIMARY KEY,
			country_id TEXT NOT NULL REFERENCES countries(id),
			name       TEXT NOT NULL,
			slug       TEXT NOT NULL DEFAULT '',
			lat        REAL,
			lng        REAL,
			list_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (country_id, name)
		);`},
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name          TEXT NOT NULL,
			avatar        TEXT NOT NULL DEFAULT '',
			address       TEXT NOT NULL DEFAULT '',
			is_local      INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`},
	// The one-BORN_THERE / one-CURRENTLY_LIVING rule is NOT expressed here;
	// service.ValidateLocations owns it.
	{"user_locations", `
		CREATE TABLE IF NOT EXISTS user_locations (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			city_id    TEXT NOT NULL REFERENCES cities(id),
			status     TEXT NOT NULL CHECK (status IN ('BORN_THERE', 'LIVED_PAST', 'CURRENTLY_LIVING')),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, city_id)
		);`},
	{"places", `
		CREATE TABLE IF NOT EXISTS places (
			id          TEXT PRIMARY KEY,
			external_id TEXT NOT NULL UNIQUE,
			city_id     TEXT NOT NULL REFERENCES cities(id),
			name        TEXT NOT NULL,
			address     TEXT NOT NULL,
			lat         REAL NOT NULL,
			lng         REAL NOT NULL,
			image       TEXT,
			description TEXT,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`},
	{"lists", `
		CREATE TABLE IF NOT EXISTS lists (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT,
			genre       TEXT,
			subgenre    TEXT,
			city_id     TEXT NOT NULL REFERENCES cities(id),
			creator_id  TEXT NOT NULL REFERENCES users(id),
			place_count INTEGER NOT NULL DEFAULT 0,
			like_count  INTEGER NOT NULL DEFAULT 0,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_lists_city_id ON lists(city_id);
		CREATE INDEX IF NOT EXISTS idx_lists_creator_id ON lists(creator_id);`},
	{"list_places", `
		CREATE TABLE IF NOT EXISTS list_places (
			list_id  TEXT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
			place_id TEXT NOT NULL REFERENCES places(id),
			position INTEGER NOT NULL,
			note     TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_list_places_list ON list_places(list_id, position);
		CREATE INDEX IF NOT EXISTS idx_list_places_place ON list_places(place_id);`},
	{"list_likes", `
		CREATE TABLE IF NOT EXISTS list_likes (
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			list_id    TEXT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, list_id)
		);`},
}

func (db *DB) migrate() error {
	for _, m := range migrations {
		if _, err := db.conn.Exec(m.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", m.name, err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint. Repositories translate it into apperror.Conflict.
func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// placeholders returns "?, ?, ?" for n arguments, for IN (...) clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
