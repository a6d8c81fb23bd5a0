package model

import "time"

// User represents a registered account.
//
// WHY PasswordHash HAS json:"-"?
// The struct is returned directly from /api/users/me. The "-" tag makes
// encoding/json skip the field entirely, so the bcrypt hash can never leak
// into a response even if a handler forgets to strip it.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	Name         string    `json:"name"      db:"name"`
	Avatar       string    `json:"avatar"    db:"avatar"` // seeded avatar image URL, derived from Name
	Address      string    `json:"address"   db:"address"`
	IsLocal      bool      `json:"isLocal"   db:"is_local"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// UserSummary is the public face of a user embedded in other resources
// (a list's creator). It omits email and address.
type UserSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}
