// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, composing them instead of
// inheriting: a City carries an optional *Country rather than extending it.
package model

import "time"

// Country is created the first time a list or a user location references it.
// Name is the lookup key and is UNIQUE in the database.
type Country struct {
	ID        string    `json:"id"        db:"id"`
	Name      string    `json:"name"      db:"name"`
	Code      string    `json:"code"      db:"code"` // ISO code when known, else ""
	Slug      string    `json:"slug"      db:"slug"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// City is unique per (CountryID, Name).
//
// ListCount is denormalized: it is incremented every time a list is created
// in the city and never decremented.
type City struct {
	ID        string    `json:"id"        db:"id"`
	CountryID string    `json:"countryId" db:"country_id"`
	Name      string    `json:"name"      db:"name"`
	Slug      string    `json:"slug"      db:"slug"`
	Lat       *float64  `json:"lat"       db:"lat"`
	Lng       *float64  `json:"lng"       db:"lng"`
	ListCount int       `json:"listCount" db:"list_count"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	Country *Country `json:"country,omitempty" db:"-"`
}
