package model

import "time"

// Place is a point of interest sourced from the places provider.
// ExternalID is the provider's place id and is UNIQUE; a place keeps the city
// it was first created under even if a later list in another city reuses it.
type Place struct {
	ID          string    `json:"id"          db:"id"`
	ExternalID  string    `json:"externalId"  db:"external_id"`
	CityID      string    `json:"cityId"      db:"city_id"`
	Name        string    `json:"name"        db:"name"`
	Address     string    `json:"address"     db:"address"`
	Lat         float64   `json:"lat"         db:"lat"`
	Lng         float64   `json:"lng"         db:"lng"`
	Image       *string   `json:"image"       db:"image"`
	Description *string   `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}
