package model

import "time"

// LocationStatus describes how a user relates to a city.
type LocationStatus string

const (
	StatusBornThere       LocationStatus = "BORN_THERE"
	StatusLivedPast       LocationStatus = "LIVED_PAST"
	StatusCurrentlyLiving LocationStatus = "CURRENTLY_LIVING"
)

// Valid reports whether s is one of the three known statuses.
func (s LocationStatus) Valid() bool {
	switch s {
	case StatusBornThere, StatusLivedPast, StatusCurrentlyLiving:
		return true
	}
	return false
}

// UserLocation joins a User and a City. (UserID, CityID) is UNIQUE.
//
// At most one BORN_THERE and one CURRENTLY_LIVING row per user is a service
// rule (service.ValidateLocations), not a database constraint.
type UserLocation struct {
	ID        string         `json:"id"        db:"id"`
	UserID    string         `json:"userId"    db:"user_id"`
	CityID    string         `json:"cityId"    db:"city_id"`
	Status    LocationStatus `json:"status"    db:"status"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`

	City *City `json:"city,omitempty" db:"-"`
}
