package model

import "time"

// List is a curated, ordered collection of places in one city.
//
// PlaceCount and LikeCount are denormalized counters maintained by the
// repository when places are attached and when likes are added or removed.
type List struct {
	ID          string    `json:"id"          db:"id"`
	Name        string    `json:"name"        db:"name"`
	Description *string   `json:"description" db:"description"`
	Genre       *string   `json:"genre"       db:"genre"`
	Subgenre    *string   `json:"subgenre"    db:"subgenre"`
	CityID      string    `json:"cityId"      db:"city_id"`
	CreatorID   string    `json:"creatorId"   db:"creator_id"`
	PlaceCount  int       `json:"placeCount"  db:"place_count"`
	LikeCount   int       `json:"likeCount"   db:"like_count"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`

	// Populated by GetListByID only.
	City    *City        `json:"city,omitempty"    db:"-"`
	Creator *UserSummary `json:"creator,omitempty" db:"-"`
	Places  []ListPlace  `json:"places,omitempty"  db:"-"`
}

// ListPlace attaches a Place to a List at a position. Order is whatever the
// creator supplied; gaps and duplicates are stored as given.
type ListPlace struct {
	ListID  string  `json:"listId"  db:"list_id"`
	PlaceID string  `json:"placeId" db:"place_id"`
	Order   int     `json:"order"   db:"position"`
	Note    *string `json:"note"    db:"note"`

	Place *Place `json:"place,omitempty" db:"-"`
}

// ListLike records that a user liked a list. (UserID, ListID) is UNIQUE.
type ListLike struct {
	UserID    string    `json:"userId"    db:"user_id"`
	ListID    string    `json:"listId"    db:"list_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
