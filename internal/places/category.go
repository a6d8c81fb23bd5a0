package places

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// categories maps provider place types to the labels shown in the app.
// Several types share a label on purpose: the front end groups by label.
var categories = map[string]string{
	"restaurant":         "Restaurant",
	"meal_takeaway":      "Takeaway",
	"meal_delivery":      "Takeaway",
	"cafe":               "Cafe",
	"bakery":             "Bakery",
	"bar":                "Bar",
	"night_club":         "Nightlife",
	"liquor_store":       "Bar",
	"food":               "Food",
	"museum":             "Museum",
	"art_gallery":        "Art Gallery",
	"tourist_attraction": "Attraction",
	"park":               "Park",
	"natural_feature":    "Nature",
	"campground":         "Outdoors",
	"zoo":                "Entertainment",
	"aquarium":           "Entertainment",
	"amusement_park":     "Entertainment",
	"movie_theater":      "Cinema",
	"stadium":            "Sports",
	"gym":                "Fitness",
	"spa":                "Wellness",
	"lodging":            "Hotel",
	"shopping_mall":      "Shopping",
	"clothing_store":     "Shopping",
	"store":              "Shopping",
	"book_store":         "Bookstore",
	"library":            "Library",
	"university":         "Education",
	"church":             "Place of Worship",
	"mosque":             "Place of Worship",
	"synagogue":          "Place of Worship",
	"hindu_temple":       "Place of Worship",
}

// genericTypes carry no information a user would care about and are never
// used as a fallback label.
var genericTypes = map[string]bool{
	"point_of_interest": true,
	"establishment":     true,
	"premise":           true,
	"political":         true,
	"geocode":           true,
}

// DefaultCategory is returned when no type is usable.
const DefaultCategory = "Place"

// Category picks a human label for a list of provider types.
//
// The lookup is ordered: the first type present in the table wins. Failing
// that, the first non-generic type is humanised ("hair_care" → "Hair Care").
// Failing that, DefaultCategory.
func Category(types []string) string {
	for _, t := range types {
		if label, ok := categories[t]; ok {
			return label
		}
	}
	for _, t := range types {
		if t == "" || genericTypes[t] {
			continue
		}
		// A Caser keeps state between calls, so each call gets its own.
		return cases.Title(language.English).String(strings.ReplaceAll(t, "_", " "))
	}
	return DefaultCategory
}
