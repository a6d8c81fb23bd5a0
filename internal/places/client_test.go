package places

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient points a client at a fake provider.
func newTestClient(t *testing.T, apiKey string, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(apiKey, srv.URL+"/", srv.Client(), discardLogger())
}

const detailsOK = `{
  "status": "OK",
  "result": {
    "name": "Blue Star Donuts",
    "formatted_address": "1237 SW Washington St, Portland, OR 97205, USA",
    "geometry": {"location": {"lat": 45.5215, "lng": -122.6838}},
    "formatted_phone_number": "(503) 265-8410",
    "website": "https://www.bluestardonuts.com/",
    "url": "https://maps.google.com/?cid=1",
    "rating": 4.5,
    "user_ratings_total": 3210,
    "opening_hours": {"weekday_text": ["Monday: 7:00 AM - 6:00 PM"]},
    "editorial_summary": {"overview": "Brioche donuts."},
    "types": ["bakery", "food", "point_of_interest"],
    "photos": [{"photo_reference": "ref-1"}, {"photo_reference": "ref-2"}],
    "address_components": [
      {"long_name": "Portland", "short_name": "Portland", "types": ["locality", "political"]},
      {"long_name": "United States", "short_name": "US", "types": ["country", "political"]}
    ]
  }
}`

func TestPlaceDetails(t *testing.T) {
	var gotQuery map[string]string
	c := newTestClient(t, "test-key", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/details/json", r.URL.Path)
		gotQuery = map[string]string{
			"place_id": r.URL.Query().Get("place_id"),
			"key":      r.URL.Query().Get("key"),
		}
		fmt.Fprint(w, detailsOK)
	})

	d := c.PlaceDetails(context.Background(), "ChIJ-blue-star")

	assert.Equal(t, "ChIJ-blue-star", gotQuery["place_id"])
	assert.Equal(t, "test-key", gotQuery["key"])

	assert.Equal(t, "ChIJ-blue-star", d.PlaceID)
	require.NotNil(t, d.Name)
	assert.Equal(t, "Blue Star Donuts", *d.Name)
	require.NotNil(t, d.Lat)
	assert.InDelta(t, 45.5215, *d.Lat, 1e-9)
	require.NotNil(t, d.Rating)
	assert.InDelta(t, 4.5, *d.Rating, 1e-9)
	require.NotNil(t, d.RatingCount)
	assert.Equal(t, 3210, *d.RatingCount)
	assert.Nil(t, d.PriceLevel, "absent fields stay nil")
	require.NotNil(t, d.Summary)
	assert.Equal(t, "Brioche donuts.", *d.Summary)
	assert.Equal(t, []string{"Monday: 7:00 AM - 6:00 PM"}, d.OpeningHours)
	assert.Equal(t, []string{"ref-1", "ref-2"}, d.PhotoRefs)

	locality, ok := d.Component("locality")
	require.True(t, ok)
	assert.Equal(t, "Portland", locality.LongName)
	_, ok = d.Component("postal_code")
	assert.False(t, ok)
}

func TestPlaceDetails_Degrades(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		handler http.HandlerFunc
	}{
		{
			name:   "no api key",
			apiKey: "",
			handler: func(w http.ResponseWriter, r *http.Request) {
				t.Error("provider must not be called without a key")
			},
		},
		{
			name:   "non-200",
			apiKey: "k",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name:   "non-OK status",
			apiKey: "k",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"status":"REQUEST_DENIED","error_message":"bad key"}`)
			},
		},
		{
			name:   "malformed body",
			apiKey: "k",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"status":`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.apiKey, tt.handler)

			d := c.PlaceDetails(context.Background(), "abc")

			require.NotNil(t, d)
			assert.Equal(t, EmptyDetails("abc"), d)
		})
	}
}

func TestPlaceDetails_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // every request now fails to connect

	c := NewClient("k", srv.URL, nil, discardLogger())
	d := c.PlaceDetails(context.Background(), "abc")

	assert.Equal(t, EmptyDetails("abc"), d)
}

func TestPhotoURLs(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/photo", r.URL.Path)
		ref := r.URL.Query().Get("photo_reference")
		if ref == "broken" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, "https://images.example.com/"+ref+".jpg", http.StatusFound)
	})

	refs := []string{"a", "broken", "b", "c", "d", "e", "f"}
	urls := c.PhotoURLs(context.Background(), refs)

	assert.EqualValues(t, MaxPhotos, calls.Load(), "only the first MaxPhotos refs are attempted")
	assert.Equal(t, []string{
		"https://images.example.com/a.jpg",
		"https://images.example.com/b.jpg",
		"https://images.example.com/c.jpg",
		"https://images.example.com/d.jpg",
	}, urls)
}

func TestPhotoURLs_NoKey(t *testing.T) {
	c := NewClient("", "http://unused.invalid", nil, discardLogger())
	urls := c.PhotoURLs(context.Background(), []string{"a"})
	assert.NotNil(t, urls)
	assert.Empty(t, urls)
}

func TestAutocompleteCities(t *testing.T) {
	c := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/autocomplete/json", r.URL.Path)
		assert.Equal(t, "port", r.URL.Query().Get("input"))
		assert.Equal(t, "(regions)", r.URL.Query().Get("types"))
		fmt.Fprint(w, `{
		  "status": "OK",
		  "predictions": [
		    {"place_id": "p1", "description": "Portland, OR, USA", "types": ["locality", "political"],
		     "structured_formatting": {"main_text": "Portland", "secondary_text": "OR, USA"}},
		    {"place_id": "p2", "description": "97201, Portland", "types": ["postal_code"]},
		    {"place_id": "p3", "description": "Portugal", "types": ["country", "political"],
		     "structured_formatting": {"main_text": "Portugal"}}
		  ]
		}`)
	})

	got := c.AutocompleteCities(context.Background(), "  port ")

	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].PlaceID)
	assert.Equal(t, "Portland", got[0].MainText)
	assert.Equal(t, "OR, USA", got[0].SecondaryText)
	assert.Equal(t, "p3", got[1].PlaceID)
}

func TestAutocompleteCities_ZeroResults(t *testing.T) {
	c := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ZERO_RESULTS","predictions":[]}`)
	})

	got := c.AutocompleteCities(context.Background(), "zzzz")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
