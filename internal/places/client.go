// Package places is a thin client for the Google Places web service.
//
// DEGRADE, DON'T FAIL:
// Every method swallows provider problems (missing API key, network errors,
// non-OK statuses, bad JSON) and returns empty data instead. Detail pages
// must render even when the provider is down, so callers never see an error
// from this package. Failures are logged at warn level.
//
// There are no retries and no caching: each call is one request, except
// PhotoURLs which issues one request per photo.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// MaxPhotos bounds how many photo references PhotoURLs resolves.
	MaxPhotos = 5

	defaultPhotoWidth = 800
	defaultTimeout    = 10 * time.Second

	detailsFields = "name,formatted_address,geometry/location,formatted_phone_number,website,url," +
		"rating,user_ratings_total,price_level,opening_hours/weekday_text,editorial_summary," +
		"types,photos,address_components"
)

// cityTypes are the autocomplete result types that count as a "city".
var cityTypes = map[string]bool{
	"locality":                    true,
	"administrative_area_level_1": true,
	"administrative_area_level_2": true,
	"administrative_area_level_3": true,
	"country":                     true,
}

// Details is the provider's view of a place. Pointer fields are nil when the
// provider did not supply them, so they serialise as JSON null.
type Details struct {
	PlaceID      string   `json:"placeId"`
	Name         *string  `json:"name"`
	Address      *string  `json:"address"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	Phone        *string  `json:"phone"`
	Website      *string  `json:"website"`
	MapsURL      *string  `json:"mapsUrl"`
	Rating       *float64 `json:"rating"`
	RatingCount  *int     `json:"ratingCount"`
	PriceLevel   *int     `json:"priceLevel"`
	Summary      *string  `json:"summary"`
	OpeningHours []string `json:"openingHours"`
	Types        []string `json:"types"`

	PhotoRefs         []string           `json:"-"`
	AddressComponents []AddressComponent `json:"-"`
}

// AddressComponent is one part of a structured address ("Portland", locality).
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// Component returns the first component tagged with typ.
func (d *Details) Component(typ string) (AddressComponent, bool) {
	for _, c := range d.AddressComponents {
		for _, t := range c.Types {
			if t == typ {
				return c, true
			}
		}
	}
	return AddressComponent{}, false
}

// EmptyDetails is the all-null result returned whenever the provider cannot help.
func EmptyDetails(placeID string) *Details {
	return &Details{
		PlaceID:           placeID,
		OpeningHours:      []string{},
		Types:             []string{},
		PhotoRefs:         []string{},
		AddressComponents: []AddressComponent{},
	}
}

// Prediction is one autocomplete suggestion.
type Prediction struct {
	PlaceID       string   `json:"placeId"`
	Description   string   `json:"description"`
	MainText      string   `json:"mainText"`
	SecondaryText string   `json:"secondaryText"`
	Types         []string `json:"types"`
}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	photos  *http.Client // same transport, but does not follow redirects
	logger  *slog.Logger
}

// NewClient creates a client for baseURL (e.g.
// "https://maps.googleapis.com/maps/api/place"). httpClient may be nil.
func NewClient(apiKey, baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	// The photo endpoint answers with a 302 whose Location is a public image
	// URL. Stopping at the redirect gives us that URL without downloading the
	// image and without exposing our API key to the browser.
	photos := *httpClient
	photos.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		photos:  &photos,
		logger:  logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         *struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		Phone            string   `json:"formatted_phone_number"`
		Website          string   `json:"website"`
		URL              string   `json:"url"`
		Rating           *float64 `json:"rating"`
		UserRatingsTotal *int     `json:"user_ratings_total"`
		PriceLevel       *int     `json:"price_level"`
		OpeningHours     *struct {
			WeekdayText []string `json:"weekday_text"`
		} `json:"opening_hours"`
		EditorialSummary *struct {
			Overview string `json:"overview"`
		} `json:"editorial_summary"`
		Types  []string `json:"types"`
		Photos []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
		AddressComponents []AddressComponent `json:"address_components"`
	} `json:"result"`
}

// PlaceDetails fetches details for placeID. It never returns nil.
func (c *Client) PlaceDetails(ctx context.Context, placeID string) *Details {
	if !c.Enabled() || placeID == "" {
		return EmptyDetails(placeID)
	}

	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", detailsFields)

	var body detailsResponse
	if err := c.getJSON(ctx, "/details/json", q, &body); err != nil {
		c.logger.Warn("places: details request failed",
			slog.String("placeID", placeID),
			slog.String("error", err.Error()),
		)
		return EmptyDetails(placeID)
	}
	if body.Status != "OK" {
		c.logger.Warn("places: details returned non-OK status",
			slog.String("placeID", placeID),
			slog.String("status", body.Status),
			slog.String("message", body.ErrorMessage),
		)
		return EmptyDetails(placeID)
	}

	r := body.Result
	d := EmptyDetails(placeID)
	d.Name = nonEmpty(r.Name)
	d.Address = nonEmpty(r.FormattedAddress)
	if r.Geometry != nil {
		lat, lng := r.Geometry.Location.Lat, r.Geometry.Location.Lng
		d.Lat, d.Lng = &lat, &lng
	}
	d.Phone = nonEmpty(r.Phone)
	d.Website = nonEmpty(r.Website)
	d.MapsURL = nonEmpty(r.URL)
	d.Rating = r.Rating
	d.RatingCount = r.UserRatingsTotal
	d.PriceLevel = r.PriceLevel
	if r.EditorialSummary != nil {
		d.Summary = nonEmpty(r.EditorialSummary.Overview)
	}
	if r.OpeningHours != nil && r.OpeningHours.WeekdayText != nil {
		d.OpeningHours = r.OpeningHours.WeekdayText
	}
	if r.Types != nil {
		d.Types = r.Types
	}
	for _, p := range r.Photos {
		if p.PhotoReference != "" {
			d.PhotoRefs = append(d.PhotoRefs, p.PhotoReference)
		}
	}
	if r.AddressComponents != nil {
		d.AddressComponents = r.AddressComponents
	}
	return d
}

// PhotoURLs turns photo references into displayable image URLs. References
// that fail to resolve are skipped; at most MaxPhotos are attempted, in
// parallel, and the result keeps the order of refs.
func (c *Client) PhotoURLs(ctx context.Context, refs []string) []string {
	urls := []string{}
	if !c.Enabled() {
		return urls
	}
	if len(refs) > MaxPhotos {
		refs = refs[:MaxPhotos]
	}

	resolved := make([]string, len(refs))
	var g errgroup.Group
	for i, ref := range refs {
		g.Go(func() error {
			u, err := c.photoURL(ctx, ref)
			if err != nil {
				c.logger.Warn("places: dropping photo",
					slog.String("ref", ref),
					slog.String("error", err.Error()),
				)
				return nil
			}
			resolved[i] = u
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	for _, u := range resolved {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func (c *Client) photoURL(ctx context.Context, ref string) (string, error) {
	q := url.Values{}
	q.Set("photo_reference", ref)
	q.Set("maxwidth", strconv.Itoa(defaultPhotoWidth))
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/photo?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := c.photos.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting photo: %w", stripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return "", fmt.Errorf("expected redirect, got status %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", fmt.Errorf("redirect without Location header")
	}
	return loc, nil
}

type autocompleteResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Predictions  []struct {
		PlaceID              string   `json:"place_id"`
		Description          string   `json:"description"`
		Types                []string `json:"types"`
		StructuredFormatting struct {
			MainText      string `json:"main_text"`
			SecondaryText string `json:"secondary_text"`
		} `json:"structured_formatting"`
	} `json:"predictions"`
}

// AutocompleteCities suggests cities, regions and countries matching input.
func (c *Client) AutocompleteCities(ctx context.Context, input string) []Prediction {
	out := []Prediction{}
	input = strings.TrimSpace(input)
	if !c.Enabled() || input == "" {
		return out
	}

	q := url.Values{}
	q.Set("input", input)
	q.Set("types", "(regions)")

	var body autocompleteResponse
	if err := c.getJSON(ctx, "/autocomplete/json", q, &body); err != nil {
		c.logger.Warn("places: autocomplete request failed",
			slog.String("input", input),
			slog.String("error", err.Error()),
		)
		return out
	}
	if body.Status != "OK" {
		if body.Status != "ZERO_RESULTS" {
			c.logger.Warn("places: autocomplete returned non-OK status",
				slog.String("status", body.Status),
				slog.String("message", body.ErrorMessage),
			)
		}
		return out
	}

	for _, p := range body.Predictions {
		if !hasCityType(p.Types) {
			continue
		}
		out = append(out, Prediction{
			PlaceID:       p.PlaceID,
			Description:   p.Description,
			MainText:      p.StructuredFormatting.MainText,
			SecondaryText: p.StructuredFormatting.SecondaryText,
			Types:         p.Types,
		})
	}
	return out
}

func hasCityType(types []string) bool {
	for _, t := range types {
		if cityTypes[t] {
			return true
		}
	}
	return false
}

// getJSON performs GET baseURL+path?query&key=... and decodes a 200 body.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, dst any) error {
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, stripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// stripURL drops the request URL from transport errors. The URL carries the
// API key and these errors end up in logs.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
