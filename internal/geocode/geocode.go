// Package geocode resolves free-text search queries to coordinates. The
// original search term is kept on each saved location so the weather
// provider can be re-queried later.
package geocode

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/kelvins/geocoder"
)

// ErrNoAPIKey is returned when the resolver was built without a key.
var ErrNoAPIKey = errors.New("geocoder api key is not configured")

// Resolver turns a search query into coordinates via the Google geocoding
// API.
type Resolver struct {
	configured bool
	log        *slog.Logger
}

// New creates a Resolver. An empty apiKey yields a resolver whose Resolve
// always fails with ErrNoAPIKey; callers then have to supply coordinates
// themselves.
func New(apiKey string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKey != "" {
		geocoder.ApiKey = apiKey
	}
	return &Resolver{configured: apiKey != "", log: logger}
}

// Resolve returns the coordinates for a free-text query.
func (r *Resolver) Resolve(query string) (lat, lon float64, err error) {
	if !r.configured {
		return 0, 0, ErrNoAPIKey
	}
	if query == "" {
		return 0, 0, errors.New("query must not be empty")
	}

	loc, err := geocoder.Geocoding(geocoder.Address{City: query})
	if err != nil {
		r.log.Warn("geocoding failed", "query", query, "error", err)
		return 0, 0, fmt.Errorf("geocode %q: %w", query, err)
	}
	return loc.Latitude, loc.Longitude, nil
}
