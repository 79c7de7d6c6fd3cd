package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"googlemaps.github.io/maps"
)

const (
	// Coordinates are cached at ~100m granularity.
	cachePrecision = 1e3
	cacheTTL       = 24 * time.Hour
)

// Geocoder turns shared coordinates into a street address.
type Geocoder struct {
	client   *maps.Client
	language string
	cache    *cache.Cache
	logger   *slog.Logger
}

// New creates a Geocoder. baseURL overrides the Maps API host and may be empty.
func New(apiKey, baseURL, language string, logger *slog.Logger) (*Geocoder, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{
		client:   client,
		language: language,
		cache:    cache.New(cacheTTL, time.Hour),
		logger:   logger,
	}, nil
}

// Describe returns the formatted address nearest to lat/lon, or "" when the
// Maps API knows none.
func (g *Geocoder) Describe(ctx context.Context, lat, lon float64) (string, error) {
	key := cacheKey(lat, lon)
	if v, ok := g.cache.Get(key); ok {
		return v.(string), nil
	}

	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: lat, Lng: lon},
		Language: g.language,
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}

	var address string
	for _, r := range results {
		if r.FormattedAddress != "" {
			address = r.FormattedAddress
			break
		}
	}
	g.cache.Set(key, address, cache.DefaultExpiration)
	g.logger.Debug("reverse geocoded", "results", len(results), "found", address != "")
	return address, nil
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.0f:%.0f", lat*cachePrecision, lon*cachePrecision)
}
