package weather

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akarpov87/weatherdesk/internal/metrics"
)

// Service reads weather through the cache, fetching from the provider when
// the cached snapshot is missing or stale.
type Service struct {
	provider Provider
	cache    *Cache
	log      *slog.Logger
}

// NewService creates a Service.
func NewService(provider Provider, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{provider: provider, cache: cache, log: logger}
}

// CurrentFor returns the current weather for a saved location. A fresh
// cache entry is served as-is. On a miss or a stale entry the provider is
// queried; if the fetch fails but a stale entry exists, the stale snapshot
// is returned with stale=true instead of an error.
func (s *Service) CurrentFor(ctx context.Context, locationID string, lat, lon float64) (Snapshot, bool, error) {
	cached, stale, ok := s.cache.Get(locationID)
	if ok && !stale {
		metrics.WeatherCacheHits.Inc()
		return cached, false, nil
	}

	metrics.WeatherCacheMisses.Inc()
	snap, err := s.provider.Current(ctx, lat, lon)
	if err != nil {
		if ok {
			metrics.WeatherStaleServed.Inc()
			s.log.Warn("weather fetch failed, serving stale snapshot",
				"location", locationID, "provider", s.provider.Name(), "error", err)
			return cached, true, nil
		}
		s.log.Error("weather fetch failed with no cached snapshot",
			"location", locationID, "provider", s.provider.Name(), "error", err)
		return Snapshot{}, false, fmt.Errorf("fetch weather from %s: %w", s.provider.Name(), err)
	}

	s.cache.Put(locationID, snap)
	return snap, false, nil
}
