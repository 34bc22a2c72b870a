package wellapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/cache"
	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/couchcryptid/groundwater-dss-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Source fetches the full history of one well.
type Source interface {
	FetchSeries(ctx context.Context, wellID string) (domain.TimeSeries, error)
}

// CachedSource wraps a Source with an in-memory LRU cache keyed by well ID.
// Only successful fetches are cached.
type CachedSource struct {
	inner   Source
	cache   *cache.LRU[domain.TimeSeries]
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedSource creates a caching decorator. A maxEntries of zero or less
// disables caching and returns a decorator that always calls inner.
func NewCachedSource(inner Source, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *CachedSource {
	var c *cache.LRU[domain.TimeSeries]
	if maxEntries > 0 {
		c = cache.New[domain.TimeSeries](maxEntries, ttl, clock)
	}
	return &CachedSource{
		inner:   inner,
		cache:   c,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchSeries returns the cached series for wellID, fetching on a miss.
func (s *CachedSource) FetchSeries(ctx context.Context, wellID string) (domain.TimeSeries, error) {
	if s.cache == nil {
		return s.inner.FetchSeries(ctx, wellID)
	}
	if series, ok := s.cache.Get(wellID); ok {
		s.metrics.SourceCache.WithLabelValues("hit").Inc()
		s.logger.Debug("well series cache hit", "well_id", wellID, "points", series.Len())
		return series, nil
	}
	s.metrics.SourceCache.WithLabelValues("miss").Inc()

	series, err := s.inner.FetchSeries(ctx, wellID)
	if err != nil {
		return domain.TimeSeries{}, err
	}
	s.cache.Put(wellID, series)
	return series, nil
}
