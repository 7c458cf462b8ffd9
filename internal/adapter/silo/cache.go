package silo

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/yieldprophet-runner/internal/observability"
	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

type cachedSeries struct {
	station weather.Station
	table   *weather.Table
}

// CachedProvider wraps a weather.Provider with an in-memory LRU cache.
// Callers receive their own copy of every table.
type CachedProvider struct {
	inner   weather.Provider
	cache   *lru.Cache[string, cachedSeries]
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner weather.Provider, maxEntries int, metrics *observability.Metrics) (*CachedProvider, error) {
	cache, err := lru.New[string, cachedSeries](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create weather cache: %w", err)
	}
	return &CachedProvider{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedProvider) Fetch(ctx context.Context, station int, start, end civil.Date) (weather.Station, *weather.Table, error) {
	key := cacheKey(station, start, end)
	if hit, ok := c.cache.Get(key); ok {
		c.metrics.WeatherCache.WithLabelValues("memory", "hit").Inc()
		return hit.station, hit.table.Clone(), nil
	}
	c.metrics.WeatherCache.WithLabelValues("memory", "miss").Inc()

	st, table, err := c.inner.Fetch(ctx, station, start, end)
	if err != nil {
		return st, table, err
	}
	// Only cache non-empty series so a provider that has not caught up yet is asked again.
	if table.Len() > 0 {
		c.cache.Add(key, cachedSeries{station: st, table: table.Clone()})
	}
	return st, table, nil
}

func cacheKey(station int, start, end civil.Date) string {
	return fmt.Sprintf("%d|%s|%s", station, start, end)
}
