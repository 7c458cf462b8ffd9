package silo

import (
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/yieldprophet-runner/internal/observability"
	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

// Options configures the provider chain built by NewProvider.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	CacheSize int    // in-memory LRU entries; <= 0 disables the LRU
	CachePath string // sqlite file; empty disables the persistent cache
}

// Provider is the HTTP client behind its optional sqlite and LRU caches.
type Provider struct {
	weather.Provider
	sqlite *SQLiteCache
}

// NewProvider assembles client -> sqlite cache -> LRU cache.
func NewProvider(opts Options, metrics *observability.Metrics, logger *slog.Logger) (*Provider, error) {
	var chain weather.Provider = NewClient(opts.BaseURL, opts.Timeout, metrics, logger)
	p := &Provider{}

	if opts.CachePath != "" {
		sq, err := NewSQLiteCache(opts.CachePath, chain, metrics, logger)
		if err != nil {
			return nil, err
		}
		p.sqlite = sq
		chain = sq
	}
	if opts.CacheSize > 0 {
		cached, err := NewCachedProvider(chain, opts.CacheSize, metrics)
		if err != nil {
			return nil, errors.Join(err, p.Close())
		}
		chain = cached
	}
	p.Provider = chain
	return p, nil
}

// Close releases the persistent cache, if any.
func (p *Provider) Close() error {
	if p.sqlite == nil {
		return nil
	}
	return p.sqlite.Close()
}
