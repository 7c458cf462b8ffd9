package silo

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/couchcryptid/yieldprophet-runner/internal/observability"
	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

// SQLiteCache persists provider responses across restarts. Series are stored
// in the weather file format and re-parsed on a hit.
type SQLiteCache struct {
	inner   weather.Provider
	db      *sql.DB
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewSQLiteCache opens (or creates) the cache database at path.
func NewSQLiteCache(path string, inner weather.Provider, metrics *observability.Metrics, logger *slog.Logger) (*SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS series (
		station    INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date   TEXT NOT NULL,
		body       BLOB NOT NULL,
		fetched_at TEXT NOT NULL,
		PRIMARY KEY (station, start_date, end_date)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create series table: %w", err)
	}
	return &SQLiteCache{inner: inner, db: db, metrics: metrics, logger: logger}, nil
}

func (c *SQLiteCache) Fetch(ctx context.Context, station int, start, end civil.Date) (weather.Station, *weather.Table, error) {
	var body []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT body FROM series WHERE station = ? AND start_date = ? AND end_date = ?`,
		station, start.String(), end.String(),
	).Scan(&body)
	switch {
	case err == nil:
		st, table, perr := weather.ParseFile(bytes.NewReader(body))
		if perr == nil {
			c.metrics.WeatherCache.WithLabelValues("sqlite", "hit").Inc()
			st.Number = station
			return st, table, nil
		}
	case !errors.Is(err, sql.ErrNoRows):
		return weather.Station{}, nil, fmt.Errorf("read weather cache: %w", err)
	}
	c.metrics.WeatherCache.WithLabelValues("sqlite", "miss").Inc()

	st, table, err := c.inner.Fetch(ctx, station, start, end)
	if err != nil || table.Len() == 0 {
		return st, table, err
	}
	file := weather.File{Station: st, Table: table}
	if _, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO series (station, start_date, end_date, body, fetched_at) VALUES (?, ?, ?, ?, ?)`,
		station, start.String(), end.String(), file.Bytes(), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		c.logger.Warn("weather cache write failed", "station", station, "error", err)
	}
	return st, table, nil
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
