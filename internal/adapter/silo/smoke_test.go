//go:build silo

package silo

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/yieldprophet-runner/internal/observability"
)

// These tests hit a live weather endpoint named by WEATHER_BASE_URL.
// Run with: go test -tags=silo ./internal/adapter/silo/ -v -count=1

const smokeStation = 77008 // Horsham

func smokeClient(t *testing.T) *Client {
	t.Helper()
	baseURL := os.Getenv("WEATHER_BASE_URL")
	if baseURL == "" {
		t.Fatal("WEATHER_BASE_URL must be set to run smoke tests")
	}
	return NewClient(baseURL, 30*time.Second, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_Fetch(t *testing.T) {
	c := smokeClient(t)

	start := civil.Date{Year: 2016, Month: time.May, Day: 1}
	end := civil.Date{Year: 2016, Month: time.May, Day: 31}
	st, table, err := c.Fetch(context.Background(), smokeStation, start, end)
	require.NoError(t, err)

	assert.Equal(t, smokeStation, st.Number)
	assert.InDelta(t, -36.7, st.Latitude, 0.5)
	require.Equal(t, 31, table.Len())
	assert.Equal(t, start, table.Rows[0].Date)
	assert.NoError(t, table.Validate())
}

func TestSmoke_CachedProvider(t *testing.T) {
	c := smokeClient(t)
	cached, err := NewCachedProvider(c, 4, observability.NewMetricsForTesting())
	require.NoError(t, err)

	start := civil.Date{Year: 2015, Month: time.January, Day: 1}
	end := civil.Date{Year: 2015, Month: time.January, Day: 10}

	_, t1, err := cached.Fetch(context.Background(), smokeStation, start, end)
	require.NoError(t, err)
	_, t2, err := cached.Fetch(context.Background(), smokeStation, start, end)
	require.NoError(t, err)
	assert.Equal(t, t1.Len(), t2.Len())
}
