package silo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/yieldprophet-runner/internal/observability"
	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

const providerBody = `[weather.met.weather]
!station number = 077008
latitude = -36.3344  (DECIMAL DEGREES)
longitude = 142.4172  (DECIMAL DEGREES)
tav = 15.43 (oC)
amp = 14.02 (oC)

year  day radn  maxt   mint  rain  evap    vp   code
 ()   () (MJ/m^2) (oC) (oC)  (mm)  (mm) (hPa)     ()
2016   122   10.0   18.5    6.0    0.0   1.4  10.6 222222
2016   123    9.5   17.0    7.5    4.2   1.0  11.2 222222
2016   124   11.1   16.4    5.1    0.2   1.2  10.1 222222
`

func d(y int, m time.Month, day int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: day}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     discardLogger(),
	}
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "77008", q.Get("station"))
		assert.Equal(t, "20160501", q.Get("start"))
		assert.Equal(t, "20160503", q.Get("finish"))
		assert.Equal(t, "apsim", q.Get("format"))
		_, _ = io.WriteString(w, providerBody)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	st, table, err := c.Fetch(context.Background(), 77008, d(2016, 5, 1), d(2016, 5, 3))
	require.NoError(t, err)

	assert.Equal(t, 77008, st.Number)
	assert.InDelta(t, -36.3344, st.Latitude, 1e-9)
	assert.InDelta(t, 14.02, st.AMP, 1e-9)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, d(2016, 5, 1), table.First())
	assert.Equal(t, d(2016, 5, 3), table.Last())
	rain, ok := table.Rows[1].Value(weather.Rain)
	require.True(t, ok)
	assert.Equal(t, 4.2, rain)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.WeatherRequests.WithLabelValues("success")))
}

func TestClient_Fetch_NoRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "latitude = -36.3\nyear day radn maxt mint rain\n")
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, table, err := c.Fetch(context.Background(), 1, d(2030, 1, 1), d(2030, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.WeatherRequests.WithLabelValues("empty")))
}

func TestClient_Fetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := testClient(url)
	_, _, err := c.Fetch(context.Background(), 1, d(2016, 5, 1), d(2016, 5, 3))
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrDataSourceUnavailable)
}

func TestClient_Fetch_StatusErrors(t *testing.T) {
	tests := []struct {
		status      int
		unavailable bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer srv.Close()

			c := testClient(srv.URL)
			_, _, err := c.Fetch(context.Background(), 1, d(2016, 5, 1), d(2016, 5, 3))
			require.Error(t, err)
			assert.Contains(t, err.Error(), fmt.Sprintf("status %d", tc.status))
			assert.Equal(t, tc.unavailable, errors.Is(err, weather.ErrDataSourceUnavailable))
		})
	}
}

func TestClient_Fetch_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "year day rain\n2016 122 lots\n")
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, _, err := c.Fetch(context.Background(), 1, d(2016, 5, 1), d(2016, 5, 3))
	require.Error(t, err)
	assert.NotErrorIs(t, err, weather.ErrDataSourceUnavailable)
	assert.Contains(t, err.Error(), "line 2")
}

func TestClient_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond, observability.NewMetricsForTesting(), discardLogger())
	_, _, err := c.Fetch(context.Background(), 1, d(2016, 5, 1), d(2016, 5, 3))
	assert.ErrorIs(t, err, weather.ErrDataSourceUnavailable)
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient("", time.Second, observability.NewMetricsForTesting(), discardLogger())
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
