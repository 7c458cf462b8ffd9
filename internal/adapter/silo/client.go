package silo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cloud.google.com/go/civil"

	"github.com/couchcryptid/yieldprophet-runner/internal/observability"
	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

// DefaultBaseURL is the SILO patched point dataset endpoint.
const DefaultBaseURL = "https://www.longpaddock.qld.gov.au/cgi-bin/silo/PatchedPointDataset.php"

// Client implements weather.Provider against a SILO-style HTTP endpoint that
// returns the text weather format.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a weather provider client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch retrieves [start, end] for a station. A response without rows is an
// empty table, not an error. Connection failures and server errors wrap
// weather.ErrDataSourceUnavailable.
func (c *Client) Fetch(ctx context.Context, station int, start, end civil.Date) (weather.Station, *weather.Table, error) {
	params := url.Values{
		"station": {strconv.Itoa(station)},
		"start":   {compactDate(start)},
		"finish":  {compactDate(end)},
		"format":  {"apsim"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return weather.Station{}, nil, fmt.Errorf("create request: %w", err)
	}

	began := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.WeatherAPIDuration.Observe(time.Since(began).Seconds())
	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return weather.Station{}, nil, fmt.Errorf("weather request station %d: %w: %w", station, weather.ErrDataSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("weather API error: status %d: %s", resp.StatusCode, body)
		if resp.StatusCode >= http.StatusInternalServerError {
			err = fmt.Errorf("%w: %w", weather.ErrDataSourceUnavailable, err)
		}
		return weather.Station{}, nil, err
	}

	st, table, err := weather.ParseFile(resp.Body)
	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return weather.Station{}, nil, fmt.Errorf("decode weather station %d: %w", station, err)
	}
	st.Number = station

	if table.Len() == 0 {
		c.metrics.WeatherRequests.WithLabelValues("empty").Inc()
		c.logger.Debug("weather provider returned no rows", "station", station, "start", start.String(), "end", end.String())
		return st, table, nil
	}
	c.metrics.WeatherRequests.WithLabelValues("success").Inc()
	return st, table, nil
}

func compactDate(d civil.Date) string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}
