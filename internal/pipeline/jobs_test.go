package pipeline_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/yieldprophet-runner/internal/archive"
	"github.com/couchcryptid/yieldprophet-runner/internal/archive/memory"
	"github.com/couchcryptid/yieldprophet-runner/internal/domain"
	"github.com/couchcryptid/yieldprophet-runner/internal/pipeline"
	"github.com/couchcryptid/yieldprophet-runner/internal/simspec"
	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

// dailyProvider answers every request with a complete series of constant rain.
type dailyProvider struct{}

func (dailyProvider) Fetch(_ context.Context, station int, start, end civil.Date) (weather.Station, *weather.Table, error) {
	t := &weather.Table{}
	for d := start; !d.After(end); d = d.AddDays(1) {
		r := weather.NewRow(d)
		r.Set(weather.Radn, 15)
		r.Set(weather.MaxT, 20)
		r.Set(weather.MinT, 8)
		r.Set(weather.Rain, 2)
		t.Rows = append(t.Rows, r)
	}
	return weather.Station{Number: station, Latitude: -36.4, Longitude: 142.6, TAV: 15, AMP: 14}, t, nil
}

func loadJob(t *testing.T, name string) domain.RawEvent {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "jobs", name))
	require.NoError(t, err)
	return domain.RawEvent{Key: []byte(name), Value: data, Topic: "yieldprophet-jobs"}
}

func TestJobTransformer_WithJobFixtures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules, err := simspec.DefaultRules()
	require.NoError(t, err)

	cases := []struct {
		file     string
		today    time.Time
		jobID    string
		report   string
		variants int
		first    string
	}{
		{file: "crop.json", today: time.Date(2016, 7, 1, 9, 0, 0, 0, time.UTC), jobID: "crop-2016-north", report: "crop", variants: 5, first: simspec.VariantThisYear},
		{file: "sowing.json", today: time.Date(2016, 3, 10, 9, 0, 0, 0, time.UTC), jobID: "sowing-2016-south", report: "sowing-opportunity", variants: 23, first: "Sow15Mar"},
	}

	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			clock := clockwork.NewFakeClockAt(tc.today)
			domain.SetClock(clock)
			t.Cleanup(func() { domain.SetClock(nil) })

			synth := weather.NewSynthesizer(dailyProvider{}, clock, logger)
			builder := simspec.NewBuilder(synth, rules, 2, logger)
			store := memory.New()
			metrics := newTestMetrics()
			archiver := archive.NewArchiver(store, metrics, logger)
			tfm := pipeline.NewTransformer(builder, archiver, metrics, logger)

			outs, err := tfm.Transform(context.Background(), loadJob(t, tc.file))
			require.NoError(t, err)
			require.Len(t, outs, tc.variants)

			for _, out := range outs {
				assert.Equal(t, domain.StatusOK, out.Headers[domain.HeaderStatus])
				assert.Equal(t, tc.jobID, out.Headers[domain.HeaderJobID])

				var spec domain.SimulationSpec
				require.NoError(t, json.Unmarshal(out.Value, &spec))
				assert.Equal(t, spec.ID.String(), string(out.Key))
				assert.Equal(t, domain.SpecID(tc.jobID, spec.Variant), spec.ID)
				assert.NotEmpty(t, spec.WeatherFiles, spec.Variant)
				assert.NotEmpty(t, spec.Management, spec.Variant)
				assert.True(t, domain.IsReset(spec.Management[0]), "variant %s starts with a reset", spec.Variant)
			}
			assert.Equal(t, tc.first, outs[0].Headers[domain.HeaderVariant])

			specs, err := store.List(context.Background(), archive.JobPrefix(tc.jobID)+"/specs/")
			require.NoError(t, err)
			assert.Len(t, specs, tc.variants)
			assert.Equal(t, float64(tc.variants), testutil.ToFloat64(metrics.SimulationsBuilt.WithLabelValues(tc.report)))
		})
	}
}

func TestJobTransformer_InvalidJob(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	builder := simspec.NewBuilder(weather.NewSynthesizer(dailyProvider{}, nil, logger), nil, 1, logger)
	tfm := pipeline.NewTransformer(builder, nil, newTestMetrics(), logger)

	_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(`{"job_id": "x"}`)})
	assert.ErrorIs(t, err, domain.ErrInvalidJob)

	_, err = tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(`{"job_id": "x", "station": 1, "report": "yield"}`)})
	assert.ErrorIs(t, err, simspec.ErrUnknownReport)
}
