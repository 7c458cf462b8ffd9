package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/yieldprophet-runner/internal/domain"
	"github.com/couchcryptid/yieldprophet-runner/internal/observability"
	"github.com/couchcryptid/yieldprophet-runner/internal/pipeline"
	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	calls atomic.Int64
	// errs is consumed one per call; the last entry repeats.
	errs []error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error) {
	n := int(m.calls.Add(1) - 1)
	if len(m.errs) > 0 {
		err := m.errs[min(n, len(m.errs)-1)]
		if err != nil {
			return nil, err
		}
	}
	return []domain.OutputEvent{
		{Key: []byte(string(raw.Key) + "-ThisYear"), Value: raw.Value},
		{Key: []byte(string(raw.Key) + "-Base"), Value: raw.Value},
	}, nil
}

type mockLoader struct {
	loaded []domain.OutputEvent
	calls  int
	errs   []error
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.calls++
	if m.calls <= len(m.errs) && m.errs[m.calls-1] != nil {
		return m.errs[m.calls-1]
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func makeRawJob(id string, committed *atomic.Int64) domain.RawEvent {
	return domain.RawEvent{
		Key:   []byte(id),
		Value: []byte(fmt.Sprintf(`{"job_id": %q}`, id)),
		Topic: "yieldprophet-jobs",
		Commit: func(context.Context) error {
			if committed != nil {
				committed.Add(1)
			}
			return nil
		},
	}
}

func instantRetries(n uint64) func() backoff.BackOff {
	return func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, n)
	}
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var committed atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawEvent{{makeRawJob("job-1", &committed)}}}
	tfm := &mockTransformer{}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, ldr, slog.Default(), metrics, 10)
	runFor(t, p, 500*time.Millisecond)

	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, "job-1-ThisYear", string(ldr.loaded[0].Key))
	assert.Equal(t, int64(1), committed.Load())
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MessagesConsumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MessagesProduced))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches, will block
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_FailedJobPublishesErrorRecord(t *testing.T) {
	var committed atomic.Int64
	raw := makeRawJob("job-bad", &committed)
	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	tfm := &mockTransformer{errs: []error{errors.New("report \"yield\": unknown report")}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, ldr, slog.Default(), metrics, 10)
	runFor(t, p, 500*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	out := ldr.loaded[0]
	assert.Equal(t, "job-bad", string(out.Key))
	assert.Equal(t, domain.StatusError, out.Headers[domain.HeaderStatus])

	var payload domain.JobError
	require.NoError(t, json.Unmarshal(out.Value, &payload))
	assert.Contains(t, payload.Error, "unknown report")

	assert.Equal(t, int64(1), tfm.calls.Load(), "permanent errors are not retried")
	assert.Equal(t, int64(1), committed.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransformErrors))
}

func TestPipeline_Run_ErrorRecordUsesJobIDHeader(t *testing.T) {
	raw := makeRawJob("key-1", nil)
	raw.Headers = map[string]string{domain.HeaderJobID: "job-from-header"}
	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{errs: []error{errors.New("boom")}}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 500*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "job-from-header", string(ldr.loaded[0].Key))
}

func TestPipeline_Run_RetriesUnavailableProvider(t *testing.T) {
	unavailable := fmt.Errorf("fetch station 77008: %w", weather.ErrDataSourceUnavailable)
	ext := &mockExtractor{batches: [][]domain.RawEvent{{makeRawJob("job-1", nil)}}}
	tfm := &mockTransformer{errs: []error{unavailable, unavailable, nil}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, ldr, slog.Default(), metrics, 10)
	p.SetRetryBackOff(instantRetries(5))
	runFor(t, p, 500*time.Millisecond)

	assert.Equal(t, int64(3), tfm.calls.Load())
	assert.Len(t, ldr.loaded, 2)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.TransformErrors))
}

func TestPipeline_Run_GivesUpOnUnavailableProvider(t *testing.T) {
	unavailable := fmt.Errorf("fetch: %w", weather.ErrDataSourceUnavailable)
	ext := &mockExtractor{batches: [][]domain.RawEvent{{makeRawJob("job-1", nil)}}}
	tfm := &mockTransformer{errs: []error{unavailable}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), 10)
	p.SetRetryBackOff(instantRetries(2))
	runFor(t, p, 500*time.Millisecond)

	assert.Equal(t, int64(3), tfm.calls.Load())
	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, domain.StatusError, ldr.loaded[0].Headers[domain.HeaderStatus])
}

func TestPipeline_Run_RetriesLoadBeforeCommit(t *testing.T) {
	var committed atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawEvent{{makeRawJob("job-1", &committed), makeRawJob("job-2", &committed)}}}
	ldr := &mockLoader{errs: []error{errors.New("broker down")}}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 2*time.Second)

	assert.Equal(t, 2, ldr.calls)
	assert.Len(t, ldr.loaded, 4)
	assert.Equal(t, int64(2), committed.Load())
}
