package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/yieldprophet-runner/internal/adapter/httpadapter"
	"github.com/couchcryptid/yieldprophet-runner/internal/archive/core"
	"github.com/couchcryptid/yieldprophet-runner/internal/archive/memory"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type failingLister struct{}

func (failingLister) List(context.Context, string) ([]core.Info, error) {
	return nil, errors.New("bucket gone")
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, nil, slog.Default())
}

func get(srv http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("not ready yet")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestArtifactsEndpoint(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, err := store.Put(ctx, "jobs/job-1/specs/Base.json", strings.NewReader("{}"), core.PutOptions{})
	require.NoError(t, err)
	_, err = store.Put(ctx, "jobs/job-10/specs/Base.json", strings.NewReader("{}"), core.PutOptions{})
	require.NoError(t, err)

	srv := httpadapter.NewServer(":0", &mockReadiness{}, store, slog.Default())

	t.Run("lists a job's objects", func(t *testing.T) {
		rec := get(srv, "/jobs/job-1/artifacts")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			JobID     string      `json:"job_id"`
			Artifacts []core.Info `json:"artifacts"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "job-1", body.JobID)
		require.Len(t, body.Artifacts, 1)
		assert.Equal(t, "jobs/job-1/specs/Base.json", body.Artifacts[0].Key)
	})

	t.Run("unknown job", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(srv, "/jobs/nope/artifacts").Code)
	})

	t.Run("store failure", func(t *testing.T) {
		srv := httpadapter.NewServer(":0", &mockReadiness{}, failingLister{}, slog.Default())
		assert.Equal(t, http.StatusInternalServerError, get(srv, "/jobs/job-1/artifacts").Code)
	})
}

func TestArtifactsEndpointDisabledWithoutStore(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(newTestServer(nil), "/jobs/job-1/artifacts").Code)
}
