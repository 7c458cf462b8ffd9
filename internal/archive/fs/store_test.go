package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/yieldprophet-runner/internal/archive/core"
)

func TestStore_PutGetList(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, core.DriverFilesystem, s.Driver())

	info, err := s.Put(ctx, "jobs/j1/paddock.met", strings.NewReader("weather"), core.PutOptions{
		ContentType: "text/plain",
		Metadata:    map[string]string{"variant": "ThisYear"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size)
	assert.Len(t, info.ETag, 64)
	assert.True(t, strings.HasPrefix(info.URL, "file://"))

	_, err = s.Put(ctx, "jobs/j1/paddock.met", strings.NewReader("weather2"), core.PutOptions{ContentType: "text/plain"})
	require.NoError(t, err)

	got, rc, err := s.Get(ctx, "jobs/j1/paddock.met")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "weather2", string(b))
	assert.Equal(t, int64(8), got.Size)
	assert.Equal(t, "text/plain", got.ContentType)

	_, err = s.Put(ctx, "jobs/j2/other.met", strings.NewReader("x"), core.PutOptions{})
	require.NoError(t, err)

	infos, err := s.List(ctx, "jobs/j1/")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "jobs/j1/paddock.met", infos[0].Key)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_InvalidKeys(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "/abs", "../escape", "a/../../b"} {
		_, err := s.Put(context.Background(), key, strings.NewReader("x"), core.PutOptions{})
		assert.ErrorIs(t, err, core.ErrInvalidKey, key)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
