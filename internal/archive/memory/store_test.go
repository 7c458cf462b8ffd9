package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/yieldprophet-runner/internal/archive/core"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	assert.Equal(t, core.DriverMemory, s.Driver())

	_, err := s.Put(ctx, "", strings.NewReader("x"), core.PutOptions{})
	assert.ErrorIs(t, err, core.ErrInvalidKey)

	md := map[string]string{"variant": "Base"}
	_, err = s.Put(ctx, "jobs/a/2.txt", strings.NewReader("two"), core.PutOptions{Metadata: md})
	require.NoError(t, err)
	_, err = s.Put(ctx, "jobs/a/1.txt", strings.NewReader("one"), core.PutOptions{})
	require.NoError(t, err)
	md["variant"] = "changed"

	info, rc, err := s.Get(ctx, "jobs/a/2.txt")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "two", string(b))
	assert.Equal(t, "Base", info.Metadata["variant"])

	infos, err := s.List(ctx, "jobs/a/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "jobs/a/1.txt", infos[0].Key)

	_, _, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
