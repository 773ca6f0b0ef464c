package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseKV runs the shared KV contract against a backend.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "project:missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Put(ctx, "project:a", []byte(`{"frames":[]}`)))
	got, err := kv.Get(ctx, "project:a")
	require.NoError(t, err)
	assert.Equal(t, `{"frames":[]}`, string(got))

	require.NoError(t, kv.Put(ctx, "project:a", []byte("v2")))
	got, err = kv.Get(ctx, "project:a")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	require.NoError(t, kv.Delete(ctx, "project:a"))
	_, err = kv.Get(ctx, "project:a")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, kv.Delete(ctx, "project:a"), "deleting a missing key is not an error")
}

func TestMemory(t *testing.T) {
	exerciseKV(t, NewMemory())
}

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory()
	v := []byte("abc")
	require.NoError(t, m.Put(context.Background(), "k", v))
	v[0] = 'x'
	got, err := m.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, 1, m.Len())
}

func TestDir(t *testing.T) {
	d, err := NewDir(t.TempDir())
	require.NoError(t, err)
	exerciseKV(t, d)
}

func TestDirCancelledContext(t *testing.T) {
	d, err := NewDir(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Put(ctx, "k", []byte("v")), context.Canceled)
}

func TestCompressed(t *testing.T) {
	inner := NewMemory()
	c := NewCompressed(inner)
	exerciseKV(t, c)

	ctx := context.Background()
	payload := []byte(`{"imageSrc":"data:image/png;base64,` + strings.Repeat("AAAA", 256) + `"}`)
	require.NoError(t, c.Put(ctx, "project:big", payload))

	raw, err := inner.Get(ctx, "project:big")
	require.NoError(t, err)
	assert.NotEqual(t, payload, raw)
	assert.Less(t, len(raw), len(payload))

	got, err := c.Get(ctx, "project:big")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
