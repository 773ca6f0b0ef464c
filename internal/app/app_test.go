package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprite-suite/internal/store"
)

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":8788", c.Listen)
	assert.Equal(t, BackendMemory, c.Store.Backend)
	assert.Equal(t, 10, c.Detect.Tolerance)
	assert.Equal(t, path, c.Path())
	assert.NoError(t, c.Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"listen": ":9000",
		"store": {"backend": "dir", "dir": "/tmp/sprites"},
		"detect": {"tolerance": 30}
	}`), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Listen)
	assert.Equal(t, "/tmp/sprites", c.Store.Dir)
	assert.Equal(t, 30, c.Detect.Tolerance)
	assert.Equal(t, 8, c.Detect.MinSpriteSize, "unset detect fields keep their defaults")
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfigBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"listen":`), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	c, err := LoadConfig(path)
	require.NoError(t, err)
	c.Listen = ":7000"
	require.NoError(t, c.Save())

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", again.Listen)
}

func TestConfigValidate(t *testing.T) {
	c := DefaultConfig()
	c.Store.Backend = BackendDir
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.Store.Backend = BackendS3
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.Store.Backend = "redis"
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.Detect.Tolerance = 300
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.MaxPixels = 0
	assert.Error(t, c.Validate())
}

func TestOpenStore(t *testing.T) {
	c := DefaultConfig()
	kv, err := c.OpenStore()
	require.NoError(t, err)
	assert.IsType(t, &store.Compressed{}, kv)

	c.Store.Compress = false
	kv, err = c.OpenStore()
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, kv)

	c.Store.Backend = BackendDir
	c.Store.Dir = t.TempDir()
	kv, err = c.OpenStore()
	require.NoError(t, err)
	assert.IsType(t, &store.Dir{}, kv)
}

func TestInitLogger(t *testing.T) {
	saved := log.Logger
	defer func() { log.Logger = saved }()

	var console bytes.Buffer
	dir := t.TempDir()
	cleanup, err := InitLogger(dir, "warn", &console)
	require.NoError(t, err)

	log.Debug().Msg("debug only in file")
	log.Warn().Msg("warn everywhere")
	cleanup()

	assert.Contains(t, console.String(), "warn everywhere")
	assert.NotContains(t, console.String(), "debug only in file")

	data, err := os.ReadFile(filepath.Join(dir, logFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"debug only in file"`)
	assert.Contains(t, string(data), `"level":"warn"`)
}

func TestInitLoggerBadLevel(t *testing.T) {
	_, err := InitLogger("", "loud", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestHotReloaderDetectsNewerBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o755))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	h, err := newHotReloader(path, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, h.Changed())

	changed := make(chan string, 1)
	h.OnNewBinary(func(p string) { changed <- p })
	h.Start(context.Background())
	defer h.Stop()

	now := time.Now()
	require.NoError(t, os.Chtimes(path, now, now))

	select {
	case got := <-changed:
		assert.Equal(t, path, got)
	case <-time.After(2 * time.Second):
		t.Fatal("change not detected")
	}

	h.ResetBaseline()
	assert.False(t, h.Changed())
}

func TestHotReloaderStopsWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o755))
	h, err := newHotReloader(path, time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h.Start(ctx)
	cancel()
	h.Stop()
	h.Stop()
}
