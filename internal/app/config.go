// Package app wires the server process together: configuration file and
// defaults, logger setup and the development hot-reload watcher.
package app

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"sprite-suite/internal/detect"
	"sprite-suite/internal/store"
)

const configFile = "config.json"

// Store backends.
const (
	BackendMemory = "memory"
	BackendDir    = "dir"
	BackendS3     = "s3"
)

// StoreConfig selects and configures the project store.
type StoreConfig struct {
	Backend  string         `json:"backend"`
	Dir      string         `json:"dir,omitempty"`
	S3       store.S3Config `json:"s3"`
	Compress bool           `json:"compress"`
}

// Config is the server configuration.
type Config struct {
	Listen   string `json:"listen"`
	LogDir   string `json:"logDir"`
	LogLevel string `json:"logLevel"`

	Store StoreConfig `json:"store"`

	// Detect holds the defaults for /api/detect; query options override them.
	Detect        detect.Config `json:"detect"`
	CacheCapacity int           `json:"cacheCapacity"`
	// MaxUploadBytes bounds request bodies.
	MaxUploadBytes int64 `json:"maxUploadBytes"`
	// MaxPixels bounds the decoded width*height of uploaded sheets.
	MaxPixels int64 `json:"maxPixels"`

	HotReload bool `json:"hotReload"`

	path string
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         ":8788",
		LogLevel:       "info",
		Store:          StoreConfig{Backend: BackendMemory, Compress: true},
		Detect:         detect.DefaultConfig(),
		CacheCapacity:  detect.DefaultCacheCapacity,
		MaxUploadBytes: 32 << 20,
		MaxPixels:      detect.DefaultMaxPixels,
	}
}

// DefaultConfigPath is ~/.config/sprite-suite/config.json (or the
// platform equivalent).
func DefaultConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "sprite-suite", configFile)
}

// LoadConfig reads the configuration file at path over the defaults. A
// missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	c.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return c, nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string { return c.path }

// Save writes the configuration back to its file.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = DefaultConfigPath()
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}

// Validate checks the store selection and the detection defaults.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendDir:
		if c.Store.Dir == "" {
			return errors.New("store: dir backend needs a directory")
		}
	case BackendS3:
		if c.Store.S3.Bucket == "" {
			return errors.New("store: s3 backend needs a bucket")
		}
	default:
		return errors.Errorf("store: unknown backend %q", c.Store.Backend)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("maxUploadBytes must be positive")
	}
	if c.MaxPixels <= 0 {
		return errors.New("maxPixels must be positive")
	}
	return errors.Wrap(c.Detect.Validate(), "detect defaults")
}

// OpenStore builds the configured KV backend.
func (c *Config) OpenStore() (store.KV, error) {
	var kv store.KV
	switch c.Store.Backend {
	case BackendMemory:
		kv = store.NewMemory()
	case BackendDir:
		d, err := store.NewDir(c.Store.Dir)
		if err != nil {
			return nil, err
		}
		kv = d
	case BackendS3:
		s, err := store.NewS3(c.Store.S3)
		if err != nil {
			return nil, err
		}
		kv = s
	default:
		return nil, errors.Errorf("store: unknown backend %q", c.Store.Backend)
	}
	if c.Store.Compress {
		kv = store.NewCompressed(kv)
	}
	return kv, nil
}
