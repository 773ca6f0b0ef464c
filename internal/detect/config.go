// Package detect finds sprites on a sprite sheet by flood-filling every
// connected region of non-background pixels.
package detect

// Algorithm names a detection strategy.
type Algorithm string

const (
	AlgorithmFloodFill Algorithm = "floodFill"
	// AlgorithmContour and AlgorithmAI are reserved names that currently
	// run the flood fill.
	AlgorithmContour Algorithm = "contour"
	AlgorithmAI      Algorithm = "ai"
)

// Config holds detection parameters. Field names match the options
// accepted over HTTP and stored in project settings.
type Config struct {
	// Tolerance is the largest RGB Manhattan distance to the background
	// color that still counts as background (0-255).
	Tolerance int `json:"tolerance"`
	// MinSpriteSize is the smallest pixel count kept as a sprite.
	MinSpriteSize int `json:"minSpriteSize"`
	// Use8WayConnectivity joins diagonally touching pixels.
	Use8WayConnectivity bool      `json:"use8WayConnectivity"`
	Algorithm           Algorithm `json:"algorithm"`

	EnableCache        bool `json:"enableCache"`
	ForceRecalculation bool `json:"forceRecalculation"`

	// NoiseReduction repaints tiny 4-connected specks as background before
	// the scan. NoiseThreshold is the largest speck size removed.
	NoiseReduction bool `json:"enableNoiseReduction"`
	NoiseThreshold int  `json:"noiseThreshold"`

	// UseWorker runs the scan on a background worker goroutine.
	UseWorker     bool `json:"useWebWorker"`
	EnableLogging bool `json:"enableLogging"`
}

// DefaultConfig returns the default detection parameters.
func DefaultConfig() Config {
	return Config{
		Tolerance:      10,
		MinSpriteSize:  8,
		Algorithm:      AlgorithmFloodFill,
		EnableCache:    true,
		NoiseReduction: true,
		NoiseThreshold: 2,
		UseWorker:      true,
	}
}

// WithTolerance returns a copy with the given tolerance.
func (c Config) WithTolerance(t int) Config {
	c.Tolerance = t
	return c
}

// WithMinSpriteSize returns a copy with the given minimum sprite size.
func (c Config) WithMinSpriteSize(n int) Config {
	c.MinSpriteSize = n
	return c
}

// With8Way returns a copy with diagonal connectivity switched on or off.
func (c Config) With8Way(on bool) Config {
	c.Use8WayConnectivity = on
	return c
}

// WithAlgorithm returns a copy using the named algorithm.
func (c Config) WithAlgorithm(a Algorithm) Config {
	c.Algorithm = a
	return c
}

// WithWorker returns a copy with worker offload switched on or off.
func (c Config) WithWorker(on bool) Config {
	c.UseWorker = on
	return c
}

// WithCache returns a copy with caching switched on or off.
func (c Config) WithCache(on bool) Config {
	c.EnableCache = on
	return c
}

// WithForce returns a copy that bypasses the cache lookup.
func (c Config) WithForce(on bool) Config {
	c.ForceRecalculation = on
	return c
}

// WithNoiseReduction returns a copy with the speck pre-pass configured.
func (c Config) WithNoiseReduction(on bool, threshold int) Config {
	c.NoiseReduction = on
	c.NoiseThreshold = threshold
	return c
}

// Validate rejects out-of-range values.
func (c Config) Validate() error {
	if c.Tolerance < 0 || c.Tolerance > 255 {
		return validationf("tolerance", "must be between 0 and 255, got %d", c.Tolerance)
	}
	if c.MinSpriteSize < 1 {
		return validationf("minSpriteSize", "must be at least 1, got %d", c.MinSpriteSize)
	}
	if c.NoiseThreshold < 0 {
		return validationf("noiseThreshold", "must not be negative, got %d", c.NoiseThreshold)
	}
	if _, ok := algorithms[c.Algorithm]; !ok {
		return validationf("algorithm", "unknown algorithm %q", string(c.Algorithm))
	}
	return nil
}
