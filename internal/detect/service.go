package detect

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"sprite-suite/internal/sheet"
)

// Service detects sprites. It owns a result cache and, once worker offload
// has been requested, a background worker. A Service is safe for
// concurrent use; concurrent requests with the same key are not merged.
type Service struct {
	defaults Config
	cache    *Cache

	workerMu  sync.Mutex
	worker    *Worker
	newWorker func() *Worker

	scans atomic.Int64
}

// Option configures a Service.
type Option func(*Service)

// WithDefaults sets the configuration returned by Defaults.
func WithDefaults(cfg Config) Option {
	return func(s *Service) { s.defaults = cfg }
}

// WithCacheCapacity bounds the result cache.
func WithCacheCapacity(n int) Option {
	return func(s *Service) { s.cache = NewCache(n) }
}

// NewService creates a detection service.
func NewService(opts ...Option) *Service {
	s := &Service{
		defaults:  DefaultConfig(),
		cache:     NewCache(DefaultCacheCapacity),
		newWorker: NewWorker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the service's base configuration. Callers overlay their
// own options on a copy of it.
func (s *Service) Defaults() Config {
	return s.defaults
}

// ScanCount returns how many detection pipelines have actually run, cache
// hits excluded.
func (s *Service) ScanCount() int64 {
	return s.scans.Load()
}

// ClearCache drops all cached results.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// CacheInfo describes the cached results.
func (s *Service) CacheInfo() CacheInfo {
	return s.cache.Info()
}

// Close stops the background worker, if one was started.
func (s *Service) Close() {
	s.workerMu.Lock()
	defer s.workerMu.Unlock()
	if s.worker != nil {
		s.worker.Close()
		s.worker = nil
	}
}

func (s *Service) getWorker() *Worker {
	s.workerMu.Lock()
	defer s.workerMu.Unlock()
	if s.worker == nil {
		s.worker = s.newWorker()
	}
	return s.worker
}

// DetectImage converts img and runs Detect.
func (s *Service) DetectImage(ctx context.Context, img image.Image, cfg Config) ([]*sheet.SimpleFrame, error) {
	if img == nil {
		return nil, &ValidationError{Field: "image", Reason: "no image"}
	}
	return s.Detect(ctx, FromImage(img), cfg)
}

// Detect finds the sprites in p. Frames are numbered from 0 in raster
// discovery order and named sprite_{id}. The caller's buffer is never
// modified. Finding nothing is not an error.
func (s *Service) Detect(ctx context.Context, p *Pixels, cfg Config) ([]*sheet.SimpleFrame, error) {
	if p == nil {
		return nil, &ValidationError{Field: "image", Reason: "no image"}
	}
	if !p.valid() {
		return nil, validationf("image", "pixel buffer holds %d bytes, want %d for %dx%d", len(p.Pix), p.Width*p.Height*4, p.Width, p.Height)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p.Width == 0 || p.Height == 0 {
		return []*sheet.SimpleFrame{}, nil
	}

	key := newCacheKey(p, cfg)
	if cfg.EnableCache && !cfg.ForceRecalculation {
		if frames, ok := s.cache.Get(key); ok {
			if cfg.EnableLogging {
				log.Debug().Int("frames", len(frames)).Msg("detection cache hit")
			}
			return frames, nil
		}
	}

	start := time.Now()
	s.scans.Add(1)
	res, err := s.run(ctx, p, cfg)
	if err != nil {
		return nil, err
	}

	frames := make([]*sheet.SimpleFrame, len(res.Components))
	for i, c := range res.Components {
		frames[i] = sheet.NewSimpleFrame(i, fmt.Sprintf("sprite_%d", i), c.Rect)
	}
	frames = FilterBySize(frames)

	if cfg.EnableCache {
		s.cache.Set(key, frames)
	}
	if cfg.EnableLogging {
		log.Info().
			Int("frames", len(frames)).
			Int("width", p.Width).
			Int("height", p.Height).
			Dur("elapsed", time.Since(start)).
			Msg("detection complete")
	}
	return frames, nil
}

// run executes the pipeline on a private copy of p, on the worker when
// configured. Any worker failure is retried in-process.
func (s *Service) run(ctx context.Context, p *Pixels, cfg Config) (ScanResult, error) {
	if cfg.UseWorker {
		res, err := s.getWorker().Detect(ctx, p, cfg)
		if err == nil {
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ScanResult{}, ctxErr
		}
		log.Warn().Err(err).Msg("detection worker failed, running in process")
	}
	return runSync(p.Clone(), cfg)
}

func runSync(p *Pixels, cfg Config) (res ScanResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ProcessingError{Stage: "scan", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return Run(p, cfg), nil
}
