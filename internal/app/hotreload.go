package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// HotReloader watches the server binary and reports when a rebuilt one
// replaces it, so a development server can restart itself.
type HotReloader struct {
	execPath string
	interval time.Duration

	mu       sync.Mutex
	baseline time.Time
	onChange func(execPath string)

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHotReloader watches the current executable.
func NewHotReloader(interval time.Duration) (*HotReloader, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, errors.Wrap(err, "locate executable")
	}
	// go build replaces the file; follow symlinks to the real one
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	return newHotReloader(execPath, interval)
}

func newHotReloader(path string, interval time.Duration) (*HotReloader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat executable")
	}
	return &HotReloader{
		execPath: path,
		interval: interval,
		baseline: info.ModTime(),
		stopCh:   make(chan struct{}),
	}, nil
}

// OnNewBinary sets the callback run, from the watcher goroutine, when the
// binary changes.
func (h *HotReloader) OnNewBinary(fn func(execPath string)) {
	h.mu.Lock()
	h.onChange = fn
	h.mu.Unlock()
}

// Start watches until ctx is done, Stop is called, or a change is seen.
func (h *HotReloader) Start(ctx context.Context) {
	go h.watch(ctx)
}

// Stop ends the watcher.
func (h *HotReloader) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

func (h *HotReloader) watch(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case <-ticker.C:
			if !h.Changed() {
				continue
			}
			log.Info().Str("path", h.execPath).Msg("new server binary detected")
			h.mu.Lock()
			fn := h.onChange
			h.mu.Unlock()
			if fn != nil {
				fn(h.execPath)
			}
			return
		}
	}
}

// Changed reports whether the binary is newer than the baseline.
func (h *HotReloader) Changed() bool {
	info, err := os.Stat(h.execPath)
	if err != nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return info.ModTime().After(h.baseline)
}

// ResetBaseline accepts the current binary as the baseline.
func (h *HotReloader) ResetBaseline() {
	if info, err := os.Stat(h.execPath); err == nil {
		h.mu.Lock()
		h.baseline = info.ModTime()
		h.mu.Unlock()
	}
}

// ExecPath returns the watched file.
func (h *HotReloader) ExecPath() string {
	return h.execPath
}

// RestartProcess replaces the current process with execPath, keeping the
// arguments and environment. It does not return on success.
func RestartProcess(execPath string) error {
	return syscall.Exec(execPath, os.Args, os.Environ())
}
