package server

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"sprite-suite/internal/detect"
	"sprite-suite/internal/sheet"
	"sprite-suite/pkg/geometry"
)

// detectResponse is the payload of POST /api/detect.
type detectResponse struct {
	Frames   []*sheet.SimpleFrame `json:"frames"`
	Width    int                  `json:"width"`
	Height   int                  `json:"height"`
	Format   string               `json:"format"`
	Stats    *detect.Stats        `json:"stats,omitempty"`
	CellSize *geometry.Size       `json:"cellSize,omitempty"`
}

// detectConfig applies query options over base. Unknown keys are ignored.
func detectConfig(q url.Values, base detect.Config) (detect.Config, error) {
	cfg := base
	ints := map[string]*int{
		"tolerance":      &cfg.Tolerance,
		"minSpriteSize":  &cfg.MinSpriteSize,
		"noiseThreshold": &cfg.NoiseThreshold,
	}
	for key, dst := range ints {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return cfg, errors.Errorf("%s: not an integer: %q", key, v)
			}
			*dst = n
		}
	}
	bools := map[string]*bool{
		"use8WayConnectivity":  &cfg.Use8WayConnectivity,
		"enableCache":          &cfg.EnableCache,
		"forceRecalculation":   &cfg.ForceRecalculation,
		"enableNoiseReduction": &cfg.NoiseReduction,
		"useWebWorker":         &cfg.UseWorker,
		"enableLogging":        &cfg.EnableLogging,
	}
	for key, dst := range bools {
		if v := q.Get(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return cfg, errors.Errorf("%s: not a boolean: %q", key, v)
			}
			*dst = b
		}
	}
	if v := q.Get("algorithm"); v != "" {
		cfg.Algorithm = detect.Algorithm(v)
	}
	return cfg, nil
}

// handleDetect runs detection on an uploaded sheet image. Pass stats=true
// for detection statistics and a guessed grid cell size.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	cfg, err := detectConfig(r.URL.Query(), s.defaults)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		fail(w, http.StatusBadRequest, "could not read request body")
		return
	}
	// TIFF sniffs as application/octet-stream, so only text is refused here
	if ct := http.DetectContentType(data); strings.HasPrefix(ct, "text/") {
		fail(w, http.StatusUnsupportedMediaType, "body is not an image ("+ct+")")
		return
	}
	pix, format, err := detect.DecodeLimited(data, s.maxPixels)
	switch {
	case errors.Is(err, detect.ErrTooManyPixels):
		reqLog(r).Warn().Err(err).Msg("image refused")
		fail(w, http.StatusRequestEntityTooLarge, "image too large: "+err.Error())
		return
	case err != nil:
		fail(w, http.StatusBadRequest, "could not decode image")
		return
	}

	frames, err := s.detector.Detect(r.Context(), pix, cfg)
	switch {
	case detect.IsValidation(err):
		fail(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		reqLog(r).Error().Err(err).Msg("detection failed")
		fail(w, http.StatusInternalServerError, "detection failed")
		return
	}

	resp := detectResponse{Frames: frames, Width: pix.Width, Height: pix.Height, Format: format}
	if wantStats, _ := strconv.ParseBool(r.URL.Query().Get("stats")); wantStats {
		st := detect.ComputeStats(frames, pix.Width, pix.Height)
		resp.Stats = &st
		if size, err := detect.GuessCellSize(frames); err == nil {
			resp.CellSize = &size
		}
	}
	reqLog(r).Debug().Int("frames", len(frames)).Str("format", format).Msg("detected")
	ok(w, resp)
}
