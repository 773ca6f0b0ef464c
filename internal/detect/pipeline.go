package detect

import (
	"github.com/rs/zerolog/log"
)

// algorithmFunc runs one detection strategy on a private pixel buffer,
// which it may modify.
type algorithmFunc func(p *Pixels, cfg Config) ScanResult

var algorithms = map[Algorithm]algorithmFunc{
	AlgorithmFloodFill: runFloodFill,
	AlgorithmContour:   fallbackTo(AlgorithmContour, runFloodFill),
	AlgorithmAI:        fallbackTo(AlgorithmAI, runFloodFill),
}

// runFloodFill is the one detection pipeline used both in-process and on
// the worker: background detection, optional speck removal, then the
// connected-component scan.
func runFloodFill(p *Pixels, cfg Config) ScanResult {
	bg := DetectBackground(p)
	if cfg.NoiseReduction {
		n := ReduceNoise(p, bg, cfg.Tolerance, cfg.NoiseThreshold)
		if cfg.EnableLogging {
			log.Debug().Int("pixels", n).Msg("noise reduction repainted specks")
		}
	}
	res := Scan(p, bg, cfg.Tolerance, cfg.MinSpriteSize, cfg.Use8WayConnectivity)
	if cfg.EnableLogging {
		log.Debug().
			Str("background", bg.Hex()).
			Int("components", len(res.Components)).
			Int("processed", res.ProcessedPixels).
			Int("total", res.TotalPixels).
			Msg("flood fill complete")
	}
	return res
}

func fallbackTo(name Algorithm, fn algorithmFunc) algorithmFunc {
	return func(p *Pixels, cfg Config) ScanResult {
		if cfg.EnableLogging {
			log.Debug().Str("algorithm", string(name)).Msg("algorithm not implemented, using flood fill")
		}
		return fn(p, cfg)
	}
}

// Run executes the configured algorithm synchronously on p, modifying it.
// cfg must already be valid.
func Run(p *Pixels, cfg Config) ScanResult {
	fn, ok := algorithms[cfg.Algorithm]
	if !ok {
		fn = runFloodFill
	}
	return fn(p, cfg)
}
