package detect

import (
	"slices"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"sprite-suite/internal/sheet"
	"sprite-suite/pkg/colorutil"
)

const (
	// minFramesForFilter is the smallest sample the area filter works on.
	minFramesForFilter = 10
	// minMedianArea disables the filter on sheets of tiny sprites.
	minMedianArea = 64
	// areaCutoffRatio is the fraction of the median area below which a
	// sprite is dropped.
	areaCutoffRatio = 0.1
	// minKeptRatio is the share of sprites that must survive, otherwise
	// the filter is abandoned.
	minKeptRatio = 0.2
)

// ReduceNoise repaints every 4-connected foreground speck of at most
// threshold pixels with the background color, in place. It returns the
// number of pixels repainted.
//
// Repainted pixels take bg's alpha. When bg is partly transparent they
// therefore still classify as foreground in a later scan.
func ReduceNoise(p *Pixels, bg colorutil.RGBA, tolerance, threshold int) int {
	w, h := p.Width, p.Height
	if w == 0 || h == 0 {
		return 0
	}
	visited := make([]byte, w*h)
	var comp []int
	repainted := 0
	for start := 0; start < w*h; start++ {
		if visited[start] != 0 || IsBackground(p.Pix, start*4, bg, tolerance) {
			continue
		}
		visited[start] = 1
		comp = append(comp[:0], start)
		for head := 0; head < len(comp); head++ {
			idx := comp[head]
			cx, cy := idx%w, idx/w
			for _, d := range neighbors4 {
				nx, ny := cx+d[0], cy+d[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				n := ny*w + nx
				if visited[n] != 0 || IsBackground(p.Pix, n*4, bg, tolerance) {
					continue
				}
				visited[n] = 1
				comp = append(comp, n)
			}
		}
		if len(comp) <= threshold {
			for _, idx := range comp {
				bg.Put(p.Pix, idx*4)
			}
			repainted += len(comp)
		}
	}
	return repainted
}

// FilterBySize drops sprites whose area is below a tenth of the median
// area. Lists of fewer than 10 sprites, and lists whose median area is
// under 64 px², are returned unchanged. If fewer than 20% of the sprites
// would survive, the unfiltered list is returned instead.
func FilterBySize(frames []*sheet.SimpleFrame) []*sheet.SimpleFrame {
	if len(frames) < minFramesForFilter {
		return frames
	}
	areas := make([]float64, len(frames))
	for i, f := range frames {
		areas[i] = float64(f.Rect.Area())
	}
	median := medianArea(areas)
	if median < minMedianArea {
		return frames
	}

	cutoff := median * areaCutoffRatio
	kept := make([]*sheet.SimpleFrame, 0, len(frames))
	for _, f := range frames {
		if float64(f.Rect.Area()) >= cutoff {
			kept = append(kept, f)
		}
	}
	if float64(len(kept)) < float64(len(frames))*minKeptRatio {
		log.Debug().
			Int("frames", len(frames)).
			Int("kept", len(kept)).
			Float64("median", median).
			Msg("size filter would drop too many sprites, keeping all")
		return frames
	}
	return kept
}

func medianArea(areas []float64) float64 {
	sorted := slices.Clone(areas)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return stat.Mean(sorted[n/2-1:n/2+1], nil)
}
