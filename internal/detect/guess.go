package detect

import (
	"math"

	"github.com/pkg/errors"

	"sprite-suite/internal/sheet"
	"sprite-suite/pkg/geometry"
)

// ErrNoGrid is returned when no consistent cell size can be inferred.
var ErrNoGrid = errors.New("no consistent cell size")

// minFramesForGuess is the fewest detected sprites a grid guess needs.
const minFramesForGuess = 3

// GuessCellSize infers a grid cell size from detected sprites: the most
// common width and height after rounding to multiples of 4. Ties go to the
// larger size.
func GuessCellSize(frames []*sheet.SimpleFrame) (geometry.Size, error) {
	if len(frames) < minFramesForGuess {
		return geometry.Size{}, errors.Wrapf(ErrNoGrid, "need at least %d sprites, got %d", minFramesForGuess, len(frames))
	}
	ws := make([]int, len(frames))
	hs := make([]int, len(frames))
	for i, f := range frames {
		ws[i], hs[i] = f.Rect.W, f.Rect.H
	}
	w, h := roundedMode(ws), roundedMode(hs)
	if w == 0 || h == 0 {
		return geometry.Size{}, ErrNoGrid
	}
	return geometry.Size{W: w, H: h}, nil
}

func roundedMode(vals []int) int {
	counts := map[int]int{}
	for _, v := range vals {
		r := int(math.Round(float64(v)/4)) * 4
		if r > 0 {
			counts[r]++
		}
	}
	best, bestCount := 0, 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v > best) {
			best, bestCount = v, c
		}
	}
	return best
}
