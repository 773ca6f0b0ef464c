package detect

import (
	"sprite-suite/pkg/colorutil"
)

// groupTolerance is the per-channel difference within which two sampled
// border colors fall in the same group.
const groupTolerance = 5

// IsBackground classifies the pixel at byte index i of pix.
//
// A fully transparent pixel is always background. When bg is itself
// partly transparent, any pixel with some alpha is foreground. Otherwise
// the pixel is background when its RGB Manhattan distance to bg is within
// tolerance.
func IsBackground(pix []byte, i int, bg colorutil.RGBA, tolerance int) bool {
	a := pix[i+3]
	if a == 0 {
		return true
	}
	if bg.A < 255 {
		return false
	}
	return colorutil.ManhattanRGB(colorutil.At(pix, i), bg) <= tolerance
}

type colorGroup struct {
	color colorutil.RGBA
	count int
}

// DetectBackground samples the image border and returns the most common
// color. The top and bottom rows are sampled every max(1, w/50) pixels and
// the left and right columns, corners excluded, every max(1, h/50) pixels.
// Samples within 5 per channel of an earlier group's first color join
// that group. On equal counts the later group wins. An empty image yields
// transparent black.
func DetectBackground(p *Pixels) colorutil.RGBA {
	w, h := p.Width, p.Height
	if w == 0 || h == 0 {
		return colorutil.Transparent
	}
	var groups []colorGroup
	add := func(x, y int) {
		c := p.At(x, y)
		for i := range groups {
			if colorutil.Similar(groups[i].color, c, groupTolerance) {
				groups[i].count++
				return
			}
		}
		groups = append(groups, colorGroup{color: c, count: 1})
	}

	xStep := max(1, w/50)
	for x := 0; x < w; x += xStep {
		add(x, 0)
		add(x, h-1)
	}
	yStep := max(1, h/50)
	for y := 1; y < h-1; y += yStep {
		add(0, y)
		add(w-1, y)
	}

	best := groups[0]
	for _, g := range groups[1:] {
		if g.count >= best.count {
			best = g
		}
	}
	return best.color
}
