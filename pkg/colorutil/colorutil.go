// Package colorutil provides shared color utilities for the sprite suite.
package colorutil

import (
	"fmt"
	"image/color"
)

// Common colors used by exports and overlays.
var (
	Black       = RGBA{R: 0, G: 0, B: 0, A: 255}
	White       = RGBA{R: 255, G: 255, B: 255, A: 255}
	Magenta     = RGBA{R: 255, G: 0, B: 255, A: 255}
	Transparent = RGBA{}
)

// RGBA is a non-premultiplied 8-bit color as stored in a raw pixel buffer.
type RGBA struct {
	R, G, B, A uint8
}

// At reads the color at byte index i of an RGBA buffer.
func At(pix []byte, i int) RGBA {
	return RGBA{R: pix[i], G: pix[i+1], B: pix[i+2], A: pix[i+3]}
}

// Put writes c at byte index i of an RGBA buffer.
func (c RGBA) Put(pix []byte, i int) {
	pix[i] = c.R
	pix[i+1] = c.G
	pix[i+2] = c.B
	pix[i+3] = c.A
}

// Slice returns the color as [r, g, b, a].
func (c RGBA) Slice() []int {
	return []int{int(c.R), int(c.G), int(c.B), int(c.A)}
}

// NRGBA converts to the standard library color type.
func (c RGBA) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Hex formats the color as #rrggbb.
func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex parses #rgb or #rrggbb into an opaque color.
func ParseHex(s string) (RGBA, error) {
	c := RGBA{A: 255}
	var err error
	switch len(s) {
	case 7:
		_, err = fmt.Sscanf(s, "#%2x%2x%2x", &c.R, &c.G, &c.B)
	case 4:
		_, err = fmt.Sscanf(s, "#%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R *= 17
		c.G *= 17
		c.B *= 17
	default:
		err = fmt.Errorf("invalid color %q", s)
	}
	return c, err
}

// ManhattanRGB returns |dr|+|dg|+|db|, ignoring alpha.
func ManhattanRGB(a, b RGBA) int {
	return absDiff(a.R, b.R) + absDiff(a.G, b.G) + absDiff(a.B, b.B)
}

// Similar reports whether every channel, alpha included, differs by at most tolerance.
func Similar(a, b RGBA, tolerance int) bool {
	return absDiff(a.R, b.R) <= tolerance &&
		absDiff(a.G, b.G) <= tolerance &&
		absDiff(a.B, b.B) <= tolerance &&
		absDiff(a.A, b.A) <= tolerance
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
