package detect

import (
	"math"

	"github.com/pkg/errors"
)

// Smoothing selects how strongly RemoveBackground softens sprite edges.
type Smoothing string

const (
	SmoothNone   Smoothing = "none"
	SmoothLow    Smoothing = "low"
	SmoothMedium Smoothing = "medium"
	SmoothHigh   Smoothing = "high"
)

// edgeAlphaThreshold separates see-through pixels from solid ones when
// smoothing.
const edgeAlphaThreshold = 10

type smoothingFactors struct {
	colorBlend   float64
	alphaFeather float64
}

var smoothingLevels = map[Smoothing]smoothingFactors{
	SmoothLow:    {colorBlend: 0.3, alphaFeather: 0.25},
	SmoothMedium: {colorBlend: 0.5, alphaFeather: 0.5},
	SmoothHigh:   {colorBlend: 0.7, alphaFeather: 0.75},
}

// ParseSmoothing accepts none, low, medium or high; the empty string means
// none.
func ParseSmoothing(s string) (Smoothing, error) {
	switch sm := Smoothing(s); sm {
	case "", SmoothNone:
		return SmoothNone, nil
	case SmoothLow, SmoothMedium, SmoothHigh:
		return sm, nil
	}
	return "", errors.Errorf("unknown smoothing %q", s)
}

// RemoveBackground makes every background pixel of p fully transparent,
// in place, using the border-detected background color.
//
// With smoothing, each solid pixel next to a see-through one is blended
// toward the mean color of its solid neighbours and its alpha is scaled by
// (solid/total neighbours)^feather. All edge pixels are computed from the
// unsmoothed image.
func RemoveBackground(p *Pixels, tolerance int, smoothing Smoothing) error {
	if p == nil {
		return &ValidationError{Field: "image", Reason: "no image"}
	}
	if !p.valid() {
		return validationf("image", "pixel buffer does not match %dx%d", p.Width, p.Height)
	}
	if tolerance < 0 || tolerance > 255 {
		return validationf("tolerance", "must be between 0 and 255, got %d", tolerance)
	}
	bg := DetectBackground(p)
	for i := 0; i < len(p.Pix); i += 4 {
		if IsBackground(p.Pix, i, bg, tolerance) {
			p.Pix[i+3] = 0
		}
	}
	if smoothing == SmoothNone || smoothing == "" {
		return nil
	}
	f, ok := smoothingLevels[smoothing]
	if !ok {
		return errors.Errorf("unknown smoothing %q", smoothing)
	}
	smoothEdges(p, f)
	return nil
}

func smoothEdges(p *Pixels, f smoothingFactors) {
	w, h := p.Width, p.Height
	src := p.Pix
	out := append([]byte(nil), src...)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			if src[i+3] <= edgeAlphaThreshold {
				continue
			}
			seeThrough, solid := 0, 0
			var sumR, sumG, sumB float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					ni := (ny*w + nx) * 4
					if src[ni+3] < edgeAlphaThreshold {
						seeThrough++
						continue
					}
					solid++
					sumR += float64(src[ni])
					sumG += float64(src[ni+1])
					sumB += float64(src[ni+2])
				}
			}
			if seeThrough == 0 {
				continue
			}
			if solid > 0 {
				n := float64(solid)
				out[i] = blend(src[i], sumR/n, f.colorBlend)
				out[i+1] = blend(src[i+1], sumG/n, f.colorBlend)
				out[i+2] = blend(src[i+2], sumB/n, f.colorBlend)
			}
			ratio := float64(solid) / float64(solid+seeThrough)
			out[i+3] = clampByte(float64(src[i+3]) * math.Pow(ratio, f.alphaFeather))
		}
	}
	copy(p.Pix, out)
}

func blend(c uint8, target, factor float64) uint8 {
	return clampByte(float64(c)*(1-factor) + target*factor)
}

func clampByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.RoundToEven(v))))
}
