// Package cvcheck cross-checks the flood-fill scanner against OpenCV's
// connected-component labelling. It is a diagnostic used by cmd/cvcompare;
// the detection pipeline never calls it.
package cvcheck

import (
	"cmp"
	"slices"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"sprite-suite/internal/detect"
	"sprite-suite/pkg/colorutil"
	"sprite-suite/pkg/geometry"
)

// ForegroundMask builds an 8-bit mask, 255 where the pixel is foreground.
func ForegroundMask(p *detect.Pixels, bg colorutil.RGBA, tolerance int) (gocv.Mat, error) {
	n := p.Width * p.Height
	mask := make([]byte, n)
	for i := 0; i < n; i++ {
		if !detect.IsBackground(p.Pix, i*4, bg, tolerance) {
			mask[i] = 255
		}
	}
	m, err := gocv.NewMatFromBytes(p.Height, p.Width, gocv.MatTypeCV8U, mask)
	return m, errors.Wrap(err, "mask mat")
}

// Components labels the foreground with OpenCV and returns the regions with
// at least minSize pixels, in raster order of their top-left corner.
func Components(p *detect.Pixels, bg colorutil.RGBA, tolerance, minSize int, use8Way bool) ([]detect.Component, error) {
	if p.Width == 0 || p.Height == 0 {
		return nil, nil
	}
	mask, err := ForegroundMask(p, bg, tolerance)
	if err != nil {
		return nil, err
	}
	defer mask.Close()

	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	conn := 4
	if use8Way {
		conn = 8
	}
	n := gocv.ConnectedComponentsWithStatsWithParams(mask, &labels, &stats, &centroids,
		conn, gocv.MatTypeCV32S, gocv.CCL_DEFAULT)

	var out []detect.Component
	// label 0 is the background
	for l := 1; l < n; l++ {
		area := int(stats.GetIntAt(l, int(gocv.CC_STAT_AREA)))
		if area < minSize {
			continue
		}
		out = append(out, detect.Component{
			Rect: geometry.NewRect(
				int(stats.GetIntAt(l, int(gocv.CC_STAT_LEFT))),
				int(stats.GetIntAt(l, int(gocv.CC_STAT_TOP))),
				int(stats.GetIntAt(l, int(gocv.CC_STAT_WIDTH))),
				int(stats.GetIntAt(l, int(gocv.CC_STAT_HEIGHT))),
			),
			PixelCount: area,
		})
	}
	sortComponents(out)
	return out, nil
}

func sortComponents(cs []detect.Component) {
	slices.SortStableFunc(cs, func(a, b detect.Component) int {
		return cmp.Or(cmp.Compare(a.Rect.Y, b.Rect.Y), cmp.Compare(a.Rect.X, b.Rect.X))
	})
}

// Report compares the two labellings.
type Report struct {
	Background colorutil.RGBA
	FloodFill  []detect.Component
	OpenCV     []detect.Component
	// Matched counts components with identical box and pixel count.
	Matched       int
	OnlyFloodFill []detect.Component
	OnlyOpenCV    []detect.Component
}

// Agree reports whether both labellings found exactly the same components.
func (r Report) Agree() bool {
	return len(r.OnlyFloodFill) == 0 && len(r.OnlyOpenCV) == 0
}

// Compare runs the flood-fill scan and OpenCV on the same foreground, with
// cfg's tolerance, minimum size and connectivity. Noise reduction is not
// applied to either side.
func Compare(p *detect.Pixels, cfg detect.Config) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	bg := detect.DetectBackground(p)
	scan := detect.Scan(p, bg, cfg.Tolerance, cfg.MinSpriteSize, cfg.Use8WayConnectivity)
	cv, err := Components(p, bg, cfg.Tolerance, cfg.MinSpriteSize, cfg.Use8WayConnectivity)
	if err != nil {
		return Report{}, err
	}

	r := Report{Background: bg, FloodFill: slices.Clone(scan.Components), OpenCV: cv}
	sortComponents(r.FloodFill)

	remaining := map[detect.Component]int{}
	for _, c := range cv {
		remaining[c]++
	}
	for _, c := range r.FloodFill {
		if remaining[c] > 0 {
			remaining[c]--
			r.Matched++
			continue
		}
		r.OnlyFloodFill = append(r.OnlyFloodFill, c)
	}
	for _, c := range cv {
		if remaining[c] > 0 {
			remaining[c]--
			r.OnlyOpenCV = append(r.OnlyOpenCV, c)
		}
	}
	return r, nil
}
