package export

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"sprite-suite/internal/anim"
	"sprite-suite/internal/sheet"
	"sprite-suite/pkg/geometry"
)

// crop copies a sub-frame out of the sheet.
func crop(img image.Image, r geometry.Rect) *image.NRGBA {
	b := img.Bounds()
	return imaging.Crop(img, r.Image().Add(b.Min))
}

func round(v float64) int {
	return int(math.Round(v))
}

// AlignedFrames renders each frame onto a transparent canvas the size of
// the clip's bounding box, at its offset position, so that every image in
// the result has the same size.
func AlignedFrames(img image.Image, frames []sheet.SubFrame) ([]*image.NRGBA, error) {
	box, err := anim.BoundingBox(frames)
	if err != nil {
		return nil, err
	}
	w, h := int(box.Width()), int(box.Height())
	out := make([]*image.NRGBA, len(frames))
	for i, f := range frames {
		canvas := imaging.New(w, h, color.NRGBA{})
		t := anim.Translate(f, box)
		out[i] = imaging.Paste(canvas, crop(img, f.Rect), image.Pt(round(t.X), round(t.Y)))
	}
	return out, nil
}
