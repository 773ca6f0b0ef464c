// Package anim computes the shared geometry of an animation clip: the
// bounding box of its offset frames and how that box is placed on a
// target canvas. Preview, GIF and CSS exports all go through here so they
// agree on frame placement.
package anim

import (
	"math"

	"github.com/pkg/errors"

	"sprite-suite/internal/sheet"
	"sprite-suite/pkg/geometry"
)

// ErrNoFrames is returned for an animation without frames.
var ErrNoFrames = errors.New("animation has no frames")

// BoundingBox returns the box enclosing every frame drawn at (-offset).
func BoundingBox(frames []sheet.SubFrame) (geometry.Box, error) {
	if len(frames) == 0 {
		return geometry.Box{}, ErrNoFrames
	}
	box := geometry.Box{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, f := range frames {
		box = box.Extend(f.Offset.Neg(), float64(f.Rect.W), float64(f.Rect.H))
	}
	return box, nil
}

// AspectRatio returns width/height of the animation's bounding box, or 1
// when there are no frames or the box has no height.
func AspectRatio(frames []sheet.SubFrame) float64 {
	box, err := BoundingBox(frames)
	if err != nil || box.Height() <= 0 {
		return 1
	}
	return box.Width() / box.Height()
}

// Translate is the position of a frame's top-left corner relative to the
// bounding box origin.
func Translate(f sheet.SubFrame, box geometry.Box) geometry.Point {
	return geometry.Point{X: -f.Offset.X - box.MinX, Y: -f.Offset.Y - box.MinY}
}

// Placement maps a bounding box onto a canvas: uniform scale, centred.
type Placement struct {
	Box     geometry.Box
	Scale   float64
	OriginX float64
	OriginY float64
}

// FitPreview fits box into a canvas without enlarging it.
func FitPreview(box geometry.Box, canvasW, canvasH float64) Placement {
	return fit(box, canvasW, canvasH, true)
}

// FitCanvas fits box into a canvas, scaling up or down.
func FitCanvas(box geometry.Box, canvasW, canvasH float64) Placement {
	return fit(box, canvasW, canvasH, false)
}

func fit(box geometry.Box, cw, ch float64, noUpscale bool) Placement {
	w, h := box.Width(), box.Height()
	scale := math.Min(cw/w, ch/h)
	if noUpscale {
		scale = math.Min(1, scale)
	}
	return Placement{
		Box:     box,
		Scale:   scale,
		OriginX: (cw - w*scale) / 2,
		OriginY: (ch - h*scale) / 2,
	}
}

// Dest returns where on the canvas the frame is drawn and at what size.
func (p Placement) Dest(f sheet.SubFrame) (x, y, w, h float64) {
	t := Translate(f, p.Box)
	return p.OriginX + t.X*p.Scale, p.OriginY + t.Y*p.Scale, float64(f.Rect.W) * p.Scale, float64(f.Rect.H) * p.Scale
}
