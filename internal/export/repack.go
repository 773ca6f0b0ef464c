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

// repackMargin is the padding around each sprite inside its cell.
const repackMargin = 5

// RepackResult is a rebuilt sheet with one uniform cell per sprite.
type RepackResult struct {
	Image  *image.NRGBA
	Frames sheet.Frames
	Cell   geometry.Size
	Cols   int
	Rows   int
}

// Repack lays the sub-frames out on a new, roughly square grid of equal
// cells. Each sprite is centred horizontally and bottom-aligned in its cell,
// which suits characters standing on a common baseline. The new frames
// cover whole cells and keep the sub-frame names.
func Repack(img image.Image, frames []sheet.SubFrame) (*RepackResult, error) {
	if len(frames) == 0 {
		return nil, anim.ErrNoFrames
	}
	maxW, maxH := 0, 0
	for _, f := range frames {
		maxW = max(maxW, f.Rect.W)
		maxH = max(maxH, f.Rect.H)
	}
	cellW, cellH := maxW+2*repackMargin, maxH+2*repackMargin
	n := len(frames)
	cols := int(math.Ceil(math.Sqrt(float64(n) * float64(cellH) / float64(cellW))))
	cols = max(1, cols)
	rows := (n + cols - 1) / cols

	canvas := imaging.New(cols*cellW, rows*cellH, color.NRGBA{})
	out := make(sheet.Frames, 0, n)
	for i, f := range frames {
		gx, gy := i%cols, i/cols
		x := gx*cellW + repackMargin + (maxW-f.Rect.W)/2
		y := gy*cellH + repackMargin + (maxH - f.Rect.H)
		canvas = imaging.Overlay(canvas, crop(img, f.Rect), image.Pt(x, y), 1)
		out = append(out, sheet.NewSimpleFrame(i, f.Name, geometry.NewRect(gx*cellW, gy*cellH, cellW, cellH)))
	}
	return &RepackResult{
		Image:  canvas,
		Frames: out,
		Cell:   geometry.Size{W: cellW, H: cellH},
		Cols:   cols,
		Rows:   rows,
	}, nil
}

// Apply replaces the state's frames with the repacked layout. Clips and
// offsets refer to the old layout and are cleared.
func (r *RepackResult) Apply(s *sheet.State) {
	s.Clear()
	s.ReplaceFrames(r.Frames)
}
