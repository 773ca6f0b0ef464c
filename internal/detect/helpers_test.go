package detect

import (
	"image"

	"sprite-suite/pkg/colorutil"
)

// sheetWith builds a w x h image filled with bg and one solid fg rectangle
// per entry in rects.
func sheetWith(w, h int, bg, fg colorutil.RGBA, rects ...image.Rectangle) *Pixels {
	p := NewPixels(w, h)
	p.Fill(image.Rect(0, 0, w, h), bg)
	for _, r := range rects {
		p.Fill(r, fg)
	}
	return p
}

func syncConfig() Config {
	return DefaultConfig().WithWorker(false)
}
