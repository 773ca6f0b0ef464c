package export

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"
	"github.com/pkg/errors"

	"sprite-suite/internal/sheet"
)

const (
	simpleStroke = "#00bcd4"
	groupStroke  = "#ff9800"
	cellStroke   = "#e040fb"
)

// errWriter remembers the first write error, since svgo does not report
// them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

// SliceMapSVG draws the frame layout of a sheet as an SVG overlay: one
// outlined rectangle per frame, dashed outlines for the cells of group
// frames, and frame names as labels. When href is set the sheet image is
// embedded underneath.
func SliceMapSVG(w io.Writer, width, height int, frames sheet.Frames, href string) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(width, height)
	if href != "" {
		canvas.Image(0, 0, width, height, href)
	}
	for _, f := range frames {
		r := f.Bounds()
		canvas.Gid(fmt.Sprintf("frame-%d", f.FrameID()))
		stroke := simpleStroke
		if g, ok := f.(*sheet.GroupFrame); ok {
			stroke = groupStroke
			for _, c := range g.Cells(nil) {
				canvas.Rect(c.Rect.X, c.Rect.Y, c.Rect.W, c.Rect.H,
					"fill:none;stroke:"+cellStroke+";stroke-width:1;stroke-dasharray:2,2")
			}
		}
		canvas.Rect(r.X, r.Y, r.W, r.H, "fill:none;stroke:"+stroke+";stroke-width:1")
		canvas.Text(r.X+2, r.Y+10, f.FrameName(), "font-family:monospace;font-size:9px;fill:"+stroke)
		canvas.Gend()
	}
	canvas.End()
	return errors.Wrap(ew.err, "write svg")
}
