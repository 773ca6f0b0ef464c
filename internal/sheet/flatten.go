package sheet

import (
	"fmt"
	"slices"
	"strconv"

	"sprite-suite/pkg/geometry"
)

// SubFrame is a leaf cell: the unit of animation and export.
type SubFrame struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Rect     geometry.Rect `json:"rect"`
	Offset   geometry.Point `json:"offset"`
	ParentID int           `json:"-"`
	Row      int           `json:"-"`
	Col      int           `json:"-"`
}

// Offsets maps sub-frame ids to pivot displacements. Missing entries read
// as the zero offset.
type Offsets map[string]geometry.Point

// For returns the offset of id, defaulting to {0, 0}.
func (o Offsets) For(id string) geometry.Point {
	return o[id]
}

// Clone returns a copy of the map.
func (o Offsets) Clone() Offsets {
	out := make(Offsets, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// RowBounds returns the y boundaries of the group's rows, relative to the
// frame origin: 0, the sorted horizontal slices, then the frame height.
func (f *GroupFrame) RowBounds() []float64 {
	hs := slices.Clone(f.HSlices)
	slices.Sort(hs)
	ys := make([]float64, 0, len(hs)+2)
	ys = append(ys, 0)
	ys = append(ys, hs...)
	return append(ys, float64(f.Rect.H))
}

// ColumnBounds returns the sorted, de-duplicated x boundaries for one row.
func (f *GroupFrame) ColumnBounds(row int) []float64 {
	xs := []float64{0}
	for _, v := range f.VSlices {
		if x, ok := v.XForRow(row); ok {
			xs = append(xs, x)
		}
	}
	xs = append(xs, float64(f.Rect.W))
	slices.Sort(xs)
	return slices.Compact(xs)
}

// Cells expands the group into its sub-frames in row-major order. Cells
// with no width are skipped; the column index in the id still counts them.
func (f *GroupFrame) Cells(offsets Offsets) []SubFrame {
	ys := f.RowBounds()
	var out []SubFrame
	for i := 0; i < len(ys)-1; i++ {
		y0, rowH := ys[i], ys[i+1]-ys[i]
		xs := f.ColumnBounds(i)
		for j := 0; j < len(xs)-1; j++ {
			x0, cellW := xs[j], xs[j+1]-xs[j]
			if cellW <= 0 {
				continue
			}
			id := fmt.Sprintf("%d_%d_%d", f.ID, i, j)
			out = append(out, SubFrame{
				ID:       id,
				Name:     fmt.Sprintf("%s_%d_%d", f.Name, i, j),
				Rect:     geometry.RoundRect(float64(f.Rect.X)+x0, float64(f.Rect.Y)+y0, cellW, rowH),
				Offset:   offsets.For(id),
				ParentID: f.ID,
				Row:      i,
				Col:      j,
			})
		}
	}
	return out
}

// SubFrame returns the single sub-frame of a simple frame.
func (f *SimpleFrame) SubFrame(offsets Offsets) SubFrame {
	id := strconv.Itoa(f.ID)
	return SubFrame{ID: id, Name: f.Name, Rect: f.Rect, Offset: offsets.For(id), ParentID: f.ID}
}

// Flatten expands frames into their sub-frames, preserving frame order.
func Flatten(frames []Frame, offsets Offsets) []SubFrame {
	var out []SubFrame
	for _, f := range frames {
		switch fr := f.(type) {
		case *SimpleFrame:
			out = append(out, fr.SubFrame(offsets))
		case *GroupFrame:
			out = append(out, fr.Cells(offsets)...)
		}
	}
	return out
}
