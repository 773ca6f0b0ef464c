// Package sheet holds the sprite sheet frame model: frames, slices, clips,
// per-sub-frame offsets and the flattening of group frames into cells.
package sheet

import (
	"encoding/json"

	"github.com/pkg/errors"

	"sprite-suite/pkg/geometry"
)

// FrameType tags a frame in its serialized form.
type FrameType string

const (
	TypeSimple FrameType = "simple"
	TypeGroup  FrameType = "group"
)

// Frame is a named rectangular region of the sheet. A Frame is either a
// *SimpleFrame or a *GroupFrame.
type Frame interface {
	FrameID() int
	FrameName() string
	Bounds() geometry.Rect
	Type() FrameType
	// Clone returns a deep copy.
	Clone() Frame
}

// SimpleFrame is a single rectangle that yields exactly one sub-frame.
type SimpleFrame struct {
	ID   int
	Name string
	Rect geometry.Rect
}

// NewSimpleFrame creates a simple frame.
func NewSimpleFrame(id int, name string, r geometry.Rect) *SimpleFrame {
	return &SimpleFrame{ID: id, Name: name, Rect: r}
}

func (f *SimpleFrame) FrameID() int          { return f.ID }
func (f *SimpleFrame) FrameName() string     { return f.Name }
func (f *SimpleFrame) Bounds() geometry.Rect { return f.Rect }
func (f *SimpleFrame) Type() FrameType       { return TypeSimple }

func (f *SimpleFrame) Clone() Frame {
	c := *f
	return &c
}

// VSlice is a vertical cut inside a group frame. GlobalX applies to every
// row unless RowOverrides has an entry for that row; a nil override value
// means the slice does not cut that row at all.
type VSlice struct {
	ID           int64            `json:"id"`
	GlobalX      *float64         `json:"globalX"`
	RowOverrides map[int]*float64 `json:"rowOverrides"`
}

// XForRow returns the effective x of the slice in the given row, relative to
// the frame's left edge. ok is false when the slice does not cut the row.
func (v VSlice) XForRow(row int) (x float64, ok bool) {
	if ov, has := v.RowOverrides[row]; has {
		if ov == nil {
			return 0, false
		}
		return *ov, true
	}
	if v.GlobalX == nil {
		return 0, false
	}
	return *v.GlobalX, true
}

func (v VSlice) clone() VSlice {
	c := VSlice{ID: v.ID}
	if v.GlobalX != nil {
		x := *v.GlobalX
		c.GlobalX = &x
	}
	if v.RowOverrides != nil {
		c.RowOverrides = make(map[int]*float64, len(v.RowOverrides))
		for row, ov := range v.RowOverrides {
			if ov == nil {
				c.RowOverrides[row] = nil
				continue
			}
			x := *ov
			c.RowOverrides[row] = &x
		}
	}
	return c
}

// MarshalJSON always writes rowOverrides as an object.
func (v VSlice) MarshalJSON() ([]byte, error) {
	type plain VSlice
	p := plain(v)
	if p.RowOverrides == nil {
		p.RowOverrides = map[int]*float64{}
	}
	return json.Marshal(p)
}

// GroupFrame is a rectangle subdivided by horizontal and vertical slices
// into a grid of cells. Slice positions are relative to the frame origin.
type GroupFrame struct {
	ID      int
	Name    string
	Rect    geometry.Rect
	HSlices []float64
	VSlices []VSlice
}

func (f *GroupFrame) FrameID() int          { return f.ID }
func (f *GroupFrame) FrameName() string     { return f.Name }
func (f *GroupFrame) Bounds() geometry.Rect { return f.Rect }
func (f *GroupFrame) Type() FrameType       { return TypeGroup }

func (f *GroupFrame) Clone() Frame {
	c := &GroupFrame{ID: f.ID, Name: f.Name, Rect: f.Rect}
	c.HSlices = append([]float64(nil), f.HSlices...)
	if f.VSlices != nil {
		c.VSlices = make([]VSlice, len(f.VSlices))
		for i, v := range f.VSlices {
			c.VSlices[i] = v.clone()
		}
	}
	return c
}

// Float returns a pointer to x, for building slices in code.
func Float(x float64) *float64 { return &x }

// frameJSON is the persisted shape shared by both frame kinds.
type frameJSON struct {
	ID      int           `json:"id"`
	Name    string        `json:"name"`
	Rect    geometry.Rect `json:"rect"`
	Type    FrameType     `json:"type"`
	HSlices []float64     `json:"hSlices,omitempty"`
	VSlices []VSlice      `json:"vSlices,omitempty"`
}

// groupJSON forces the slice arrays to be present even when empty.
type groupJSON struct {
	ID      int           `json:"id"`
	Name    string        `json:"name"`
	Rect    geometry.Rect `json:"rect"`
	Type    FrameType     `json:"type"`
	HSlices []float64     `json:"hSlices"`
	VSlices []VSlice      `json:"vSlices"`
}

func (f *SimpleFrame) MarshalJSON() ([]byte, error) {
	return json.Marshal(frameJSON{ID: f.ID, Name: f.Name, Rect: f.Rect, Type: TypeSimple})
}

func (f *GroupFrame) MarshalJSON() ([]byte, error) {
	g := groupJSON{ID: f.ID, Name: f.Name, Rect: f.Rect, Type: TypeGroup, HSlices: f.HSlices, VSlices: f.VSlices}
	if g.HSlices == nil {
		g.HSlices = []float64{}
	}
	if g.VSlices == nil {
		g.VSlices = []VSlice{}
	}
	return json.Marshal(g)
}

// DecodeFrame parses a single serialized frame. A missing or unknown type
// tag is read as a simple frame.
func DecodeFrame(data []byte) (Frame, error) {
	var raw frameJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode frame")
	}
	if raw.Type == TypeGroup {
		return &GroupFrame{ID: raw.ID, Name: raw.Name, Rect: raw.Rect, HSlices: raw.HSlices, VSlices: raw.VSlices}, nil
	}
	return &SimpleFrame{ID: raw.ID, Name: raw.Name, Rect: raw.Rect}, nil
}

// Frames is an ordered frame list with a polymorphic JSON codec.
type Frames []Frame

// UnmarshalJSON decodes each element by its type tag.
func (fs *Frames) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return errors.Wrap(err, "decode frames")
	}
	out := make(Frames, 0, len(raws))
	for i, r := range raws {
		f, err := DecodeFrame(r)
		if err != nil {
			return errors.Wrapf(err, "frame %d", i)
		}
		out = append(out, f)
	}
	*fs = out
	return nil
}

// MarshalJSON writes an empty array rather than null.
func (fs Frames) MarshalJSON() ([]byte, error) {
	if fs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Frame(fs))
}

// Clone deep-copies every frame.
func (fs Frames) Clone() Frames {
	out := make(Frames, len(fs))
	for i, f := range fs {
		out[i] = f.Clone()
	}
	return out
}

// MaxID returns the largest frame id, or -1 for an empty list.
func (fs Frames) MaxID() int {
	m := -1
	for _, f := range fs {
		m = max(m, f.FrameID())
	}
	return m
}

// Find returns the frame with the given id.
func (fs Frames) Find(id int) (Frame, int, bool) {
	for i, f := range fs {
		if f.FrameID() == id {
			return f, i, true
		}
	}
	return nil, -1, false
}

// FromSimple widens a detection result to a frame list.
func FromSimple(simple []*SimpleFrame) Frames {
	out := make(Frames, len(simple))
	for i, f := range simple {
		out[i] = f
	}
	return out
}
