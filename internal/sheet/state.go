package sheet

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"sprite-suite/pkg/geometry"
)

var (
	// ErrFrameNotFound is returned when no frame has the requested id.
	ErrFrameNotFound = errors.New("frame not found")
	// ErrClipNotFound is returned when no clip has the requested id.
	ErrClipNotFound = errors.New("clip not found")
	// ErrLastClip is returned when deleting the only remaining clip.
	ErrLastClip = errors.New("cannot delete the last clip")
	// ErrNoActiveClip is returned by clip edits when no clip is active.
	ErrNoActiveClip = errors.New("no active clip")
)

// Clip is a named, ordered list of sub-frame ids forming one animation.
// The same id may appear more than once.
type Clip struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	FrameIDs []string `json:"frameIds"`
}

func (c *Clip) clone() *Clip {
	return &Clip{ID: c.ID, Name: c.Name, FrameIDs: append([]string{}, c.FrameIDs...)}
}

// AlignX selects horizontal placement inside a unified canvas.
type AlignX string

// AlignY selects vertical placement inside a unified canvas.
type AlignY string

const (
	AlignLeft    AlignX = "left"
	AlignCenterX AlignX = "center"
	AlignRight   AlignX = "right"

	AlignTop     AlignY = "top"
	AlignCenterY AlignY = "center"
	AlignBottom  AlignY = "bottom"
)

// EventType identifies state change notifications.
type EventType int

const (
	// EventFramesChanged fires after the frame list or slices change.
	EventFramesChanged EventType = iota
	// EventClipsChanged fires after clips or the active clip change.
	EventClipsChanged
	// EventOffsetsChanged fires after pivot offsets change.
	EventOffsetsChanged
	// EventCommitted fires when an edit should become an undo step.
	EventCommitted
	// EventRestored fires after a snapshot has been applied.
	EventRestored
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// State is the editable sheet document: frames, clips, the active clip and
// sub-frame offsets. All methods are safe for concurrent use.
type State struct {
	mu sync.RWMutex

	frames       Frames
	clips        []*Clip
	activeClipID *int64
	offsets      Offsets

	// newID produces ids for clips and vertical slices.
	newID func() int64

	listeners map[EventType][]EventListener
}

// NewState creates an empty document.
func NewState() *State {
	return &State{
		offsets:   Offsets{},
		newID:     func() int64 { return time.Now().UnixMilli() },
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Commit announces that the current document is a finished edit.
func (s *State) Commit() {
	s.Emit(EventCommitted, nil)
}

// Frames returns a deep copy of the frame list.
func (s *State) Frames() Frames {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames.Clone()
}

// Clips returns a copy of the clip list.
func (s *State) Clips() []*Clip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Clip, len(s.clips))
	for i, c := range s.clips {
		out[i] = c.clone()
	}
	return out
}

// ActiveClipID returns the active clip id, or nil.
func (s *State) ActiveClipID() *int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeClipID == nil {
		return nil
	}
	id := *s.activeClipID
	return &id
}

// Offsets returns a copy of the offset table.
func (s *State) Offsets() Offsets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offsets.Clone()
}

// Offset returns the pivot offset of one sub-frame.
func (s *State) Offset(subID string) geometry.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offsets.For(subID)
}

// SetOffset stores the pivot offset of one sub-frame.
func (s *State) SetOffset(subID string, p geometry.Point) {
	s.mu.Lock()
	s.offsets[subID] = p
	s.mu.Unlock()
	s.Emit(EventOffsetsChanged, subID)
}

// Flattened returns all sub-frames in frame order.
func (s *State) Flattened() []SubFrame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Flatten(s.frames, s.offsets)
}

// ActiveClip returns a copy of the active clip, or nil.
func (s *State) ActiveClip() *Clip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c := s.activeClipLocked(); c != nil {
		return c.clone()
	}
	return nil
}

func (s *State) activeClipLocked() *Clip {
	if s.activeClipID == nil {
		return nil
	}
	for _, c := range s.clips {
		if c.ID == *s.activeClipID {
			return c
		}
	}
	return nil
}

// AnimationFrames resolves the active clip's ids against the current
// sub-frames, in clip order. Ids with no matching sub-frame are dropped.
func (s *State) AnimationFrames() []SubFrame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clip := s.activeClipLocked()
	if clip == nil {
		return nil
	}
	return Resolve(clip.FrameIDs, Flatten(s.frames, s.offsets))
}

// Resolve maps ids onto sub-frames, keeping order and repeats and dropping
// ids that match nothing.
func Resolve(ids []string, all []SubFrame) []SubFrame {
	byID := make(map[string]SubFrame, len(all))
	for _, f := range all {
		if _, dup := byID[f.ID]; !dup {
			byID[f.ID] = f
		}
	}
	out := make([]SubFrame, 0, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out
}

// ReplaceFrames installs a new frame list, typically a detection result.
// Clips and the active clip are cleared; offsets are left as they are.
func (s *State) ReplaceFrames(frames Frames) {
	s.mu.Lock()
	s.frames = frames.Clone()
	s.clips = nil
	s.activeClipID = nil
	s.mu.Unlock()
	s.Emit(EventFramesChanged, len(frames))
	s.Emit(EventClipsChanged, nil)
}

// Clear empties the document, offsets included.
func (s *State) Clear() {
	s.mu.Lock()
	s.frames = nil
	s.clips = nil
	s.activeClipID = nil
	s.offsets = Offsets{}
	s.mu.Unlock()
	s.Emit(EventFramesChanged, 0)
}

// AddFrame appends a simple frame with the next free id.
func (s *State) AddFrame(r geometry.Rect) *SimpleFrame {
	s.mu.Lock()
	id := s.frames.MaxID() + 1
	f := NewSimpleFrame(id, "frame_"+strconv.Itoa(id), r)
	s.frames = append(s.frames, f)
	s.mu.Unlock()
	s.Emit(EventFramesChanged, id)
	return f.Clone().(*SimpleFrame)
}

// DeleteFrame removes a frame and strips the sub-frame ids that vanished
// with it from every clip.
func (s *State) DeleteFrame(id int) error {
	s.mu.Lock()
	_, idx, ok := s.frames.Find(id)
	if !ok {
		s.mu.Unlock()
		return errors.Wrapf(ErrFrameNotFound, "frame %d", id)
	}
	before := Flatten(s.frames, s.offsets)
	s.frames = append(s.frames[:idx:idx], s.frames[idx+1:]...)
	after := make(map[string]bool)
	for _, f := range Flatten(s.frames, s.offsets) {
		after[f.ID] = true
	}
	gone := make(map[string]bool)
	for _, f := range before {
		if !after[f.ID] {
			gone[f.ID] = true
		}
	}
	if len(gone) > 0 {
		for _, c := range s.clips {
			kept := c.FrameIDs[:0]
			for _, fid := range c.FrameIDs {
				if !gone[fid] {
					kept = append(kept, fid)
				}
			}
			c.FrameIDs = kept
		}
	}
	s.mu.Unlock()
	s.Emit(EventFramesChanged, id)
	return nil
}

// RenameFrame changes a frame's display name.
func (s *State) RenameFrame(id int, name string) error {
	s.mu.Lock()
	f, _, ok := s.frames.Find(id)
	if !ok {
		s.mu.Unlock()
		return errors.Wrapf(ErrFrameNotFound, "frame %d", id)
	}
	switch fr := f.(type) {
	case *SimpleFrame:
		fr.Name = name
	case *GroupFrame:
		fr.Name = name
	}
	s.mu.Unlock()
	s.Emit(EventFramesChanged, id)
	return nil
}

// groupLocked returns the frame as a group, converting a simple frame in
// place when needed.
func (s *State) groupLocked(id int) (*GroupFrame, error) {
	f, idx, ok := s.frames.Find(id)
	if !ok {
		return nil, errors.Wrapf(ErrFrameNotFound, "frame %d", id)
	}
	if g, ok := f.(*GroupFrame); ok {
		return g, nil
	}
	g := &GroupFrame{ID: f.FrameID(), Name: f.FrameName(), Rect: f.Bounds(), HSlices: []float64{}, VSlices: []VSlice{}}
	s.frames[idx] = g
	return g, nil
}

// AddHSlice cuts a frame horizontally at y, relative to the frame's top.
func (s *State) AddHSlice(id int, y float64) error {
	s.mu.Lock()
	g, err := s.groupLocked(id)
	if err == nil {
		g.HSlices = append(g.HSlices, y)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.Emit(EventFramesChanged, id)
	return nil
}

// AddVSlice cuts a single row of a frame vertically at x. The new slice has
// no global position, only an override for that row.
func (s *State) AddVSlice(id, row int, x float64) (int64, error) {
	s.mu.Lock()
	g, err := s.groupLocked(id)
	var sliceID int64
	if err == nil {
		sliceID = s.newID()
		g.VSlices = append(g.VSlices, VSlice{ID: sliceID, RowOverrides: map[int]*float64{row: Float(x)}})
	}
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	s.Emit(EventFramesChanged, id)
	return sliceID, nil
}

// SetRowOverride sets or clears (x == nil) a vertical slice's position in
// one row.
func (s *State) SetRowOverride(frameID int, sliceID int64, row int, x *float64) error {
	s.mu.Lock()
	err := s.editVSliceLocked(frameID, sliceID, func(v *VSlice) {
		if v.RowOverrides == nil {
			v.RowOverrides = map[int]*float64{}
		}
		v.RowOverrides[row] = x
	})
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.Emit(EventFramesChanged, frameID)
	return nil
}

// DeleteVSlice removes a vertical slice from a group frame.
func (s *State) DeleteVSlice(frameID int, sliceID int64) error {
	s.mu.Lock()
	err := s.deleteVSliceLocked(frameID, sliceID)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.Emit(EventFramesChanged, frameID)
	return nil
}

func (s *State) deleteVSliceLocked(frameID int, sliceID int64) error {
	f, _, ok := s.frames.Find(frameID)
	g, isGroup := f.(*GroupFrame)
	if !ok || !isGroup {
		return errors.Wrapf(ErrFrameNotFound, "group frame %d", frameID)
	}
	for i, v := range g.VSlices {
		if v.ID == sliceID {
			g.VSlices = append(g.VSlices[:i:i], g.VSlices[i+1:]...)
			return nil
		}
	}
	return errors.Errorf("slice %d not found in frame %d", sliceID, frameID)
}

func (s *State) editVSliceLocked(frameID int, sliceID int64, edit func(*VSlice)) error {
	f, _, ok := s.frames.Find(frameID)
	g, isGroup := f.(*GroupFrame)
	if !ok || !isGroup {
		return errors.Wrapf(ErrFrameNotFound, "group frame %d", frameID)
	}
	for i := range g.VSlices {
		if g.VSlices[i].ID == sliceID {
			edit(&g.VSlices[i])
			return nil
		}
	}
	return errors.Errorf("slice %d not found in frame %d", sliceID, frameID)
}

// GenerateByGrid replaces all frames with one group frame covering the
// sheet, cut into rows x cols equal cells.
func (s *State) GenerateByGrid(rows, cols, sheetW, sheetH int) error {
	if rows < 1 || cols < 1 {
		return errors.Errorf("rows and cols must be positive, got %dx%d", rows, cols)
	}
	w := float64(sheetW) / float64(cols)
	h := float64(sheetH) / float64(rows)
	base := s.newID()
	g := &GroupFrame{ID: 0, Name: "grid_group", Rect: geometry.NewRect(0, 0, sheetW, sheetH), HSlices: []float64{}, VSlices: []VSlice{}}
	for i := 1; i < cols; i++ {
		g.VSlices = append(g.VSlices, VSlice{ID: base + int64(i), GlobalX: Float(float64(i) * w), RowOverrides: map[int]*float64{}})
	}
	for i := 1; i < rows; i++ {
		g.HSlices = append(g.HSlices, float64(i)*h)
	}
	s.ReplaceFrames(Frames{g})
	return nil
}

// GenerateBySize replaces all frames with one group frame covering the
// sheet, cut every cellW and cellH pixels.
func (s *State) GenerateBySize(cellW, cellH, sheetW, sheetH int) error {
	if cellW < 1 || cellH < 1 {
		return errors.Errorf("cell size must be positive, got %dx%d", cellW, cellH)
	}
	base := s.newID()
	g := &GroupFrame{ID: 0, Name: "sized_group", Rect: geometry.NewRect(0, 0, sheetW, sheetH), HSlices: []float64{}, VSlices: []VSlice{}}
	for x := cellW; x < sheetW; x += cellW {
		g.VSlices = append(g.VSlices, VSlice{ID: base + int64(x), GlobalX: Float(float64(x)), RowOverrides: map[int]*float64{}})
	}
	for y := cellH; y < sheetH; y += cellH {
		g.HSlices = append(g.HSlices, float64(y))
	}
	s.ReplaceFrames(Frames{g})
	return nil
}

// CreateClip adds an empty clip and makes it active.
func (s *State) CreateClip(name string) (*Clip, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("clip name is empty")
	}
	s.mu.Lock()
	c := &Clip{ID: s.newID(), Name: name, FrameIDs: []string{}}
	for _, other := range s.clips {
		if other.ID >= c.ID {
			c.ID = other.ID + 1
		}
	}
	s.clips = append(s.clips, c)
	id := c.ID
	s.activeClipID = &id
	out := c.clone()
	s.mu.Unlock()
	s.Emit(EventClipsChanged, id)
	return out, nil
}

// DefaultClipName names the clip made by EnsureDefaultClip.
const DefaultClipName = "Auto animation"

// EnsureDefaultClip creates an active clip holding every sub-frame when
// there are frames but no clips. It returns nil when nothing was created.
func (s *State) EnsureDefaultClip() *Clip {
	s.mu.Lock()
	all := Flatten(s.frames, s.offsets)
	if len(s.clips) > 0 || len(all) == 0 {
		s.mu.Unlock()
		return nil
	}
	c := &Clip{ID: s.newID(), Name: DefaultClipName, FrameIDs: make([]string, len(all))}
	for i, f := range all {
		c.FrameIDs[i] = f.ID
	}
	s.clips = append(s.clips, c)
	id := c.ID
	s.activeClipID = &id
	out := c.clone()
	s.mu.Unlock()
	s.Emit(EventClipsChanged, id)
	return out
}

// RenameClip renames a clip.
func (s *State) RenameClip(id int64, name string) error {
	if name == "" {
		return errors.New("clip name is empty")
	}
	return s.editClip(id, func(c *Clip) { c.Name = name })
}

// DeleteClip removes a clip. The last remaining clip cannot be deleted.
// When the active clip goes, the first remaining clip becomes active.
func (s *State) DeleteClip(id int64) error {
	s.mu.Lock()
	if len(s.clips) <= 1 {
		s.mu.Unlock()
		return ErrLastClip
	}
	idx := -1
	for i, c := range s.clips {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return errors.Wrapf(ErrClipNotFound, "clip %d", id)
	}
	s.clips = append(s.clips[:idx:idx], s.clips[idx+1:]...)
	if s.activeClipID != nil && *s.activeClipID == id {
		first := s.clips[0].ID
		s.activeClipID = &first
	}
	s.mu.Unlock()
	s.Emit(EventClipsChanged, id)
	return nil
}

// SetActiveClip selects the clip used for playback and export.
func (s *State) SetActiveClip(id int64) error {
	s.mu.Lock()
	found := false
	for _, c := range s.clips {
		if c.ID == id {
			found = true
			break
		}
	}
	if found {
		s.activeClipID = &id
	}
	s.mu.Unlock()
	if !found {
		return errors.Wrapf(ErrClipNotFound, "clip %d", id)
	}
	s.Emit(EventClipsChanged, id)
	return nil
}

// AddToClip adds sub-frame ids to the end of the active clip.
func (s *State) AddToClip(ids ...string) error {
	return s.editActiveClip(func(c *Clip) { c.FrameIDs = append(c.FrameIDs, ids...) })
}

// RemoveFromClip removes every occurrence of id from the active clip.
func (s *State) RemoveFromClip(id string) error {
	return s.editActiveClip(func(c *Clip) {
		kept := c.FrameIDs[:0]
		for _, fid := range c.FrameIDs {
			if fid != id {
				kept = append(kept, fid)
			}
		}
		c.FrameIDs = kept
	})
}

// AddAllToActiveClip appends every sub-frame id not already in the clip.
func (s *State) AddAllToActiveClip() error {
	all := s.Flattened()
	return s.editActiveClip(func(c *Clip) {
		seen := make(map[string]bool, len(c.FrameIDs))
		var ids []string
		for _, id := range c.FrameIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		for _, f := range all {
			if !seen[f.ID] {
				seen[f.ID] = true
				ids = append(ids, f.ID)
			}
		}
		c.FrameIDs = ids
	})
}

// ClearActiveClip empties the active clip.
func (s *State) ClearActiveClip() error {
	return s.editActiveClip(func(c *Clip) { c.FrameIDs = []string{} })
}

func (s *State) editActiveClip(edit func(*Clip)) error {
	s.mu.Lock()
	c := s.activeClipLocked()
	if c == nil {
		s.mu.Unlock()
		return ErrNoActiveClip
	}
	edit(c)
	id := c.ID
	s.mu.Unlock()
	s.Emit(EventClipsChanged, id)
	return nil
}

func (s *State) editClip(id int64, edit func(*Clip)) error {
	s.mu.Lock()
	for _, c := range s.clips {
		if c.ID == id {
			edit(c)
			s.mu.Unlock()
			s.Emit(EventClipsChanged, id)
			return nil
		}
	}
	s.mu.Unlock()
	return errors.Wrapf(ErrClipNotFound, "clip %d", id)
}

// UnifyFrameSizes sets the offset of every sub-frame so that all of them
// sit on a common canvas of targetW x targetH. A non-positive target
// dimension means the largest sub-frame dimension. Existing offsets are
// overwritten. It returns the canvas size used.
func (s *State) UnifyFrameSizes(targetW, targetH int, ax AlignX, ay AlignY) (geometry.Size, error) {
	all := s.Flattened()
	if len(all) == 0 {
		return geometry.Size{}, errors.New("no frames to unify")
	}
	if targetW <= 0 || targetH <= 0 {
		mw, mh := maxSize(all)
		if targetW <= 0 {
			targetW = mw
		}
		if targetH <= 0 {
			targetH = mh
		}
	}
	s.mu.Lock()
	for _, f := range all {
		s.offsets[f.ID] = alignOffset(f.Rect, targetW, targetH, ax, ay)
	}
	s.mu.Unlock()
	s.Emit(EventOffsetsChanged, nil)
	return geometry.Size{W: targetW, H: targetH}, nil
}

// AlignFramesByOffset aligns the active clip's frames inside the box of the
// largest one. mode combines "left"/"right" with "top"/"bottom", e.g.
// "bottom-center"; anything else centers on that axis.
func (s *State) AlignFramesByOffset(mode string) error {
	frames := s.AnimationFrames()
	if len(frames) == 0 {
		return errors.New("no frames in the active clip")
	}
	mw, mh := maxSize(frames)
	ax, ay := AlignCenterX, AlignCenterY
	switch {
	case strings.Contains(mode, "left"):
		ax = AlignLeft
	case strings.Contains(mode, "right"):
		ax = AlignRight
	}
	switch {
	case strings.Contains(mode, "top"):
		ay = AlignTop
	case strings.Contains(mode, "bottom"):
		ay = AlignBottom
	}
	s.mu.Lock()
	for _, f := range frames {
		s.offsets[f.ID] = alignOffset(f.Rect, mw, mh, ax, ay)
	}
	s.mu.Unlock()
	s.Emit(EventOffsetsChanged, nil)
	return nil
}

func alignOffset(r geometry.Rect, tw, th int, ax AlignX, ay AlignY) geometry.Point {
	var p geometry.Point
	switch ax {
	case AlignLeft:
		p.X = 0
	case AlignRight:
		p.X = float64(tw - r.W)
	default:
		p.X = float64(tw-r.W) / 2
	}
	switch ay {
	case AlignTop:
		p.Y = 0
	case AlignBottom:
		p.Y = float64(th - r.H)
	default:
		p.Y = float64(th-r.H) / 2
	}
	return p
}

func maxSize(frames []SubFrame) (int, int) {
	w, h := math.MinInt, math.MinInt
	for _, f := range frames {
		w = max(w, f.Rect.W)
		h = max(h, f.Rect.H)
	}
	return w, h
}

// Snapshot captures the document for history and persistence.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Frames: s.frames.Clone(), Offsets: s.offsets.Clone()}
	snap.Clips = make([]*Clip, len(s.clips))
	for i, c := range s.clips {
		snap.Clips[i] = c.clone()
	}
	if s.activeClipID != nil {
		id := *s.activeClipID
		snap.ActiveClipID = &id
	}
	return snap
}

// Restore replaces the document with a snapshot.
func (s *State) Restore(snap Snapshot) {
	s.mu.Lock()
	s.frames = snap.Frames.Clone()
	s.clips = make([]*Clip, len(snap.Clips))
	for i, c := range snap.Clips {
		s.clips[i] = c.clone()
	}
	s.activeClipID = nil
	if snap.ActiveClipID != nil {
		id := *snap.ActiveClipID
		s.activeClipID = &id
	}
	s.offsets = snap.Offsets.Clone()
	s.mu.Unlock()
	s.Emit(EventRestored, nil)
}

// Snapshot is the serializable document: frames, clips, the active clip
// and offsets.
type Snapshot struct {
	Frames       Frames  `json:"frames"`
	Clips        []*Clip `json:"clips"`
	ActiveClipID *int64  `json:"activeClipId"`
	Offsets      Offsets `json:"subFrameOffsets"`
}

// Slices returns a copy of a group frame's slices. A simple frame has none.
func (s *State) Slices(frameID int) ([]float64, []VSlice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, _, ok := s.frames.Find(frameID)
	if !ok {
		return nil, nil, errors.Wrapf(ErrFrameNotFound, "frame %d", frameID)
	}
	g, isGroup := f.(*GroupFrame)
	if !isGroup {
		return []float64{}, []VSlice{}, nil
	}
	c := g.Clone().(*GroupFrame)
	return c.HSlices, c.VSlices, nil
}

// SetSlices replaces a frame's slices, converting it to a group if needed.
func (s *State) SetSlices(frameID int, hs []float64, vs []VSlice) error {
	s.mu.Lock()
	g, err := s.groupLocked(frameID)
	if err == nil {
		c := (&GroupFrame{HSlices: hs, VSlices: vs}).Clone().(*GroupFrame)
		g.HSlices, g.VSlices = c.HSlices, c.VSlices
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.Emit(EventFramesChanged, frameID)
	return nil
}
