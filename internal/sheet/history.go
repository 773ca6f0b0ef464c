package sheet

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// History keeps undo/redo stacks for a State. The global stack holds whole
// document snapshots. The local stack holds slice edits of a single frame
// and takes precedence over the global stack while it has steps to offer.
type History struct {
	mu sync.Mutex

	global []json.RawMessage
	index  int

	local      []json.RawMessage
	localIndex int
	localFrame *int
}

// localSlices is one entry on the local stack.
type localSlices struct {
	HSlices []float64 `json:"hSlices"`
	VSlices []VSlice  `json:"vSlices"`
}

// NewHistory creates empty stacks.
func NewHistory() *History {
	return &History{index: -1, localIndex: -1}
}

// Attach records a global snapshot every time s commits.
func (h *History) Attach(s *State) {
	s.On(EventCommitted, func(interface{}) {
		if err := h.SaveGlobal(s); err != nil {
			log.Error().Err(err).Msg("history: save snapshot")
		}
	})
}

// SaveGlobal pushes a snapshot of s, dropping any redo steps and the local
// stack.
func (h *History) SaveGlobal(s *State) error {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return errors.Wrap(err, "snapshot state")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.global = append(h.global[:h.index+1], data)
	h.index++
	h.resetLocal()
	return nil
}

// SaveLocal pushes the current slices of one frame. Switching to another
// frame starts a fresh local stack.
func (h *History) SaveLocal(s *State, frameID int) error {
	hs, vs, err := s.Slices(frameID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(localSlices{HSlices: hs, VSlices: vs})
	if err != nil {
		return errors.Wrap(err, "snapshot slices")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.localFrame == nil || *h.localFrame != frameID {
		h.resetLocal()
		id := frameID
		h.localFrame = &id
	}
	h.local = append(h.local[:h.localIndex+1], data)
	h.localIndex++
	return nil
}

func (h *History) resetLocal() {
	h.local = nil
	h.localIndex = -1
	h.localFrame = nil
}

// CanUndo reports whether Undo would change anything.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.localIndex > 0 || h.index > 0
}

// CanRedo reports whether Redo would change anything.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.localIndex < len(h.local)-1 || h.index < len(h.global)-1
}

// Undo steps back one local slice edit if possible, otherwise one global
// snapshot. It reports whether anything changed.
func (h *History) Undo(s *State) (bool, error) {
	return h.step(s, -1)
}

// Redo is the inverse of Undo.
func (h *History) Redo(s *State) (bool, error) {
	return h.step(s, 1)
}

func (h *History) step(s *State, dir int) (bool, error) {
	h.mu.Lock()
	if next := h.localIndex + dir; h.localFrame != nil && next >= 0 && next < len(h.local) && h.localIndex >= 0 {
		h.localIndex = next
		data, frameID := h.local[next], *h.localFrame
		h.mu.Unlock()
		var ls localSlices
		if err := json.Unmarshal(data, &ls); err != nil {
			return false, errors.Wrap(err, "decode slices")
		}
		if err := s.SetSlices(frameID, ls.HSlices, ls.VSlices); err != nil && !errors.Is(err, ErrFrameNotFound) {
			return false, err
		}
		return true, nil
	}
	next := h.index + dir
	if next < 0 || next >= len(h.global) {
		h.mu.Unlock()
		return false, nil
	}
	h.index = next
	data := h.global[next]
	h.resetLocal()
	h.mu.Unlock()

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return false, errors.Wrap(err, "decode snapshot")
	}
	if snap.Offsets == nil {
		snap.Offsets = Offsets{}
	}
	s.Restore(snap)
	return true, nil
}

// Stack returns the global stack and index for persistence.
func (h *History) Stack() ([]json.RawMessage, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]json.RawMessage, len(h.global))
	copy(out, h.global)
	return out, h.index
}

// SetStack restores a persisted global stack. The local stack is cleared.
func (h *History) SetStack(stack []json.RawMessage, index int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.global = append([]json.RawMessage(nil), stack...)
	h.index = min(index, len(h.global)-1)
	h.resetLocal()
}

// Reset clears both stacks.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.global = nil
	h.index = -1
	h.resetLocal()
}
