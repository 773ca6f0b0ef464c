package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprite-suite/pkg/geometry"
)

func TestHistoryGlobalUndoRedo(t *testing.T) {
	s := newTestState()
	h := NewHistory()
	h.Attach(s)

	s.Commit()
	s.AddFrame(geometry.NewRect(0, 0, 4, 4))
	s.Commit()
	s.SetOffset("0", geometry.Point{X: 2, Y: 1})
	s.Commit()

	assert.True(t, h.CanUndo())
	assert.False(t, h.CanRedo())

	changed, err := h.Undo(s)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, geometry.Point{}, s.Offset("0"))
	assert.Len(t, s.Frames(), 1)

	changed, err = h.Undo(s)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, s.Frames())

	changed, err = h.Undo(s)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = h.Redo(s)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, s.Frames(), 1)

	// A new commit drops the redo tail.
	s.AddFrame(geometry.NewRect(5, 5, 1, 1))
	s.Commit()
	assert.False(t, h.CanRedo())
	stack, idx := h.Stack()
	assert.Len(t, stack, 3)
	assert.Equal(t, 2, idx)
}

func TestHistoryLocalTakesPrecedence(t *testing.T) {
	s := newTestState()
	s.ReplaceFrames(Frames{NewSimpleFrame(0, "a", geometry.NewRect(0, 0, 20, 20))})
	h := NewHistory()
	require.NoError(t, h.SaveGlobal(s))

	require.NoError(t, h.SaveLocal(s, 0))
	require.NoError(t, s.AddHSlice(0, 10))
	require.NoError(t, h.SaveLocal(s, 0))
	require.NoError(t, s.AddHSlice(0, 5))
	require.NoError(t, h.SaveLocal(s, 0))
	assert.Len(t, s.Flattened(), 3)

	changed, err := h.Undo(s)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, s.Flattened(), 2)

	changed, err = h.Undo(s)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, s.Flattened(), 1)

	// Local stack exhausted and the global stack has a single entry.
	changed, err = h.Undo(s)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = h.Redo(s)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, s.Flattened(), 2)
}

func TestHistorySetStack(t *testing.T) {
	s := newTestState()
	h := NewHistory()
	require.NoError(t, h.SaveGlobal(s))
	s.AddFrame(geometry.NewRect(0, 0, 1, 1))
	require.NoError(t, h.SaveGlobal(s))
	stack, idx := h.Stack()

	restored := NewHistory()
	restored.SetStack(stack, idx)
	assert.True(t, restored.CanUndo())
	changed, err := restored.Undo(s)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, s.Frames())

	restored.Reset()
	assert.False(t, restored.CanUndo())
	assert.False(t, restored.CanRedo())
}
