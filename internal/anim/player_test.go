package anim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlayerAdvance(t *testing.T) {
	p := NewPlayer(10, 3)
	assert.Equal(t, 100*time.Millisecond, p.FrameDelay())
	assert.Equal(t, 300*time.Millisecond, p.Duration())

	assert.Equal(t, 0, p.Advance(time.Second), "stopped player stays put")
	p.Play()
	assert.Equal(t, 0, p.Advance(50*time.Millisecond))
	assert.Equal(t, 1, p.Advance(50*time.Millisecond))
	assert.Equal(t, 0, p.Advance(200*time.Millisecond))
	assert.Equal(t, 2, p.Advance(250*time.Millisecond))
	assert.Equal(t, 0, p.Advance(50*time.Millisecond))
}

func TestPlayerStepping(t *testing.T) {
	p := NewPlayer(0, 4)
	assert.Equal(t, DefaultFPS, p.FPS())
	assert.Equal(t, 3, p.Prev())
	assert.Equal(t, 0, p.Next())
	assert.Equal(t, 3, p.Last())
	assert.Equal(t, 0, p.First())

	p.Last()
	p.SetFrameCount(2)
	assert.Equal(t, 0, p.Index())

	p.Play()
	p.Next()
	p.Reset()
	assert.False(t, p.Playing())
	assert.Equal(t, 0, p.Index())
}

func TestPlayerEmpty(t *testing.T) {
	p := NewPlayer(12, 0)
	p.Play()
	assert.Equal(t, 0, p.Advance(time.Second))
	assert.Equal(t, 0, p.Next())
	assert.Equal(t, 0, p.Last())
}
