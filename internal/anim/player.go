package anim

import (
	"time"
)

// DefaultFPS is the playback rate of a new player.
const DefaultFPS = 12

// Player steps through the frames of a clip at a fixed rate.
type Player struct {
	fps     int
	count   int
	index   int
	pending time.Duration
	playing bool
}

// NewPlayer creates a stopped player for count frames.
func NewPlayer(fps, count int) *Player {
	p := &Player{count: count}
	p.SetFPS(fps)
	return p
}

// SetFPS changes the rate; non-positive values select DefaultFPS.
func (p *Player) SetFPS(fps int) {
	if fps <= 0 {
		fps = DefaultFPS
	}
	p.fps = fps
}

// FPS returns the playback rate.
func (p *Player) FPS() int { return p.fps }

// FrameDelay is how long each frame is shown.
func (p *Player) FrameDelay() time.Duration {
	return time.Second / time.Duration(p.fps)
}

// Duration is the length of one loop.
func (p *Player) Duration() time.Duration {
	return time.Duration(p.count) * p.FrameDelay()
}

// SetFrameCount updates the clip length, keeping the index in range.
func (p *Player) SetFrameCount(n int) {
	p.count = n
	if p.index >= n {
		p.index = 0
	}
}

// Index is the current frame.
func (p *Player) Index() int { return p.index }

// Playing reports whether Advance moves the playhead.
func (p *Player) Playing() bool { return p.playing }

// Play starts playback.
func (p *Player) Play() { p.playing = true }

// Pause stops playback, keeping the current frame.
func (p *Player) Pause() {
	p.playing = false
	p.pending = 0
}

// Advance moves the playhead by elapsed wall time while playing, looping
// at the end, and returns the current index.
func (p *Player) Advance(elapsed time.Duration) int {
	if !p.playing || p.count == 0 {
		return p.index
	}
	p.pending += elapsed
	delay := p.FrameDelay()
	steps := int(p.pending / delay)
	p.pending -= time.Duration(steps) * delay
	p.index = (p.index + steps) % p.count
	return p.index
}

// Next steps forward one frame, wrapping.
func (p *Player) Next() int {
	if p.count > 0 {
		p.index = (p.index + 1) % p.count
	}
	return p.index
}

// Prev steps back one frame, wrapping.
func (p *Player) Prev() int {
	if p.count > 0 {
		p.index = (p.index - 1 + p.count) % p.count
	}
	return p.index
}

// First jumps to the first frame.
func (p *Player) First() int {
	p.index = 0
	return p.index
}

// Last jumps to the last frame.
func (p *Player) Last() int {
	p.index = max(0, p.count-1)
	return p.index
}

// Reset stops playback and rewinds.
func (p *Player) Reset() {
	p.Pause()
	p.index = 0
}
