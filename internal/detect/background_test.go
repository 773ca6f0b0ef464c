package detect

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"sprite-suite/pkg/colorutil"
)

func TestDetectBackgroundRedBorder(t *testing.T) {
	red := colorutil.RGBA{R: 255, A: 255}
	p := NewPixels(40, 30)
	p.Fill(image.Rect(0, 0, 40, 30), red)
	p.Fill(image.Rect(1, 1, 20, 29), colorutil.RGBA{G: 200, A: 255})
	p.Fill(image.Rect(20, 1, 39, 29), colorutil.RGBA{B: 90, A: 255})

	assert.Equal(t, []int{255, 0, 0, 255}, DetectBackground(p).Slice())
}

func TestDetectBackgroundGroupsNearColors(t *testing.T) {
	p := sheetWith(20, 20, colorutil.RGBA{R: 100, G: 100, B: 100, A: 255}, colorutil.Black)
	// Slightly off shades along the top row join the first group.
	for x := 0; x < 20; x += 2 {
		p.Set(x, 0, colorutil.RGBA{R: 103, G: 98, B: 100, A: 255})
	}
	assert.Equal(t, colorutil.RGBA{R: 103, G: 98, B: 100, A: 255}, DetectBackground(p))
}

func TestDetectBackgroundTieGoesToLaterGroup(t *testing.T) {
	a := colorutil.RGBA{R: 10, A: 255}
	b := colorutil.RGBA{G: 10, A: 255}
	// 1x2 image: the top row sample is a, the bottom row sample is b.
	p := NewPixels(1, 2)
	p.Set(0, 0, a)
	p.Set(0, 1, b)
	assert.Equal(t, b, DetectBackground(p))
}

func TestDetectBackgroundEmpty(t *testing.T) {
	assert.Equal(t, colorutil.Transparent, DetectBackground(NewPixels(0, 0)))
}

func TestIsBackground(t *testing.T) {
	white := colorutil.White
	tests := []struct {
		name string
		px   colorutil.RGBA
		bg   colorutil.RGBA
		tol  int
		want bool
	}{
		{"transparent is always background", colorutil.RGBA{R: 1, G: 2, B: 3}, white, 0, true},
		{"exact match", white, white, 0, true},
		{"within tolerance", colorutil.RGBA{R: 250, G: 252, B: 255, A: 255}, white, 8, true},
		{"outside tolerance", colorutil.RGBA{R: 250, G: 252, B: 255, A: 255}, white, 7, false},
		{"alpha ignored in distance", colorutil.RGBA{R: 255, G: 255, B: 255, A: 10}, white, 0, true},
		{"semi-transparent bg keeps visible pixels", colorutil.RGBA{R: 0, G: 0, B: 0, A: 5}, colorutil.RGBA{A: 128}, 255, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pix := make([]byte, 4)
			tt.px.Put(pix, 0)
			assert.Equal(t, tt.want, IsBackground(pix, 0, tt.bg, tt.tol))
		})
	}
}
