package export

import (
	"image"
	"image/color"

	"sprite-suite/internal/sheet"
	"sprite-suite/pkg/geometry"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
)

// testSheet is 40x10: a red 10x10 block at x=0, a blue 6x4 block at x=10
// and a green 10x10 block at x=20, on a transparent background.
func testSheet() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 10))
	fill := func(r image.Rectangle, c color.NRGBA) {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetNRGBA(x, y, c)
			}
		}
	}
	fill(image.Rect(0, 0, 10, 10), red)
	fill(image.Rect(10, 0, 16, 4), blue)
	fill(image.Rect(20, 0, 30, 10), green)
	return img
}

func subFrame(id, name string, r geometry.Rect, ox, oy float64) sheet.SubFrame {
	return sheet.SubFrame{ID: id, Name: name, Rect: r, Offset: geometry.Point{X: ox, Y: oy}}
}

// twoFrames is a red frame and a green frame shifted right by 2.
func twoFrames() []sheet.SubFrame {
	return []sheet.SubFrame{
		subFrame("0", "a", geometry.NewRect(0, 0, 10, 10), 0, 0),
		subFrame("2", "b", geometry.NewRect(20, 0, 10, 10), 2, 0),
	}
}
