package export

import (
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"sprite-suite/internal/anim"
	"sprite-suite/internal/sheet"
	"sprite-suite/pkg/colorutil"
)

// DefaultGIFSize is the side of the GIF canvas when none is given.
const DefaultGIFSize = 128

// alphaCutoff is the alpha below which a GIF pixel is written transparent.
const alphaCutoff = 10

// GIFOptions configures GIF export.
type GIFOptions struct {
	Width, Height int
	FPS           int
	// Transparent keeps the canvas clear; otherwise it is filled with
	// Background.
	Transparent bool
	Background  colorutil.RGBA
}

// GIF encodes the clip as a looping animated GIF. Frames are placed with the
// same fit-to-canvas geometry as the preview, scaled with nearest-neighbour
// sampling so pixel art stays sharp.
func GIF(w io.Writer, img image.Image, frames []sheet.SubFrame, opts GIFOptions) error {
	box, err := anim.BoundingBox(frames)
	if err != nil {
		return err
	}
	gw, gh := opts.Width, opts.Height
	if gw <= 0 {
		gw = DefaultGIFSize
	}
	if gh <= 0 {
		gh = DefaultGIFSize
	}
	place := anim.FitCanvas(box, float64(gw), float64(gh))
	delay := round(anim.NewPlayer(opts.FPS, len(frames)).FrameDelay().Seconds() * 100)

	bg := color.NRGBA{}
	disposal := byte(gif.DisposalNone)
	if opts.Transparent {
		disposal = gif.DisposalBackground
	} else {
		bg = opts.Background.NRGBA()
		bg.A = 255
	}

	out := &gif.GIF{}
	for _, f := range frames {
		canvas := imaging.New(gw, gh, bg)
		x, y, dw, dh := place.Dest(f)
		sprite := imaging.Resize(crop(img, f.Rect), max(1, round(dw)), max(1, round(dh)), imaging.NearestNeighbor)
		canvas = imaging.Overlay(canvas, sprite, image.Pt(round(x), round(y)), 1)

		out.Image = append(out.Image, paletted(canvas, opts.Transparent))
		out.Delay = append(out.Delay, delay)
		out.Disposal = append(out.Disposal, disposal)
	}
	return errors.Wrap(gif.EncodeAll(w, out), "encode gif")
}

// paletted converts a frame to an indexed image. Exact colours are kept when
// they fit in 256 entries; larger frames fall back to a fixed palette. With
// transparent set, index 0 is the transparent colour and receives every
// pixel whose alpha is under alphaCutoff.
func paletted(src *image.NRGBA, transparent bool) *image.Paletted {
	b := src.Bounds()
	var pal color.Palette
	if transparent {
		pal = append(pal, color.NRGBA{})
	}
	index := map[color.NRGBA]uint8{}
	exact := true

scan:
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := src.NRGBAAt(x, y)
			if transparent && c.A < alphaCutoff {
				continue
			}
			c.A = 255
			if _, ok := index[c]; ok {
				continue
			}
			if len(pal) == 256 {
				exact = false
				break scan
			}
			index[c] = uint8(len(pal))
			pal = append(pal, c)
		}
	}
	if !exact {
		if transparent {
			pal = append(color.Palette{color.NRGBA{}}, palette.WebSafe...)
		} else {
			pal = palette.Plan9
		}
	}
	if len(pal) == 0 {
		pal = color.Palette{color.NRGBA{A: 255}}
	}

	dst := image.NewPaletted(b, pal)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := src.NRGBAAt(x, y)
			if transparent && c.A < alphaCutoff {
				dst.SetColorIndex(x, y, 0)
				continue
			}
			c.A = 255
			if exact {
				dst.SetColorIndex(x, y, index[c])
				continue
			}
			i := pal.Index(c)
			if transparent && i == 0 {
				i = 1 + color.Palette(palette.WebSafe).Index(c)
			}
			dst.SetColorIndex(x, y, uint8(i))
		}
	}
	return dst
}
