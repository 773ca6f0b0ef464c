package detect

import (
	"bytes"
	"hash/fnv"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"sprite-suite/pkg/colorutil"
)

// Pixels is a decoded raster image as a flat, row-major, non-premultiplied
// RGBA buffer of exactly Width*Height*4 bytes.
type Pixels struct {
	Width  int
	Height int
	Pix    []byte
}

// NewPixels allocates a fully transparent buffer.
func NewPixels(width, height int) *Pixels {
	return &Pixels{Width: width, Height: height, Pix: make([]byte, width*height*4)}
}

// FromImage converts any image to a Pixels buffer anchored at (0, 0).
func FromImage(img image.Image) *Pixels {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == b.Dx()*4 {
		return &Pixels{Width: b.Dx(), Height: b.Dy(), Pix: append([]byte(nil), n.Pix[:b.Dx()*b.Dy()*4]...)}
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Pixels{Width: b.Dx(), Height: b.Dy(), Pix: dst.Pix}
}

// DefaultMaxPixels bounds the decoded size of an uploaded sheet.
const DefaultMaxPixels = 64 << 20

// ErrTooManyPixels is returned by DecodeLimited for images whose header
// declares more pixels than allowed.
var ErrTooManyPixels = errors.New("image has too many pixels")

// DecodeLimited decodes data after checking the dimensions in its header,
// so an oversized image is refused before any pixel memory is allocated.
func DecodeLimited(data []byte, maxPixels int64) (*Pixels, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrap(err, "decode image header")
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, "", errors.Wrapf(ErrTooManyPixels, "%dx%d exceeds %d", cfg.Width, cfg.Height, maxPixels)
	}
	return Decode(bytes.NewReader(data))
}

// Decode reads an encoded sheet (PNG, GIF, JPEG, BMP, TIFF or WebP).
func Decode(r io.Reader) (*Pixels, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", errors.Wrap(err, "decode image")
	}
	return FromImage(img), format, nil
}

// Image wraps the buffer as an *image.NRGBA without copying.
func (p *Pixels) Image() *image.NRGBA {
	return &image.NRGBA{Pix: p.Pix, Stride: p.Width * 4, Rect: image.Rect(0, 0, p.Width, p.Height)}
}

// Clone returns a private copy of the buffer.
func (p *Pixels) Clone() *Pixels {
	return &Pixels{Width: p.Width, Height: p.Height, Pix: append([]byte(nil), p.Pix...)}
}

// At returns the color of pixel (x, y).
func (p *Pixels) At(x, y int) colorutil.RGBA {
	return colorutil.At(p.Pix, (y*p.Width+x)*4)
}

// Set writes the color of pixel (x, y).
func (p *Pixels) Set(x, y int, c colorutil.RGBA) {
	c.Put(p.Pix, (y*p.Width+x)*4)
}

// Fill paints a rectangle, clipped to the image.
func (p *Pixels) Fill(r image.Rectangle, c colorutil.RGBA) {
	r = r.Intersect(image.Rect(0, 0, p.Width, p.Height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p.Set(x, y, c)
		}
	}
}

// Fingerprint hashes the pixel contents with FNV-64a.
func (p *Pixels) Fingerprint() uint64 {
	h := fnv.New64a()
	h.Write(p.Pix)
	return h.Sum64()
}

func (p *Pixels) valid() bool {
	return p != nil && p.Width >= 0 && p.Height >= 0 && len(p.Pix) == p.Width*p.Height*4
}
