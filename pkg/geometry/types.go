// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"encoding/json"
	"image"
	"math"
)

// Point represents a 2D point or displacement with floating-point coordinates.
// Pivot offsets use this type and may be fractional.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns the sum of two points.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Neg returns the point mirrored through the origin.
func (p Point) Neg() Point {
	return Point{X: -p.X, Y: -p.Y}
}

// Rect is a pixel rectangle on the sprite sheet. Width and height are
// positive for any rectangle that describes a frame.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// NewRect creates a new Rect.
func NewRect(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Area returns w*h.
func (r Rect) Area() int {
	return r.W * r.H
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Max returns the exclusive bottom-right corner.
func (r Rect) Max() image.Point {
	return image.Point{X: r.X + r.W, Y: r.Y + r.H}
}

// Image converts to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// FromImage converts an image.Rectangle to a Rect.
func FromImage(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Contains returns true if the pixel (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Intersects returns true if this rectangle overlaps another.
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.W && r.X+r.W > other.X &&
		r.Y < other.Y+other.H && r.Y+r.H > other.Y
}

// Union returns the smallest rectangle containing both rectangles.
func (r Rect) Union(other Rect) Rect {
	x := min(r.X, other.X)
	y := min(r.Y, other.Y)
	x2 := max(r.X+r.W, other.X+other.W)
	y2 := max(r.Y+r.H, other.Y+other.H)
	return Rect{X: x, Y: y, W: x2 - x, H: y2 - y}
}

// UnmarshalJSON accepts fractional coordinates, as written by editors that
// let the user drag rectangles freely, and rounds them to whole pixels.
func (r *Rect) UnmarshalJSON(data []byte) error {
	var raw struct {
		X, Y, W, H float64
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = RoundRect(raw.X, raw.Y, raw.W, raw.H)
	return nil
}

// RoundRect builds a Rect by rounding each float component independently,
// half away from zero.
func RoundRect(x, y, w, h float64) Rect {
	return Rect{
		X: int(math.Round(x)),
		Y: int(math.Round(y)),
		W: int(math.Round(w)),
		H: int(math.Round(h)),
	}
}

// Box is an axis-aligned bounding box in floating-point coordinates.
type Box struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Width returns MaxX-MinX.
func (b Box) Width() float64 {
	return b.MaxX - b.MinX
}

// Height returns MaxY-MinY.
func (b Box) Height() float64 {
	return b.MaxY - b.MinY
}

// Extend grows the box to include the rectangle whose top-left is at p.
func (b Box) Extend(p Point, w, h float64) Box {
	return Box{
		MinX: math.Min(b.MinX, p.X),
		MinY: math.Min(b.MinY, p.Y),
		MaxX: math.Max(b.MaxX, p.X+w),
		MaxY: math.Max(b.MaxY, p.Y+h),
	}
}

// Size represents a 2D integer size.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}
