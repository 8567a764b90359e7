// Package geometry converts between canonical document space and screen
// space. It is the only place in the engine where either conversion happens;
// every placement, drag and render path goes through ToScreen/ToCanonical.
//
// Canonical coordinates are expressed in a page's unrotated, unscaled frame.
// Rotation is a container-level transform around the page center and is never
// baked into canonical values.
package geometry

import "math"

// Point is a position in either canonical or screen space, depending on
// context.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle with origin at the top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside r. Edges count as inside.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// ToScreen projects a canonical point onto the screen given the page's
// current on-screen origin and the viewport scale.
func ToScreen(p, pageOrigin Point, scale float64) Point {
	return Point{
		X: pageOrigin.X + p.X*scale,
		Y: pageOrigin.Y + p.Y*scale,
	}
}

// ToCanonical is the inverse of ToScreen. scale must be positive; callers get
// that guarantee from the viewport controller's clamping.
func ToCanonical(p, pageOrigin Point, scale float64) Point {
	return Point{
		X: (p.X - pageOrigin.X) / scale,
		Y: (p.Y - pageOrigin.Y) / scale,
	}
}

// ScreenRect projects a canonical rectangle (position + size) to screen
// space.
func ScreenRect(pos Point, width, height float64, pageOrigin Point, scale float64) Rect {
	origin := ToScreen(pos, pageOrigin, scale)
	return Rect{
		X:      origin.X,
		Y:      origin.Y,
		Width:  width * scale,
		Height: height * scale,
	}
}

// NormalizeRotation reduces a rotation in degrees to [0, 360). Inputs are
// expected to be multiples of 90 but any integer is handled.
func NormalizeRotation(deg int) int {
	d := deg % 360
	if d < 0 {
		d += 360
	}
	return d
}

// ApproxEqual reports whether two points are equal within tol, for
// float-tolerant comparisons of round-tripped coordinates.
func ApproxEqual(a, b Point, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}
