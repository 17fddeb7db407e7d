// Package geometry provides the small value types shared by layout and
// rendering: sizes, points and frames in device-independent pixels.
package geometry

import "math"

// epsilon is the tolerance for floating-point comparisons.
const epsilon = 0.0001

// Point represents a 2D point or offset in pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Add returns the component-wise sum of two points.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Size represents width and height dimensions in pixels.
//
// Either dimension may be NaN, which layout interprets as "let the content
// decide" (wrap content). Use Undefined to construct such a value.
type Size struct {
	Width  float64
	Height float64
}

// Undefined is the size value meaning "no constraint in either dimension".
func Undefined() Size {
	return Size{Width: math.NaN(), Height: math.NaN()}
}

// IsEmpty reports whether either dimension is zero or negative.
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Frame is a node's computed layout box. The origin is relative to the
// node's parent unless the parent was flattened, in which case the parent's
// offset has been folded in.
type Frame struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// FrameFromSize constructs a frame at the origin with the given size.
func FrameFromSize(size Size) Frame {
	return Frame{Width: size.Width, Height: size.Height}
}

// Offset returns the frame translated by the given point.
func (f Frame) Offset(by Point) Frame {
	return Frame{X: f.X + by.X, Y: f.Y + by.Y, Width: f.Width, Height: f.Height}
}

// Origin returns the frame's top-left corner.
func (f Frame) Origin() Point {
	return Point{X: f.X, Y: f.Y}
}

// Size returns the frame's dimensions.
func (f Frame) Size() Size {
	return Size{Width: f.Width, Height: f.Height}
}

// Equal reports whether two frames match within floating-point tolerance.
func (f Frame) Equal(other Frame) bool {
	return floatEqual(f.X, other.X) &&
		floatEqual(f.Y, other.Y) &&
		floatEqual(f.Width, other.Width) &&
		floatEqual(f.Height, other.Height)
}

// floatEqual returns true if two float64 values are approximately equal.
func floatEqual(a, b float64) bool {
	return math.Abs(a-b) <= epsilon
}
