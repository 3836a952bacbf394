// Package geometry provides the value types and polygon algorithms used by
// hit testing: points, rectangles, vectors, convex hulls and the separating
// axis test.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point2 is an immutable 2D point.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt creates a new Point2.
func Pt(x, y float64) Point2 {
	return Point2{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2) Distance(other Point2) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Add returns p translated by v.
func (p Point2) Add(v Vector2) Point2 {
	return Point2{X: p.X + v.X, Y: p.Y + v.Y}
}

// Sub returns the vector from other to p.
func (p Point2) Sub(other Point2) Vector2 {
	return Vector2{X: p.X - other.X, Y: p.Y - other.Y}
}

// Vector returns the position vector of p.
func (p Point2) Vector() Vector2 {
	return Vector2{X: p.X, Y: p.Y}
}

// Rect2 is an axis-aligned rectangle with non-negative Width and Height.
type Rect2 struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromPoints builds the rectangle spanned by two opposite corners.
func RectFromPoints(a, b Point2) Rect2 {
	x1, x2 := math.Min(a.X, b.X), math.Max(a.X, b.X)
	y1, y2 := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect2{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Rect creates a rectangle, normalizing negative sizes.
func Rect(x, y, width, height float64) Rect2 {
	return RectFromPoints(Pt(x, y), Pt(x+width, y+height))
}

// Contains checks if a point is inside the rect (edges included).
func (r Rect2) Contains(p Point2) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Intersects returns true if the two rects share any area or edge.
func (r Rect2) Intersects(other Rect2) bool {
	return r.X <= other.X+other.Width && r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height && r.Y+r.Height >= other.Y
}

// IsEmpty checks if the rect has zero area.
func (r Rect2) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect2) Union(other Rect2) Rect2 {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect2{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Inflate grows the rect by d on every side.
func (r Rect2) Inflate(d float64) Rect2 {
	return Rect(r.X-d, r.Y-d, r.Width+2*d, r.Height+2*d)
}

// Center returns the center point of the rect.
func (r Rect2) Center() Point2 {
	return Point2{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Corners returns the four corners in counter-clockwise order (Y up).
func (r Rect2) Corners() []Vector2 {
	return []Vector2{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y + r.Height},
	}
}

// BoundingRect returns the axis-aligned bounds of a point set.
func BoundingRect(points []Point2) Rect2 {
	if len(points) == 0 {
		return Rect2{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect2{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Vector2 is an immutable 2D vector used by the polygon algorithms.
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec creates a new Vector2.
func Vec(x, y float64) Vector2 {
	return Vector2{X: x, Y: y}
}

func (v Vector2) r2() r2.Vec { return r2.Vec{X: v.X, Y: v.Y} }

func fromR2(v r2.Vec) Vector2 { return Vector2{X: v.X, Y: v.Y} }

// Add returns v + other.
func (v Vector2) Add(other Vector2) Vector2 {
	return fromR2(r2.Add(v.r2(), other.r2()))
}

// Subtract returns v - other.
func (v Vector2) Subtract(other Vector2) Vector2 {
	return fromR2(r2.Sub(v.r2(), other.r2()))
}

// Scale returns v scaled by f.
func (v Vector2) Scale(f float64) Vector2 {
	return fromR2(r2.Scale(f, v.r2()))
}

// Dot returns the dot product of v and other.
func (v Vector2) Dot(other Vector2) float64 {
	return r2.Dot(v.r2(), other.r2())
}

// Cross returns the z component of the 3D cross product of v and other.
func (v Vector2) Cross(other Vector2) float64 {
	return r2.Cross(v.r2(), other.r2())
}

// Perpendicular returns v rotated by 90 degrees counter-clockwise.
func (v Vector2) Perpendicular() Vector2 {
	return Vector2{X: -v.Y, Y: v.X}
}

// Length returns the Euclidean norm of v.
func (v Vector2) Length() float64 {
	return r2.Norm(v.r2())
}

// Normalize returns the unit vector of v, or the zero vector for zero input.
func (v Vector2) Normalize() Vector2 {
	if v.X == 0 && v.Y == 0 {
		return v
	}
	return fromR2(r2.Unit(v.r2()))
}

// IsZero reports whether v is the zero vector.
func (v Vector2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Point converts v into a Point2.
func (v Vector2) Point() Point2 {
	return Point2{X: v.X, Y: v.Y}
}

// Vectors converts a point slice into vectors.
func Vectors(points []Point2) []Vector2 {
	out := make([]Vector2, len(points))
	for i, p := range points {
		out[i] = p.Vector()
	}
	return out
}
