package engine

import (
	"math"

	"github.com/inamate/logicsketch/internal/geometry"
)

// Matrix2D is a 2D affine transformation matrix.
// Layout: [a, b, c, d, e, f] representing:
// | a  c  e |
// | b  d  f |
// | 0  0  1 |
type Matrix2D [6]float64

// Identity returns the identity matrix.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

// Scale returns a scale matrix.
func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// Multiply returns m * other: other is applied first.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

// TransformPoint applies the matrix to a point.
func (m Matrix2D) TransformPoint(p geometry.Point2) geometry.Point2 {
	return geometry.Pt(m[0]*p.X+m[2]*p.Y+m[4], m[1]*p.X+m[3]*p.Y+m[5])
}

// TransformRect transforms a rectangle and returns its axis-aligned bounds.
func (m Matrix2D) TransformRect(r geometry.Rect2) geometry.Rect2 {
	corners := r.Corners()
	points := make([]geometry.Point2, len(corners))
	for i, c := range corners {
		points[i] = m.TransformPoint(c.Point())
	}
	return geometry.BoundingRect(points)
}

func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invert returns the inverse of the matrix, or Identity if not invertible.
func (m Matrix2D) Invert() Matrix2D {
	det := m.Determinant()
	if det == 0 {
		return Identity()
	}

	invDet := 1.0 / det
	return Matrix2D{
		m[3] * invDet,
		-m[1] * invDet,
		-m[2] * invDet,
		m[0] * invDet,
		(m[2]*m[5] - m[3]*m[4]) * invDet,
		(m[1]*m[4] - m[0]*m[5]) * invDet,
	}
}

// IsIdentity checks if this is the identity matrix (within epsilon).
func (m Matrix2D) IsIdentity() bool {
	const eps = 1e-10
	return math.Abs(m[0]-1) < eps &&
		math.Abs(m[1]) < eps &&
		math.Abs(m[2]) < eps &&
		math.Abs(m[3]-1) < eps &&
		math.Abs(m[4]) < eps &&
		math.Abs(m[5]) < eps
}

// View maps document coordinates to screen coordinates: a uniform zoom
// followed by a pan.
type View struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

// DefaultView shows the document unscaled.
func DefaultView() View {
	return View{Zoom: 1}
}

// Matrix returns the document-to-screen transform.
func (v View) Matrix() Matrix2D {
	zoom := v.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return Translate(v.PanX, v.PanY).Multiply(Scale(zoom, zoom))
}

// ToDocument converts a screen point to document coordinates.
func (v View) ToDocument(p geometry.Point2) geometry.Point2 {
	return v.Matrix().Invert().TransformPoint(p)
}

// RectToDocument converts a screen rectangle to document coordinates.
func (v View) RectToDocument(r geometry.Rect2) geometry.Rect2 {
	return v.Matrix().Invert().TransformRect(r)
}
