package hittest

import (
	"math"

	"github.com/inamate/logicsketch/internal/geometry"
)

// nearestPoint returns the first of points within radius of target.
func nearestPoint(points []Point, target geometry.Point2, radius float64) (Point, bool) {
	for _, p := range points {
		if p.Distance(target) <= radius {
			return p, true
		}
	}
	return Point{}, false
}

// hullContains tests target against the convex hull of pts. Hulls that
// collapse to a segment or a single point are tested by distance.
func hullContains(pts []geometry.Vector2, target geometry.Point2, radius float64) bool {
	t := target.Vector()
	hull := geometry.ConvexHull(pts)
	switch len(hull) {
	case 0:
		return false
	case 1:
		return hull[0].Subtract(t).Length() <= radius
	case 2:
		return geometry.DistanceToSegment(t, hull[0], hull[1]) <= radius
	}

	if geometry.PointInPolygon(t, hull) {
		return true
	}
	if radius <= 0 {
		return false
	}
	for i := range hull {
		if geometry.DistanceToSegment(t, hull[i], hull[(i+1)%len(hull)]) <= radius {
			return true
		}
	}
	return false
}

// hullOverlaps tests the convex hull of pts against rect with SAT.
func hullOverlaps(pts []geometry.Vector2, rect geometry.Rect2, radius float64) bool {
	area := rect.Inflate(radius)
	hull := geometry.ConvexHull(pts)
	switch len(hull) {
	case 0:
		return false
	case 1:
		return area.Contains(hull[0].Point())
	case 2:
		return geometry.SegmentIntersectsRect(hull[0], hull[1], area)
	}
	if area.Width == 0 || area.Height == 0 {
		// A flat marquee has no area for SAT to overlap.
		c := area.Corners()
		return geometry.SegmentIntersectsPolygon(c[0], c[2], hull)
	}
	return geometry.Overlap(hull, area.Corners())
}

// PointBounds serves free points.
type PointBounds struct{}

func (PointBounds) TryToGetPoint(s Shape, target geometry.Point2, radius float64, _ *Registry) (Point, bool, error) {
	p, ok := nearestPoint(s.Points(), target, radius)
	return p, ok, nil
}

func (PointBounds) Contains(s Shape, target geometry.Point2, radius float64, _ *Registry) (bool, error) {
	_, ok := nearestPoint(s.Points(), target, radius)
	return ok, nil
}

func (PointBounds) Overlaps(s Shape, rect geometry.Rect2, radius float64, _ *Registry) (bool, error) {
	area := rect.Inflate(radius)
	for _, p := range s.Points() {
		if area.Contains(p.Point2) {
			return true, nil
		}
	}
	return false, nil
}

// LineBounds serves straight lines: hits are measured against the segment.
type LineBounds struct{}

func (LineBounds) TryToGetPoint(s Shape, target geometry.Point2, radius float64, _ *Registry) (Point, bool, error) {
	p, ok := nearestPoint(s.Points(), target, radius)
	return p, ok, nil
}

func (LineBounds) Contains(s Shape, target geometry.Point2, radius float64, _ *Registry) (bool, error) {
	return hullContains(vectors(s.Points()), target, radius), nil
}

func (LineBounds) Overlaps(s Shape, rect geometry.Rect2, radius float64, _ *Registry) (bool, error) {
	return hullOverlaps(vectors(s.Points()), rect, radius), nil
}

// BoxBounds serves shapes defined by two opposite corners: rectangles,
// text frames and images.
type BoxBounds struct{}

func boxCorners(s Shape) []geometry.Vector2 {
	pts := s.Points()
	if len(pts) < 2 {
		return vectors(pts)
	}
	return geometry.RectFromPoints(pts[0].Point2, pts[1].Point2).Corners()
}

func (BoxBounds) TryToGetPoint(s Shape, target geometry.Point2, radius float64, _ *Registry) (Point, bool, error) {
	p, ok := nearestPoint(s.Points(), target, radius)
	return p, ok, nil
}

func (BoxBounds) Contains(s Shape, target geometry.Point2, radius float64, _ *Registry) (bool, error) {
	return hullContains(boxCorners(s), target, radius), nil
}

func (BoxBounds) Overlaps(s Shape, rect geometry.Rect2, radius float64, _ *Registry) (bool, error) {
	return hullOverlaps(boxCorners(s), rect, radius), nil
}

// EllipseBounds serves ellipses inscribed in two opposite corners.
type EllipseBounds struct{}

func (EllipseBounds) TryToGetPoint(s Shape, target geometry.Point2, radius float64, _ *Registry) (Point, bool, error) {
	p, ok := nearestPoint(s.Points(), target, radius)
	return p, ok, nil
}

func (EllipseBounds) Contains(s Shape, target geometry.Point2, radius float64, _ *Registry) (bool, error) {
	pts := s.Points()
	if len(pts) < 2 {
		return hullContains(vectors(pts), target, radius), nil
	}
	r := geometry.RectFromPoints(pts[0].Point2, pts[1].Point2)
	rx, ry := r.Width/2+radius, r.Height/2+radius
	if rx <= 0 || ry <= 0 {
		return hullContains(r.Corners(), target, radius), nil
	}
	c := r.Center()
	dx, dy := (target.X-c.X)/rx, (target.Y-c.Y)/ry
	return dx*dx+dy*dy <= 1, nil
}

func (EllipseBounds) Overlaps(s Shape, rect geometry.Rect2, radius float64, _ *Registry) (bool, error) {
	pts := s.Points()
	if len(pts) < 2 {
		return hullOverlaps(vectors(pts), rect, radius), nil
	}
	r := geometry.RectFromPoints(pts[0].Point2, pts[1].Point2)
	rx, ry := r.Width/2, r.Height/2
	if rx <= 0 || ry <= 0 {
		return hullOverlaps(r.Corners(), rect, radius), nil
	}
	// Scale space so the ellipse becomes the unit circle; the rect stays
	// axis aligned and its point closest to the origin decides.
	area := rect.Inflate(radius)
	c := r.Center()
	x1, x2 := (area.X-c.X)/rx, (area.X+area.Width-c.X)/rx
	y1, y2 := (area.Y-c.Y)/ry, (area.Y+area.Height-c.Y)/ry
	dx := math.Max(x1, math.Min(0, x2))
	dy := math.Max(y1, math.Min(0, y2))
	return dx*dx+dy*dy <= 1, nil
}

// HullBounds serves curves and paths through the convex hull of their
// control points.
type HullBounds struct{}

func (HullBounds) TryToGetPoint(s Shape, target geometry.Point2, radius float64, _ *Registry) (Point, bool, error) {
	p, ok := nearestPoint(s.Points(), target, radius)
	return p, ok, nil
}

func (HullBounds) Contains(s Shape, target geometry.Point2, radius float64, _ *Registry) (bool, error) {
	return hullContains(vectors(s.Points()), target, radius), nil
}

func (HullBounds) Overlaps(s Shape, rect geometry.Rect2, radius float64, _ *Registry) (bool, error) {
	return hullOverlaps(vectors(s.Points()), rect, radius), nil
}

// GroupBounds delegates to the group's children, then to its connectors.
type GroupBounds struct{}

func children(s Shape) []Shape {
	if c, ok := s.(Container); ok {
		return c.Shapes()
	}
	return nil
}

func (GroupBounds) TryToGetPoint(s Shape, target geometry.Point2, radius float64, reg *Registry) (Point, bool, error) {
	for _, child := range children(s) {
		b, err := reg.Lookup(child.Kind())
		if err != nil {
			return Point{}, false, err
		}
		p, ok, err := b.TryToGetPoint(child, target, radius, reg)
		if err != nil || ok {
			return p, ok, err
		}
	}
	p, ok := nearestPoint(s.Points(), target, radius)
	return p, ok, nil
}

func (GroupBounds) Contains(s Shape, target geometry.Point2, radius float64, reg *Registry) (bool, error) {
	for _, child := range children(s) {
		b, err := reg.Lookup(child.Kind())
		if err != nil {
			return false, err
		}
		ok, err := b.Contains(child, target, radius, reg)
		if err != nil || ok {
			return ok, err
		}
	}
	_, ok := nearestPoint(s.Points(), target, radius)
	return ok, nil
}

func (GroupBounds) Overlaps(s Shape, rect geometry.Rect2, radius float64, reg *Registry) (bool, error) {
	for _, child := range children(s) {
		b, err := reg.Lookup(child.Kind())
		if err != nil {
			return false, err
		}
		ok, err := b.Overlaps(child, rect, radius, reg)
		if err != nil || ok {
			return ok, err
		}
	}
	return PointBounds{}.Overlaps(s, rect, radius, reg)
}
