package geometry

// PointInPolygon tests whether p is inside polygon by ray casting. The
// polygon is closed implicitly by the edge from its last vertex to its first.
// Polygons with fewer than 3 vertices contain nothing.
func PointInPolygon(p Vector2, polygon []Vector2) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	for i := range polygon {
		p0, p1 := polygon[i], polygon[(i+1)%len(polygon)]
		if (p0.Y <= p.Y && p.Y < p1.Y) || (p1.Y <= p.Y && p.Y < p0.Y) {
			x := p0.X + (p.Y-p0.Y)*(p1.X-p0.X)/(p1.Y-p0.Y)
			if x > p.X {
				inside = !inside
			}
		}
	}
	return inside
}

// DistanceToSegment returns the minimum distance between p and segment ab.
func DistanceToSegment(p, a, b Vector2) float64 {
	ab := b.Subtract(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Subtract(a).Length()
	}
	t := min(max(p.Subtract(a).Dot(ab)/l2, 0), 1)
	proj := a.Add(ab.Scale(t))
	return p.Subtract(proj).Length()
}

// SegmentIntersectsRect reports whether segment ab touches rect r.
func SegmentIntersectsRect(a, b Vector2, r Rect2) bool {
	if r.Contains(a.Point()) || r.Contains(b.Point()) {
		return true
	}
	corners := r.Corners()
	for i := range corners {
		if segmentsIntersect(a, b, corners[i], corners[(i+1)%len(corners)]) {
			return true
		}
	}
	return false
}

func segmentsIntersect(p1, p2, p3, p4 Vector2) bool {
	d1 := p4.Subtract(p3).Cross(p1.Subtract(p3))
	d2 := p4.Subtract(p3).Cross(p2.Subtract(p3))
	d3 := p2.Subtract(p1).Cross(p3.Subtract(p1))
	d4 := p2.Subtract(p1).Cross(p4.Subtract(p1))
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(p3, p4, p1)) || (d2 == 0 && onSegment(p3, p4, p2)) ||
		(d3 == 0 && onSegment(p1, p2, p3)) || (d4 == 0 && onSegment(p1, p2, p4))
}

func onSegment(a, b, p Vector2) bool {
	return min(a.X, b.X) <= p.X && p.X <= max(a.X, b.X) &&
		min(a.Y, b.Y) <= p.Y && p.Y <= max(a.Y, b.Y)
}

// SegmentIntersectsPolygon reports whether segment ab touches the closed
// polygon, either crossing an edge or lying inside it. A zero-length segment
// is a point test.
func SegmentIntersectsPolygon(a, b Vector2, polygon []Vector2) bool {
	if len(polygon) < 3 {
		return false
	}
	if PointInPolygon(a, polygon) || PointInPolygon(b, polygon) {
		return true
	}
	for i := range polygon {
		if segmentsIntersect(a, b, polygon[i], polygon[(i+1)%len(polygon)]) {
			return true
		}
	}
	return false
}
