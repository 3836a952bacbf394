package geometry

import "math"

// Projection is the interval covered by a polygon projected onto an axis.
type Projection struct {
	Min float64
	Max float64
}

// Overlap reports whether the two intervals share more than a single point.
func (p Projection) Overlap(other Projection) bool {
	return p.GetOverlap(other) > 0
}

// GetOverlap returns the penetration depth of the two intervals.
// The result is zero or negative when they are disjoint or only touch.
func (p Projection) GetOverlap(other Projection) float64 {
	return math.Min(p.Max, other.Max) - math.Max(p.Min, other.Min)
}

// Contains reports whether other lies entirely within p.
func (p Projection) Contains(other Projection) bool {
	return other.Min >= p.Min && other.Max <= p.Max
}

// MinimumTranslationVector is the smallest push that separates two
// overlapping convex polygons. Smallest is a unit axis pointing from the
// first polygon towards the second; Overlap is the distance along it.
type MinimumTranslationVector struct {
	Smallest Vector2
	Overlap  float64
}

// Translation returns the displacement to apply to the second polygon.
func (m MinimumTranslationVector) Translation() Vector2 {
	return m.Smallest.Scale(m.Overlap)
}

// Axes returns one unit normal per polygon edge, including the closing edge.
// Zero-length edges produce no axis.
func Axes(polygon []Vector2) []Vector2 {
	axes := make([]Vector2, 0, len(polygon))
	for i := range polygon {
		p1 := polygon[i]
		p2 := polygon[(i+1)%len(polygon)]
		normal := p2.Subtract(p1).Perpendicular().Normalize()
		if normal.IsZero() {
			continue
		}
		axes = append(axes, normal)
	}
	return axes
}

// Project projects every vertex of polygon onto axis.
func Project(polygon []Vector2, axis Vector2) Projection {
	if len(polygon) == 0 {
		return Projection{}
	}
	pmin := axis.Dot(polygon[0])
	pmax := pmin
	for _, v := range polygon[1:] {
		d := axis.Dot(v)
		if d < pmin {
			pmin = d
		} else if d > pmax {
			pmax = d
		}
	}
	return Projection{Min: pmin, Max: pmax}
}

// Overlap reports whether two convex polygons share any area.
func Overlap(a, b []Vector2) bool {
	for _, axes := range [][]Vector2{Axes(a), Axes(b)} {
		for _, axis := range axes {
			if !Project(a, axis).Overlap(Project(b, axis)) {
				return false
			}
		}
	}
	return true
}

// MinimumTranslation returns the MTV of two overlapping convex polygons.
// It returns false when a separating axis exists.
func MinimumTranslation(a, b []Vector2) (MinimumTranslationVector, bool) {
	return minimumTranslation(a, b, false)
}

// MinimumTranslationWithContainment is MinimumTranslation extended for nested
// polygons: when one projection contains the other, the smaller of the gaps
// between their boundaries is added to the overlap on that axis.
func MinimumTranslationWithContainment(a, b []Vector2) (MinimumTranslationVector, bool) {
	return minimumTranslation(a, b, true)
}

func minimumTranslation(a, b []Vector2, containment bool) (MinimumTranslationVector, bool) {
	best := MinimumTranslationVector{Overlap: math.MaxFloat64}
	found := false
	flip := false

	for _, axes := range [][]Vector2{Axes(a), Axes(b)} {
		for _, axis := range axes {
			pa := Project(a, axis)
			pb := Project(b, axis)
			if !pa.Overlap(pb) {
				return MinimumTranslationVector{}, false
			}

			o := pa.GetOverlap(pb)
			if containment && (pa.Contains(pb) || pb.Contains(pa)) {
				o += math.Min(math.Abs(pa.Min-pb.Min), math.Abs(pa.Max-pb.Max))
			}

			if o < best.Overlap {
				best = MinimumTranslationVector{Smallest: axis, Overlap: o}
				flip = pb.Min+pb.Max < pa.Min+pa.Max
				found = true
			}
		}
	}

	if !found {
		return MinimumTranslationVector{}, false
	}

	// Point the axis from a towards b.
	if flip {
		best.Smallest = best.Smallest.Scale(-1)
	}
	return best, true
}
