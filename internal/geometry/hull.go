package geometry

import (
	"sort"

	"github.com/samber/lo"
)

// ConvexHull computes the convex hull of points with Andrew's monotone chain.
// The hull is counter-clockwise (Y up), starts at the lowest-x point and
// drops collinear and duplicate points. Degenerate input yields the minimal
// hull: no points, a single point, or the two ends of a segment.
// The input slice is not modified.
// https://en.wikibooks.org/wiki/Algorithm_Implementation/Geometry/Convex_hull/Monotone_chain
func ConvexHull(points []Vector2) []Vector2 {
	pts := append([]Vector2(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X == pts[j].X {
			return pts[i].Y < pts[j].Y
		}
		return pts[i].X < pts[j].X
	})
	pts = lo.Uniq(pts)

	n := len(pts)
	if n <= 2 {
		return pts
	}

	cross := func(o, a, b Vector2) float64 {
		return a.Subtract(o).Cross(b.Subtract(o))
	}

	lower := make([]Vector2, 0, n)
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	upper := make([]Vector2, 0, n)
	for i := n - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}
