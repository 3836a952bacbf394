package hittest

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/inamate/logicsketch/internal/document"
	"github.com/inamate/logicsketch/internal/geometry"
)

// ErrUnregisteredKind is returned when a shape kind has no Bounds strategy.
var ErrUnregisteredKind = errors.New("no bounds registered for shape kind")

// Bounds is the per-kind hit-test strategy. Radius is already converted to
// document units. Strategies for composite kinds use reg to reach their
// children's strategies.
type Bounds interface {
	TryToGetPoint(s Shape, target geometry.Point2, radius float64, reg *Registry) (Point, bool, error)
	Contains(s Shape, target geometry.Point2, radius float64, reg *Registry) (bool, error)
	Overlaps(s Shape, rect geometry.Rect2, radius float64, reg *Registry) (bool, error)
}

// Registry maps shape kinds to their Bounds. Populate it before the first
// query; afterwards it is read-only and safe to share.
type Registry struct {
	bounds map[document.ShapeKind]Bounds
}

func NewRegistry() *Registry {
	return &Registry{bounds: make(map[document.ShapeKind]Bounds)}
}

// NewDefaultRegistry returns a registry covering every document shape kind.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(document.KindPoint, PointBounds{})
	r.Register(document.KindLine, LineBounds{})
	r.Register(document.KindRectangle, BoxBounds{})
	r.Register(document.KindText, BoxBounds{})
	r.Register(document.KindImage, BoxBounds{})
	r.Register(document.KindEllipse, EllipseBounds{})
	r.Register(document.KindCubicBezier, HullBounds{})
	r.Register(document.KindQuadraticBezier, HullBounds{})
	r.Register(document.KindArc, HullBounds{})
	r.Register(document.KindPath, HullBounds{})
	r.Register(document.KindGroup, GroupBounds{})
	return r
}

// Register installs b for kind, replacing any previous strategy.
func (r *Registry) Register(kind document.ShapeKind, b Bounds) {
	r.bounds[kind] = b
}

// Kinds lists the registered kinds.
func (r *Registry) Kinds() []document.ShapeKind {
	return lo.Keys(r.bounds)
}

// Lookup returns the strategy for kind.
func (r *Registry) Lookup(kind document.ShapeKind) (Bounds, error) {
	b, ok := r.bounds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnregisteredKind, kind)
	}
	return b, nil
}

// TryToGetPoint returns the first control point of s within radius/scale
// of target.
func (r *Registry) TryToGetPoint(s Shape, target geometry.Point2, radius, scale float64) (Point, bool, error) {
	b, err := r.Lookup(s.Kind())
	if err != nil {
		return Point{}, false, err
	}
	return b.TryToGetPoint(s, target, effectiveRadius(radius, scale), r)
}

// Contains reports whether target falls within the hit area of s.
func (r *Registry) Contains(s Shape, target geometry.Point2, radius, scale float64) (bool, error) {
	b, err := r.Lookup(s.Kind())
	if err != nil {
		return false, err
	}
	return b.Contains(s, target, effectiveRadius(radius, scale), r)
}

// Overlaps reports whether s intersects rect.
func (r *Registry) Overlaps(s Shape, rect geometry.Rect2, radius, scale float64) (bool, error) {
	b, err := r.Lookup(s.Kind())
	if err != nil {
		return false, err
	}
	return b.Overlaps(s, rect, effectiveRadius(radius, scale), r)
}

// TryToGetConnectionPoint returns the first control point near target
// across shapes, in the order given.
func (r *Registry) TryToGetConnectionPoint(shapes []Shape, target geometry.Point2, radius, scale float64) (Point, bool, error) {
	for _, s := range shapes {
		p, ok, err := r.TryToGetPoint(s, target, radius, scale)
		if err != nil {
			return Point{}, false, err
		}
		if ok {
			return p, true, nil
		}
	}
	return Point{}, false, nil
}

// TryToGetShape returns the first shape, in the order given, that has a
// control point near target or contains it. It returns nil when none does.
func (r *Registry) TryToGetShape(shapes []Shape, target geometry.Point2, radius, scale float64) (Shape, error) {
	for _, s := range shapes {
		if _, ok, err := r.TryToGetPoint(s, target, radius, scale); err != nil {
			return nil, err
		} else if ok {
			return s, nil
		}

		ok, err := r.Contains(s, target, radius, scale)
		if err != nil {
			return nil, err
		}
		if ok {
			return s, nil
		}
	}
	return nil, nil
}

// TryToGetShapes returns every shape overlapping rect, once each, in the
// order encountered.
func (r *Registry) TryToGetShapes(shapes []Shape, rect geometry.Rect2, radius, scale float64) ([]Shape, error) {
	var matches []Shape
	for _, s := range shapes {
		ok, err := r.Overlaps(s, rect, radius, scale)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, s)
		}
	}
	return lo.UniqBy(matches, func(s Shape) string { return s.ID() }), nil
}

func effectiveRadius(radius, scale float64) float64 {
	if scale <= 0 {
		scale = 1
	}
	return radius / scale
}
