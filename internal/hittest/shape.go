// Package hittest resolves pointer and marquee queries against diagram
// shapes. Each shape kind is served by a Bounds strategy looked up in a
// Registry; groups fan out to their children through the same registry.
package hittest

import (
	"github.com/inamate/logicsketch/internal/document"
	"github.com/inamate/logicsketch/internal/geometry"
)

// Point is a control point with its document identity.
type Point struct {
	ID string
	geometry.Point2
}

// Shape is anything hit testing can query.
type Shape interface {
	ID() string
	Kind() document.ShapeKind
	// Points returns the shape's own control points. For groups these are
	// the connector points; children expose theirs separately.
	Points() []Point
}

// Container is a shape owning child shapes.
type Container interface {
	Shape
	Shapes() []Shape
}

// Node is the Shape implementation built from a document.
type Node struct {
	id       string
	kind     document.ShapeKind
	points   []Point
	children []Shape
}

func NewNode(id string, kind document.ShapeKind, points []Point, children ...Shape) *Node {
	return &Node{id: id, kind: kind, points: points, children: children}
}

func (n *Node) ID() string               { return n.id }
func (n *Node) Kind() document.ShapeKind { return n.kind }
func (n *Node) Points() []Point          { return n.points }
func (n *Node) Shapes() []Shape          { return n.children }

// FromDocument converts the document's layers into hit-testable shapes,
// back to front.
func FromDocument(doc *document.Document) []Shape {
	shapes := make([]Shape, 0, len(doc.Layers))
	seen := make(map[string]bool, len(doc.Shapes))
	for _, id := range doc.Layers {
		if n := buildNode(doc, id, seen); n != nil {
			shapes = append(shapes, n)
		}
	}
	return shapes
}

func buildNode(doc *document.Document, id string, seen map[string]bool) *Node {
	s, ok := doc.Shapes[id]
	if !ok || seen[id] {
		return nil
	}
	seen[id] = true

	var points []Point
	if s.Kind == document.KindGroup {
		for _, c := range s.Connectors {
			points = appendPoint(points, doc, c.PointID)
		}
	} else {
		for _, pid := range s.Points {
			points = appendPoint(points, doc, pid)
		}
	}

	var children []Shape
	for _, cid := range s.Children {
		if child := buildNode(doc, cid, seen); child != nil {
			children = append(children, child)
		}
	}
	return NewNode(s.ID, s.Kind, points, children...)
}

func appendPoint(points []Point, doc *document.Document, id string) []Point {
	p, ok := doc.Points[id]
	if !ok {
		return points
	}
	return append(points, Point{ID: p.ID, Point2: geometry.Pt(p.X, p.Y)})
}

// AllPoints returns the control points of s and, for containers, of every
// descendant.
func AllPoints(s Shape) []Point {
	points := append([]Point(nil), s.Points()...)
	if c, ok := s.(Container); ok {
		for _, child := range c.Shapes() {
			points = append(points, AllPoints(child)...)
		}
	}
	return points
}

func vectors(points []Point) []geometry.Vector2 {
	out := make([]geometry.Vector2, len(points))
	for i, p := range points {
		out[i] = p.Vector()
	}
	return out
}
