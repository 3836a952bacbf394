package document

import (
	"encoding/json"
	"fmt"
)

// Document is a diagram: a point table shared by shapes and a shape tree
// rooted at Layers. Shapes connect to each other by referencing the same
// point ID.
type Document struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Version   int              `json:"version"`
	CreatedAt string           `json:"createdAt"`
	UpdatedAt string           `json:"updatedAt"`
	Points    map[string]Point `json:"points"`
	Shapes    map[string]Shape `json:"shapes"`
	Layers    []string         `json:"layers"` // top-level shapes, back to front
}

type Point struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type ShapeKind string

const (
	KindPoint           ShapeKind = "Point"
	KindLine            ShapeKind = "Line"
	KindCubicBezier     ShapeKind = "CubicBezier"
	KindQuadraticBezier ShapeKind = "QuadraticBezier"
	KindArc             ShapeKind = "Arc"
	KindRectangle       ShapeKind = "Rectangle"
	KindEllipse         ShapeKind = "Ellipse"
	KindText            ShapeKind = "Text"
	KindImage           ShapeKind = "Image"
	KindPath            ShapeKind = "Path"
	KindGroup           ShapeKind = "Group"
)

type PinRole string

const (
	RoleNone   PinRole = "none"
	RoleInput  PinRole = "input"
	RoleOutput PinRole = "output"
)

// Connector is a point exposed by a group for wiring.
type Connector struct {
	PointID  string  `json:"pointId"`
	Name     string  `json:"name,omitempty"`
	Role     PinRole `json:"role"`
	Inverted bool    `json:"inverted,omitempty"`
}

type Style struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

// Shape is one element of the diagram. Points lists the control points in
// kind-specific order:
//
//	Line                       start, end
//	Rectangle/Ellipse/Text/Image  top-left, bottom-right
//	QuadraticBezier            start, control, end
//	CubicBezier/Arc            four points
//	Path, Point                any number of points
//
// Groups own Children and may expose Connectors. A group with a Tag is a
// logic element; Properties parametrize it ("Delay", "Unit", "Counter", "State").
type Shape struct {
	ID         string            `json:"id"`
	Kind       ShapeKind         `json:"kind"`
	Name       string            `json:"name,omitempty"`
	Tag        string            `json:"tag,omitempty"`
	Points     []string          `json:"points,omitempty"`
	Children   []string          `json:"children,omitempty"`
	Connectors []Connector       `json:"connectors,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Style      Style             `json:"style"`
}

// NewEmptyDocument creates an empty document.
func NewEmptyDocument(id, name string) *Document {
	return &Document{
		ID:      id,
		Name:    name,
		Version: 1,
		Points:  map[string]Point{},
		Shapes:  map[string]Shape{},
		Layers:  []string{},
	}
}

// Parse decodes a document from JSON and checks its references.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Points == nil {
		doc.Points = map[string]Point{}
	}
	if doc.Shapes == nil {
		doc.Shapes = map[string]Shape{}
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate reports the first dangling point or shape reference.
func (d *Document) Validate() error {
	for _, id := range d.Layers {
		if _, ok := d.Shapes[id]; !ok {
			return fmt.Errorf("%w: layer references shape %q", ErrDanglingReference, id)
		}
	}
	for _, s := range d.Shapes {
		for _, pid := range s.Points {
			if _, ok := d.Points[pid]; !ok {
				return fmt.Errorf("%w: shape %q references point %q", ErrDanglingReference, s.ID, pid)
			}
		}
		for _, c := range s.Connectors {
			if _, ok := d.Points[c.PointID]; !ok {
				return fmt.Errorf("%w: shape %q connector references point %q", ErrDanglingReference, s.ID, c.PointID)
			}
		}
		for _, cid := range s.Children {
			if _, ok := d.Shapes[cid]; !ok {
				return fmt.Errorf("%w: group %q references shape %q", ErrDanglingReference, s.ID, cid)
			}
		}
	}
	return nil
}

// Walk visits every shape reachable from Layers depth-first in document
// order. Returning false from fn skips the shape's children.
func (d *Document) Walk(fn func(s Shape) bool) {
	seen := make(map[string]bool, len(d.Shapes))
	var visit func(id string)
	visit = func(id string) {
		s, ok := d.Shapes[id]
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		if !fn(s) {
			return
		}
		for _, cid := range s.Children {
			visit(cid)
		}
	}
	for _, id := range d.Layers {
		visit(id)
	}
}

// AddPoint inserts a point and returns its ID.
func (d *Document) AddPoint(p Point) string {
	d.Points[p.ID] = p
	return p.ID
}

// AddShape inserts a shape. Top-level shapes are appended to Layers.
func (d *Document) AddShape(s Shape, topLevel bool) {
	d.Shapes[s.ID] = s
	if topLevel {
		d.Layers = append(d.Layers, s.ID)
	}
}

// Property returns a named property of the shape.
func (s Shape) Property(name string) (string, bool) {
	v, ok := s.Properties[name]
	return v, ok
}
