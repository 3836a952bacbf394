package document

import (
	"strconv"

	"github.com/inamate/logicsketch/internal/typeid"
)

const (
	gateWidth  = 60.0
	gateHeight = 40.0
)

// Gate describes a logic element placed by a Builder.
type Gate struct {
	ID      string
	Inputs  []string // input connector point IDs, top to bottom
	Output  string   // output connector point ID
	BodyID  string
	LabelID string
}

// Builder assembles documents in code, mostly for samples and tests.
type Builder struct {
	Doc *Document
}

func NewBuilder(id, name string) *Builder {
	return &Builder{Doc: NewEmptyDocument(id, name)}
}

// Point adds a free point.
func (b *Builder) Point(x, y float64) string {
	return b.Doc.AddPoint(Point{ID: typeid.NewPointID(), X: x, Y: y})
}

// Shape adds a shape of the given kind through the given points.
func (b *Builder) Shape(kind ShapeKind, points ...string) string {
	id := typeid.NewShapeID()
	b.Doc.AddShape(Shape{ID: id, Kind: kind, Points: points}, true)
	return id
}

// Rectangle adds a rectangle spanning two corners.
func (b *Builder) Rectangle(x1, y1, x2, y2 float64) string {
	return b.Shape(KindRectangle, b.Point(x1, y1), b.Point(x2, y2))
}

// Line adds a line between two existing points.
func (b *Builder) Line(start, end string) string {
	return b.Shape(KindLine, start, end)
}

// Wire connects two connector points with a line.
func (b *Builder) Wire(from, to string) string {
	return b.Line(from, to)
}

// Group wraps existing top-level shapes into a new top-level group.
func (b *Builder) Group(children ...string) string {
	id := typeid.NewShapeID()
	b.detach(children)
	b.Doc.AddShape(Shape{ID: id, Kind: KindGroup, Children: children}, true)
	return id
}

// Gate adds a logic element at (x, y) with n input pins and one output pin.
// Inverted lists input pin indexes drawn with an inversion bubble.
func (b *Builder) Gate(tag string, x, y float64, inputs int, props map[string]string, inverted ...int) Gate {
	g := Gate{ID: typeid.NewShapeID()}

	body := Shape{
		ID:     typeid.NewShapeID(),
		Kind:   KindRectangle,
		Points: []string{b.Point(x, y), b.Point(x+gateWidth, y+gateHeight)},
	}
	label := Shape{
		ID:     typeid.NewShapeID(),
		Kind:   KindText,
		Points: []string{b.Point(x+4, y+4), b.Point(x+gateWidth-4, y+gateHeight-4)},
		Properties: map[string]string{
			"Text": tag,
		},
	}
	b.Doc.AddShape(body, false)
	b.Doc.AddShape(label, false)
	g.BodyID = body.ID
	g.LabelID = label.ID

	inv := make(map[int]bool, len(inverted))
	for _, i := range inverted {
		inv[i] = true
	}

	connectors := make([]Connector, 0, inputs+1)
	step := gateHeight / float64(inputs+1)
	for i := range inputs {
		pid := b.Point(x, y+step*float64(i+1))
		g.Inputs = append(g.Inputs, pid)
		connectors = append(connectors, Connector{
			PointID:  pid,
			Name:     "in" + strconv.Itoa(i),
			Role:     RoleInput,
			Inverted: inv[i],
		})
	}
	g.Output = b.Point(x+gateWidth, y+gateHeight/2)
	connectors = append(connectors, Connector{PointID: g.Output, Name: "out", Role: RoleOutput})

	b.Doc.AddShape(Shape{
		ID:         g.ID,
		Kind:       KindGroup,
		Name:       tag,
		Tag:        tag,
		Children:   []string{body.ID, label.ID},
		Connectors: connectors,
		Properties: props,
	}, true)
	return g
}

func (b *Builder) detach(ids []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	layers := b.Doc.Layers[:0]
	for _, id := range b.Doc.Layers {
		if !drop[id] {
			layers = append(layers, id)
		}
	}
	b.Doc.Layers = layers
}
