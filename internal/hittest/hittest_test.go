package hittest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/logicsketch/internal/document"
	"github.com/inamate/logicsketch/internal/geometry"
)

func pts(coords ...float64) []Point {
	out := make([]Point, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		out = append(out, Point{ID: string(rune('a' + i/2)), Point2: geometry.Pt(coords[i], coords[i+1])})
	}
	return out
}

func TestUnregisteredKindFailsFast(t *testing.T) {
	reg := NewRegistry()
	s := NewNode("s1", document.KindLine, pts(0, 0, 10, 10))

	_, err := reg.Contains(s, geometry.Pt(5, 5), 1, 1)
	require.ErrorIs(t, err, ErrUnregisteredKind)

	_, _, err = reg.TryToGetPoint(s, geometry.Pt(0, 0), 1, 1)
	require.ErrorIs(t, err, ErrUnregisteredKind)

	_, err = reg.TryToGetShapes([]Shape{s}, geometry.Rect(0, 0, 1, 1), 0, 1)
	require.ErrorIs(t, err, ErrUnregisteredKind)
}

func TestUnregisteredChildSurfacesThroughGroup(t *testing.T) {
	reg := NewRegistry()
	reg.Register(document.KindGroup, GroupBounds{})
	child := NewNode("c", document.KindPath, pts(0, 0, 10, 0, 5, 5))
	group := NewNode("g", document.KindGroup, nil, child)

	_, err := reg.Contains(group, geometry.Pt(5, 1), 0, 1)
	require.ErrorIs(t, err, ErrUnregisteredKind)
}

func TestDefaultRegistryCoversAllKinds(t *testing.T) {
	reg := NewDefaultRegistry()
	for _, k := range []document.ShapeKind{
		document.KindPoint, document.KindLine, document.KindCubicBezier,
		document.KindQuadraticBezier, document.KindArc, document.KindRectangle,
		document.KindEllipse, document.KindText, document.KindImage,
		document.KindPath, document.KindGroup,
	} {
		_, err := reg.Lookup(k)
		assert.NoError(t, err, k)
	}
	assert.Len(t, reg.Kinds(), 11)
}

func TestRectangleContains(t *testing.T) {
	reg := NewDefaultRegistry()
	rect := NewNode("r", document.KindRectangle, pts(0, 0, 100, 50))

	inside, err := reg.Contains(rect, geometry.Pt(50, 25), 0, 1)
	require.NoError(t, err)
	assert.True(t, inside)

	outside, err := reg.Contains(rect, geometry.Pt(150, 25), 0, 1)
	require.NoError(t, err)
	assert.False(t, outside)

	first, _ := reg.Contains(rect, geometry.Pt(0, 25), 0, 1)
	for range 3 {
		again, _ := reg.Contains(rect, geometry.Pt(0, 25), 0, 1)
		assert.Equal(t, first, again)
	}

	near, err := reg.Contains(rect, geometry.Pt(103, 25), 4, 1)
	require.NoError(t, err)
	assert.True(t, near, "radius extends the hit area")

	zoomed, err := reg.Contains(rect, geometry.Pt(103, 25), 4, 2)
	require.NoError(t, err)
	assert.False(t, zoomed, "radius shrinks with scale")
}

func TestLineContains(t *testing.T) {
	reg := NewDefaultRegistry()
	line := NewNode("l", document.KindLine, pts(0, 0, 100, 0))

	tests := []struct {
		name   string
		target geometry.Point2
		radius float64
		want   bool
	}{
		{"on segment", geometry.Pt(50, 0), 0, true},
		{"within radius", geometry.Pt(50, 3), 4, true},
		{"outside radius", geometry.Pt(50, 5), 4, false},
		{"past end", geometry.Pt(106, 0), 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Contains(line, tt.target, tt.radius, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTryToGetPoint(t *testing.T) {
	reg := NewDefaultRegistry()
	line := NewNode("l", document.KindLine, pts(0, 0, 100, 0))

	p, ok, err := reg.TryToGetPoint(line, geometry.Pt(98, 1), 5, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", p.ID)

	_, ok, err = reg.TryToGetPoint(line, geometry.Pt(50, 0), 5, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEllipseContains(t *testing.T) {
	reg := NewDefaultRegistry()
	e := NewNode("e", document.KindEllipse, pts(0, 0, 100, 50))

	ok, _ := reg.Contains(e, geometry.Pt(50, 25), 0, 1)
	assert.True(t, ok)
	ok, _ = reg.Contains(e, geometry.Pt(2, 2), 0, 1)
	assert.False(t, ok, "bounding box corner is outside the ellipse")

	ok, _ = reg.Overlaps(e, geometry.Rect(0, 0, 5, 5), 0, 1)
	assert.False(t, ok)
	ok, _ = reg.Overlaps(e, geometry.Rect(40, -10, 20, 20), 0, 1)
	assert.True(t, ok)
}

func TestOverlapsUsesHull(t *testing.T) {
	reg := NewDefaultRegistry()
	path := NewNode("p", document.KindPath, pts(0, 0, 10, 0, 10, 10, 0, 10, 5, 5))

	ok, err := reg.Overlaps(path, geometry.Rect(8, 8, 10, 10), 0, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.Overlaps(path, geometry.Rect(20, 20, 5, 5), 0, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = reg.Overlaps(path, geometry.Rect(2, 2, 1, 1), 0, 1)
	require.NoError(t, err)
	assert.True(t, ok, "rect nested in the hull overlaps")
}

func TestOverlapsFlatRect(t *testing.T) {
	reg := NewDefaultRegistry()
	box := NewNode("r", document.KindRectangle, pts(0, 0, 100, 100))
	tri := NewNode("t", document.KindPath, pts(0, 0, 100, 0, 50, 100))

	tests := []struct {
		name  string
		shape Shape
		rect  geometry.Rect2
		want  bool
	}{
		{"horizontal line inside box", box, geometry.Rect(10, 40, 80, 0), true},
		{"vertical line inside box", box, geometry.Rect(40, 10, 0, 80), true},
		{"point inside box", box, geometry.Rect(50, 50, 0, 0), true},
		{"line crossing triangle", tri, geometry.Rect(10, 40, 80, 0), true},
		{"point inside triangle", tri, geometry.Rect(50, 20, 0, 0), true},
		{"line beside box", box, geometry.Rect(200, 40, 80, 0), false},
		{"point outside triangle", tri, geometry.Rect(5, 90, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := reg.Overlaps(tt.shape, tt.rect, 0, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestDegenerateShapesDoNotPanic(t *testing.T) {
	reg := NewDefaultRegistry()
	for _, s := range []Shape{
		NewNode("empty", document.KindPath, nil),
		NewNode("single", document.KindPath, pts(5, 5)),
		NewNode("collinear", document.KindCubicBezier, pts(0, 0, 5, 5, 10, 10, 20, 20)),
		NewNode("flat", document.KindRectangle, pts(0, 0, 10, 0)),
	} {
		_, err := reg.Contains(s, geometry.Pt(5, 5), 1, 1)
		assert.NoError(t, err, s.ID())
		_, err = reg.Overlaps(s, geometry.Rect(0, 0, 3, 3), 1, 1)
		assert.NoError(t, err, s.ID())
	}

	ok, _ := reg.Contains(NewNode("collinear", document.KindArc, pts(0, 0, 5, 5, 10, 10)), geometry.Pt(7, 7), 0.5, 1)
	assert.True(t, ok)
}

func TestGroupDelegatesToChildren(t *testing.T) {
	reg := NewDefaultRegistry()
	r1 := NewNode("r1", document.KindRectangle, pts(0, 0, 10, 10))
	r2 := NewNode("r2", document.KindRectangle, pts(100, 100, 110, 110))
	connector := []Point{{ID: "pin", Point2: geometry.Pt(50, 50)}}
	group := NewNode("g", document.KindGroup, connector, r1, r2)

	ok, err := reg.Contains(group, geometry.Pt(105, 105), 0, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.Contains(group, geometry.Pt(50, 10), 0, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	p, ok, err := reg.TryToGetPoint(group, geometry.Pt(51, 50), 2, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pin", p.ID)

	p, ok, err = reg.TryToGetPoint(group, geometry.Pt(10, 10), 1, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", p.ID, "children are searched before connectors")

	ok, err = reg.Overlaps(group, geometry.Rect(45, 45, 10, 10), 0, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Len(t, AllPoints(group), 5)
}

func TestBatchQueries(t *testing.T) {
	reg := NewDefaultRegistry()
	back := NewNode("back", document.KindRectangle, pts(0, 0, 100, 100))
	front := NewNode("front", document.KindRectangle, pts(40, 40, 60, 60))
	far := NewNode("far", document.KindRectangle, pts(200, 200, 210, 210))
	shapes := []Shape{front, back, far}

	hit, err := reg.TryToGetShape(shapes, geometry.Pt(50, 50), 0, 1)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "front", hit.ID())

	hit, err = reg.TryToGetShape(shapes, geometry.Pt(150, 150), 0, 1)
	require.NoError(t, err)
	assert.Nil(t, hit)

	selected, err := reg.TryToGetShapes(append(shapes, front), geometry.Rect(30, 30, 20, 20), 0, 1)
	require.NoError(t, err)
	ids := make([]string, len(selected))
	for i, s := range selected {
		ids[i] = s.ID()
	}
	assert.Equal(t, []string{"front", "back"}, ids)

	p, ok, err := reg.TryToGetConnectionPoint(shapes, geometry.Pt(201, 201), 3, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", p.ID)
}

func TestFromDocument(t *testing.T) {
	b := document.NewBuilder("doc", "test")
	g := b.Gate("AND", 0, 0, 2, nil)
	b.Rectangle(100, 100, 120, 120)

	shapes := FromDocument(b.Doc)
	require.Len(t, shapes, 2)
	assert.Equal(t, g.ID, shapes[0].ID())
	assert.Len(t, shapes[0].Points(), 3, "group exposes its connectors")

	container, ok := shapes[0].(Container)
	require.True(t, ok)
	assert.Len(t, container.Shapes(), 2)

	reg := NewDefaultRegistry()
	hit, err := reg.TryToGetShape(shapes, geometry.Pt(30, 20), 0, 1)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, g.ID, hit.ID())
}
