package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/logicsketch/internal/document"
	"github.com/inamate/logicsketch/internal/geometry"
	"github.com/inamate/logicsketch/internal/simulation"
)

func newSampleEngine(t *testing.T) (*Engine, map[string]document.Shape) {
	t.Helper()
	e, err := New(Options{})
	require.NoError(t, err)
	e.LoadSampleDocument()

	byName := make(map[string]document.Shape)
	for _, s := range e.Document().Shapes {
		if s.Tag != "" {
			byName[s.Name] = s
		}
	}
	return e, byName
}

func outputOf(s document.Shape) string {
	for _, c := range s.Connectors {
		if c.Role == document.RoleOutput {
			return c.PointID
		}
	}
	return ""
}

func TestNoDocument(t *testing.T) {
	e, err := New(Options{})
	require.NoError(t, err)

	_, err = e.HitTest(0, 0)
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.ErrorIs(t, e.Tick(), ErrNoDocument)
	assert.ErrorIs(t, e.Run(5), ErrNoDocument)
	assert.Empty(t, e.States())
}

func TestNewRejectsBadResolution(t *testing.T) {
	_, err := New(Options{Resolution: -1})
	assert.ErrorIs(t, err, simulation.ErrInvalidResolution)
}

func TestHitTest(t *testing.T) {
	e, gates := newSampleEngine(t)
	frame := e.Document().Layers[0]

	id, err := e.HitTest(230, 80)
	require.NoError(t, err)
	assert.Equal(t, gates["Q"].ID, id)

	id, err = e.HitTest(400, 150)
	require.NoError(t, err)
	assert.Equal(t, frame, id)

	id, err = e.HitTest(10, 10)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestHitTestFollowsView(t *testing.T) {
	e, gates := newSampleEngine(t)
	e.SetView(View{Zoom: 2, PanX: 10, PanY: 0})

	id, err := e.HitTest(470, 160)
	require.NoError(t, err)
	assert.Equal(t, gates["Q"].ID, id)
}

func TestHitTestPoint(t *testing.T) {
	e, gates := newSampleEngine(t)

	id, err := e.HitTestPoint(261, 80)
	require.NoError(t, err)
	assert.Equal(t, outputOf(gates["Q"]), id)

	id, err = e.HitTestPoint(150, 20)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestSelectRect(t *testing.T) {
	e, gates := newSampleEngine(t)
	frame := e.Document().Layers[0]

	ids, err := e.SelectRect(geometry.Rect(190, 50, 80, 60))
	require.NoError(t, err)
	require.Contains(t, ids, gates["Q"].ID)
	require.Contains(t, ids, frame)
	assert.NotContains(t, ids, gates["S"].ID)
	assert.Equal(t, frame, ids[len(ids)-1])
	assert.Equal(t, ids, e.Selection())
}

func TestSelectionBounds(t *testing.T) {
	e, gates := newSampleEngine(t)
	assert.Equal(t, geometry.Rect2{}, e.SelectionBounds())

	e.SetSelection([]string{gates["Q"].ID})
	assert.Equal(t, geometry.Rect(200, 60, 60, 40), e.SelectionBounds())

	e.SetSelection([]string{gates["Q"].ID, gates["Qn"].ID})
	assert.Equal(t, geometry.Rect(200, 60, 60, 140), e.SelectionBounds())
}

func TestSimulateLatch(t *testing.T) {
	e, gates := newSampleEngine(t)
	q, qn := gates["Q"].ID, gates["Qn"].ID

	require.NoError(t, e.Run(2))
	assert.Equal(t, simulation.Unknown, e.States()[q])
	assert.Equal(t, int64(2), e.Cycle())
	assert.Empty(t, e.Warnings())

	require.NoError(t, e.SetSignal(gates["S"].ID, simulation.True))
	require.NoError(t, e.Run(3))
	require.NoError(t, e.SetSignal(gates["S"].ID, simulation.False))
	require.NoError(t, e.Run(3))

	states := e.States()
	assert.Equal(t, simulation.True, states[q])
	assert.Equal(t, simulation.False, states[qn])

	v, err := e.ToggleSignal(gates["R"].ID)
	require.NoError(t, err)
	assert.Equal(t, simulation.True, v)
	require.NoError(t, e.Run(3))
	_, err = e.ToggleSignal(gates["R"].ID)
	require.NoError(t, err)
	require.NoError(t, e.Run(3))

	states = e.States()
	assert.Equal(t, simulation.False, states[q])
	assert.Equal(t, simulation.True, states[qn])

	require.NoError(t, e.Reset())
	assert.Equal(t, int64(0), e.Cycle())
	assert.Equal(t, simulation.Unknown, e.States()[q])
}

func TestSignalErrors(t *testing.T) {
	e, gates := newSampleEngine(t)

	err := e.SetSignal(gates["Q"].ID, simulation.True)
	assert.ErrorIs(t, err, ErrNotSignal)

	_, err = e.ToggleSignal("shape_missing")
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestCompileErrorsAndWarnings(t *testing.T) {
	e, err := New(Options{})
	require.NoError(t, err)

	b := document.NewBuilder("doc", "broken")
	b.Gate(simulation.KeyOr, 0, 0, 2, map[string]string{"Counter": "0"})
	e.SetDocument(b.Doc)
	assert.ErrorIs(t, e.Compile(), simulation.ErrInvalidCounter)

	b = document.NewBuilder("doc", "partial")
	b.Gate("LASER", 0, 0, 1, nil)
	b.Gate(simulation.KeyNot, 100, 0, 1, nil)
	e.SetDocument(b.Doc)
	require.NoError(t, e.Tick())
	assert.Len(t, e.Warnings(), 1)
	assert.Len(t, e.States(), 1)
}

func TestLoadDocument(t *testing.T) {
	e, err := New(Options{})
	require.NoError(t, err)

	assert.ErrorIs(t, e.LoadDocument([]byte(`{"id":"d","layers":["nope"]}`)), document.ErrDanglingReference)
	assert.Error(t, e.LoadDocument([]byte(`{`)))

	b := document.NewBuilder("doc", "one")
	rect := b.Rectangle(0, 0, 10, 10)
	data, err := json.Marshal(b.Doc)
	require.NoError(t, err)
	require.NoError(t, e.LoadDocument(data))

	id, err := e.HitTest(5, 5)
	require.NoError(t, err)
	assert.Equal(t, rect, id)
}

func TestUpdateDocumentKeepsSimulation(t *testing.T) {
	e, gates := newSampleEngine(t)
	require.NoError(t, e.SetSignal(gates["S"].ID, simulation.True))
	require.NoError(t, e.Run(3))
	e.SetSelection([]string{gates["Q"].ID, "gone"})

	// Move the Q gate body out of the way.
	doc := e.Document()
	body := doc.Shapes[gates["Q"].Children[0]]
	for _, pid := range body.Points {
		p := doc.Points[pid]
		p.X += 1000
		doc.Points[pid] = p
	}
	e.UpdateDocument(doc)

	assert.Equal(t, int64(3), e.Cycle())
	assert.Equal(t, simulation.True, e.States()[gates["Q"].ID])
	assert.Equal(t, []string{gates["Q"].ID}, e.Selection())

	id, err := e.HitTest(1230, 80)
	require.NoError(t, err)
	assert.Equal(t, gates["Q"].ID, id)
}

func TestViewRoundTrip(t *testing.T) {
	v := View{Zoom: 4, PanX: 100, PanY: -20}
	p := geometry.Pt(12, 7)
	screen := v.Matrix().TransformPoint(p)
	assert.Equal(t, geometry.Pt(148, 8), screen)

	back := v.ToDocument(screen)
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)

	assert.True(t, DefaultView().Matrix().IsIdentity())
	assert.True(t, Identity().Invert().IsIdentity())
}
