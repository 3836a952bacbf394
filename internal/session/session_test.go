package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/logicsketch/internal/document"
	"github.com/inamate/logicsketch/internal/engine"
	"github.com/inamate/logicsketch/internal/geometry"
	"github.com/inamate/logicsketch/internal/simulation"
)

func gatesByName(doc *document.Document) map[string]document.Shape {
	out := make(map[string]document.Shape)
	for _, s := range doc.Shapes {
		if s.Tag != "" {
			out[s.Name] = s
		}
	}
	return out
}

func strPtr(s string) *string { return &s }

func newSampleRoom(t *testing.T) (*Room, map[string]document.Shape) {
	t.Helper()
	doc := document.NewSampleDocument()
	room, err := NewRoom(doc.ID, doc, engine.Options{})
	require.NoError(t, err)
	return room, gatesByName(doc)
}

func TestDocumentStateMove(t *testing.T) {
	doc := document.NewSampleDocument()
	ds := NewDocumentState(doc)
	var pid string
	for id := range doc.Points {
		pid = id
		break
	}

	seq, rewired, err := ds.ApplyOperation(Operation{ID: "op1", Type: "point.move", PointID: pid, X: 5, Y: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
	assert.False(t, rewired)
	assert.True(t, ds.Dirty())
	assert.Equal(t, 5.0, doc.Points[pid].X)
	assert.Equal(t, 2, doc.Version)

	ds.MarkSaved()
	assert.False(t, ds.Dirty())
}

func TestDocumentStateRejects(t *testing.T) {
	ds := NewDocumentState(document.NewSampleDocument())

	_, _, err := ds.ApplyOperation(Operation{Type: "shape.teleport"})
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, _, err = ds.ApplyOperation(Operation{Type: "point.move", PointID: "pt_missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = ds.ApplyOperation(Operation{Type: "shape.style", ShapeID: "shape_missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, int64(0), ds.Seq())
	assert.False(t, ds.Dirty())
}

func TestDocumentStateProperty(t *testing.T) {
	doc := document.NewSampleDocument()
	ds := NewDocumentState(doc)
	pulse := gatesByName(doc)["TIMER-PULSE"]

	_, rewired, err := ds.ApplyOperation(Operation{Type: "shape.property", ShapeID: pulse.ID, Key: "Delay", Value: strPtr("3")})
	require.NoError(t, err)
	assert.True(t, rewired)
	assert.Equal(t, "3", doc.Shapes[pulse.ID].Properties["Delay"])

	_, _, err = ds.ApplyOperation(Operation{Type: "shape.property", ShapeID: pulse.ID, Key: "Unit"})
	require.NoError(t, err)
	_, ok := doc.Shapes[pulse.ID].Properties["Unit"]
	assert.False(t, ok)
}

func TestDocumentStateCreateAndDelete(t *testing.T) {
	doc := document.NewEmptyDocument("doc", "edit")
	ds := NewDocumentState(doc)

	points, _ := json.Marshal([]document.Point{{ID: "p1", X: 0, Y: 0}, {ID: "p2", X: 10, Y: 10}})
	shape, _ := json.Marshal(document.Shape{ID: "r1", Kind: document.KindRectangle, Points: []string{"p1", "p2"}})
	_, rewired, err := ds.ApplyOperation(Operation{Type: "shape.create", Shape: shape, Points: points})
	require.NoError(t, err)
	assert.True(t, rewired)
	assert.Equal(t, []string{"r1"}, doc.Layers)

	group, _ := json.Marshal(document.Shape{ID: "g1", Kind: document.KindGroup})
	zero := 0
	_, _, err = ds.ApplyOperation(Operation{Type: "shape.create", Shape: group, Index: &zero})
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "r1"}, doc.Layers)

	child, _ := json.Marshal(document.Shape{ID: "l1", Kind: document.KindLine, Points: []string{"p1", "p2"}})
	_, _, err = ds.ApplyOperation(Operation{Type: "shape.create", Shape: child, ParentID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, doc.Shapes["g1"].Children)
	assert.NoError(t, doc.Validate())

	dangling, _ := json.Marshal(document.Shape{ID: "bad", Kind: document.KindLine, Points: []string{"p1", "p9"}})
	_, _, err = ds.ApplyOperation(Operation{Type: "shape.create", Shape: dangling})
	assert.ErrorIs(t, err, document.ErrDanglingReference)

	// An existing id is never replaced, so the group keeps its children.
	clash, _ := json.Marshal(document.Shape{ID: "g1", Kind: document.KindRectangle, Points: []string{"p1", "p2"}})
	_, _, err = ds.ApplyOperation(Operation{Type: "shape.create", Shape: clash})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, document.KindGroup, doc.Shapes["g1"].Kind)
	assert.Equal(t, []string{"l1"}, doc.Shapes["g1"].Children)
	assert.Equal(t, []string{"g1", "r1"}, doc.Layers)

	_, _, err = ds.ApplyOperation(Operation{Type: "shape.delete", ShapeID: "l1"})
	require.NoError(t, err)
	assert.Empty(t, doc.Shapes["g1"].Children)

	_, _, err = ds.ApplyOperation(Operation{Type: "shape.delete", ShapeID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, doc.Layers)
	assert.NoError(t, doc.Validate())
	assert.Equal(t, int64(5), ds.Seq())
}

func TestRoomStepReportsChanges(t *testing.T) {
	room, _ := newSampleRoom(t)

	update, ok := room.Step()
	require.True(t, ok)
	assert.Equal(t, int64(1), update.Cycle)
	assert.NotEmpty(t, update.States)

	_, ok = room.Step()
	assert.False(t, ok, "circuit is idle")
}

func TestRoomSignalsDriveLatch(t *testing.T) {
	room, gates := newSampleRoom(t)
	on := simulation.True

	update, err := room.SetSignal(gates["S"].ID, &on)
	require.NoError(t, err)
	assert.Equal(t, simulation.True, update.States[gates["S"].ID])

	for range 3 {
		room.Step()
	}
	snap := room.Snapshot()
	assert.True(t, snap.Full)
	assert.Equal(t, simulation.True, snap.States[gates["Q"].ID])

	update, err = room.SetSignal(gates["S"].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, simulation.False, update.States[gates["S"].ID])

	_, err = room.SetSignal(gates["Q"].ID, nil)
	assert.ErrorIs(t, err, engine.ErrNotSignal)

	snap, err = room.Reset()
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Cycle)
	assert.Equal(t, simulation.Unknown, snap.States[gates["Q"].ID])
}

func TestRoomSelect(t *testing.T) {
	room, gates := newSampleRoom(t)

	sel, err := room.SelectPoint(230, 80, engine.DefaultView())
	require.NoError(t, err)
	assert.Equal(t, gates["Q"].ID, sel.ShapeID)
	assert.Empty(t, sel.PointID)
	assert.Equal(t, []string{gates["Q"].ID}, sel.IDs)
	assert.Equal(t, geometry.Rect(200, 60, 60, 40), sel.Bounds)

	sel, err = room.SelectPoint(5, 5, engine.DefaultView())
	require.NoError(t, err)
	assert.Empty(t, sel.ShapeID)
	assert.Equal(t, []string{}, sel.IDs)

	// (420,100)-(460,140) on screen is (210,50)-(230,70) in the document.
	sel, err = room.SelectRect(geometry.Rect(420, 100, 40, 40), engine.View{Zoom: 2})
	require.NoError(t, err)
	frame := room.state.Document().Layers[0]
	assert.Equal(t, []string{gates["Q"].ID, frame}, sel.IDs)
}

func TestRoomApply(t *testing.T) {
	room, gates := newSampleRoom(t)
	room.Step()

	seq, snap, err := room.Apply(Operation{Type: "document.rename", Name: "latch"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
	assert.Nil(t, snap)

	seq, snap, err = room.Apply(Operation{Type: "shape.property", ShapeID: gates["TIMER-PULSE"].ID, Key: "Unit", Value: strPtr("eons")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
	require.NotNil(t, snap)
	assert.Empty(t, snap.States, "circuit no longer compiles")

	data, seq, ok := room.DirtyDocument()
	require.True(t, ok)
	assert.Equal(t, int64(2), seq)
	assert.Contains(t, string(data), `"name":"latch"`)

	room.MarkSaved(seq)
	_, _, ok = room.DirtyDocument()
	assert.False(t, ok)
}

// --- hub ---

type savedDoc struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func (s *savedDoc) save(_ context.Context, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = data
	return nil
}

func newTestHub(t *testing.T) (*Hub, *savedDoc, *document.Document) {
	t.Helper()
	doc := document.NewSampleDocument()
	saved := &savedDoc{docs: map[string][]byte{}}
	load := func(_ context.Context, id string) (*document.Document, error) {
		require.Equal(t, doc.ID, id)
		return doc, nil
	}
	return NewHub(load, saved.save, engine.Options{}), saved, doc
}

func join(t *testing.T, h *Hub, room *Room, user string) *Client {
	t.Helper()
	c := NewClient(h, room, nil, user, user, "client-"+user)
	h.addClient(c)
	return c
}

func drain(c *Client) []Message {
	var out []Message
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err == nil {
				out = append(out, msg)
			}
		default:
			return out
		}
	}
}

func types(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func TestHubOpenReusesRoom(t *testing.T) {
	h, _, doc := newTestHub(t)
	a, err := h.Open(context.Background(), doc.ID)
	require.NoError(t, err)
	b, err := h.Open(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestHubSessionFlow(t *testing.T) {
	h, saved, doc := newTestHub(t)
	gates := gatesByName(doc)
	room, err := h.Open(context.Background(), doc.ID)
	require.NoError(t, err)

	alice := join(t, h, room, "alice")
	msgs := drain(alice)
	require.Equal(t, []string{TypeWelcome}, types(msgs))
	var welcome WelcomePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &welcome))
	assert.Len(t, welcome.Gates, 11)
	assert.Len(t, welcome.State.States, 6)

	bob := join(t, h, room, "bob")
	assert.Equal(t, []string{TypeWelcome}, types(drain(bob)))
	assert.Equal(t, []string{TypePresenceJoin}, types(drain(alice)))

	// Signals are broadcast to everyone.
	payload, _ := json.Marshal(SignalPayload{ID: gates["S"].ID, Value: simulation.True})
	h.handleMessage(alice, &Message{Type: TypeSignalSet, Payload: payload})
	for _, c := range []*Client{alice, bob} {
		msgs := drain(c)
		require.Equal(t, []string{TypeSimState}, types(msgs))
		var state SimStatePayload
		require.NoError(t, json.Unmarshal(msgs[0].Payload, &state))
		assert.Equal(t, simulation.True, state.States[gates["S"].ID])
	}

	// Selection answers the sender and shows up as presence for the rest.
	payload, _ = json.Marshal(SelectPointPayload{X: 230, Y: 80, View: engine.DefaultView()})
	h.handleMessage(alice, &Message{Type: TypeSelectPoint, Seq: 7, Payload: payload})
	msgs = drain(alice)
	require.Equal(t, []string{TypeSelection}, types(msgs))
	assert.Equal(t, int64(7), msgs[0].Seq)
	bobMsgs := drain(bob)
	require.Equal(t, []string{TypePresenceUpdate}, types(bobMsgs))
	var presence PresencePayload
	require.NoError(t, json.Unmarshal(bobMsgs[0].Payload, &presence))
	assert.Equal(t, []string{gates["Q"].ID}, presence.Selection)

	// Bad signal ids are reported to the sender only.
	payload, _ = json.Marshal(SignalPayload{ID: gates["Q"].ID})
	h.handleMessage(bob, &Message{Type: TypeSignalToggle, Payload: payload})
	assert.Equal(t, []string{TypeError}, types(drain(bob)))
	assert.Empty(t, drain(alice))

	// Edits are acked, broadcast and saved when the room empties.
	payload, _ = json.Marshal(OperationSubmitPayload{Operation: Operation{ID: "op1", Type: "document.rename", Name: "renamed"}})
	h.handleMessage(bob, &Message{Type: TypeOpSubmit, Payload: payload})
	assert.Equal(t, []string{TypeOpAck}, types(drain(bob)))
	assert.Equal(t, []string{TypeOpBroadcast}, types(drain(alice)))

	payload, _ = json.Marshal(OperationSubmitPayload{Operation: Operation{ID: "op2", Type: "shape.explode"}})
	h.handleMessage(bob, &Message{Type: TypeOpSubmit, Payload: payload})
	assert.Equal(t, []string{TypeOpNack}, types(drain(bob)))

	h.removeClient(alice)
	assert.Equal(t, []string{TypePresenceLeave}, types(drain(bob)))
	_, ok := <-alice.send
	assert.False(t, ok, "send channel closed")

	h.Stop()
	saved.mu.Lock()
	data := saved.docs[doc.ID]
	saved.mu.Unlock()
	assert.Contains(t, string(data), `"name":"renamed"`)
}

func TestHubRejoinAfterRoomReplaced(t *testing.T) {
	h, _, doc := newTestHub(t)
	ctx := context.Background()

	first, err := h.Open(ctx, doc.ID)
	require.NoError(t, err)
	alice := join(t, h, first, "alice")
	late := NewClient(h, first, nil, "carol", "carol", "client-carol")

	// The first room empties and a new one takes its place before carol joins.
	h.removeClient(alice)
	second, err := h.Open(ctx, doc.ID)
	require.NoError(t, err)
	require.NotSame(t, first, second)
	bob := join(t, h, second, "bob")
	drain(bob)

	h.addClient(late)
	assert.Same(t, second, late.Room())
	assert.Equal(t, []string{TypeWelcome}, types(drain(late)))
	assert.Equal(t, []string{TypePresenceJoin}, types(drain(bob)))

	payload, _ := json.Marshal(OperationSubmitPayload{Operation: Operation{ID: "op1", Type: "document.rename", Name: "renamed"}})
	h.handleMessage(late, &Message{Type: TypeOpSubmit, Payload: payload})
	assert.Equal(t, []string{TypeOpAck}, types(drain(late)))
	assert.Equal(t, []string{TypeOpBroadcast}, types(drain(bob)))

	data, _, dirty := second.DirtyDocument()
	require.True(t, dirty)
	assert.Contains(t, string(data), `"name":"renamed"`)
}

func TestHubDiscard(t *testing.T) {
	h, _, doc := newTestHub(t)
	ctx := context.Background()

	room, err := h.Open(ctx, doc.ID)
	require.NoError(t, err)
	h.Discard(room)
	reopened, err := h.Open(ctx, doc.ID)
	require.NoError(t, err)
	assert.NotSame(t, room, reopened)

	// A stale room never evicts its replacement.
	h.Discard(room)
	again, err := h.Open(ctx, doc.ID)
	require.NoError(t, err)
	assert.Same(t, reopened, again)

	// Nor does discarding a room that has clients.
	alice := join(t, h, reopened, "alice")
	drain(alice)
	h.Discard(reopened)
	again, err = h.Open(ctx, doc.ID)
	require.NoError(t, err)
	assert.Same(t, reopened, again)
}

func TestHubRegisterAfterRun(t *testing.T) {
	h, _, doc := newTestHub(t)
	room, err := h.Open(context.Background(), doc.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.Run(ctx) }()
	cancel()
	require.NoError(t, <-errc)

	c := NewClient(h, room, nil, "alice", "alice", "client-alice")
	returned := make(chan struct{})
	go func() {
		h.Register(c)
		h.leave(c)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Register blocked after Run exited")
	}
}

func TestHubStartStop(t *testing.T) {
	h, _, doc := newTestHub(t)
	room, err := h.Open(context.Background(), doc.ID)
	require.NoError(t, err)
	alice := join(t, h, room, "alice")
	drain(alice)

	h.handleMessage(alice, &Message{Type: TypeSimStart})
	msgs := drain(alice)
	require.NotEmpty(t, msgs)
	var state SimStatePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &state))
	assert.True(t, state.Running)
	assert.True(t, state.Full)

	// A second start is ignored.
	assert.False(t, room.Start(func(SimStatePayload) {}))

	h.handleMessage(alice, &Message{Type: TypeSimStop})
	assert.False(t, room.Snapshot().Running)
	assert.False(t, room.Stop())
}

func TestChangedStates(t *testing.T) {
	prev := map[string]simulation.Bool3{"a": simulation.True, "b": simulation.False}
	cur := map[string]simulation.Bool3{"a": simulation.True, "b": simulation.True, "c": simulation.Unknown}
	assert.Equal(t, map[string]simulation.Bool3{"b": simulation.True, "c": simulation.Unknown}, changedStates(prev, cur))
}
