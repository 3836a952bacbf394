package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/logicsketch/internal/document"
	"github.com/inamate/logicsketch/internal/engine"
	"github.com/inamate/logicsketch/internal/geometry"
	"github.com/inamate/logicsketch/internal/simulation"
)

// Room is one open document shared by its clients. It owns the engine that
// answers hit tests and runs the circuit.
type Room struct {
	documentID string
	clients    map[string]*Client // clientID -> client, guarded by Hub.mu
	presence   *PresenceManager

	mu      sync.Mutex
	state   *DocumentState
	engine  *engine.Engine
	last    map[string]simulation.Bool3
	cancel  context.CancelFunc
	running bool
}

func NewRoom(documentID string, doc *document.Document, opts engine.Options) (*Room, error) {
	eng, err := engine.New(opts)
	if err != nil {
		return nil, err
	}
	eng.SetDocument(doc)
	// A broken circuit still opens; the problem is reported on start.
	if err := eng.Compile(); err != nil {
		slog.Warn("compile document", "document", documentID, "error", err)
	}

	return &Room{
		documentID: documentID,
		clients:    make(map[string]*Client),
		presence:   NewPresenceManager(),
		state:      NewDocumentState(doc),
		engine:     eng,
		last:       eng.States(),
	}, nil
}

// Snapshot returns the full simulation state.
func (r *Room) Snapshot() SimStatePayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() SimStatePayload {
	return SimStatePayload{
		Cycle:    r.engine.Cycle(),
		Running:  r.running,
		Full:     true,
		States:   r.engine.States(),
		Warnings: r.engine.Warnings(),
	}
}

func (r *Room) welcome(clientID string) WelcomePayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return WelcomePayload{
		ClientID: clientID,
		Seq:      r.state.Seq(),
		Gates:    r.engine.Gates(),
		State:    r.snapshotLocked(),
		Presence: PresenceStatePayload{Presences: r.presence.GetAll()},
	}
}

// Start runs the simulation in real time, calling publish after every cycle
// that changed a node or failed. It returns false if already running.
func (r *Room) Start(publish func(SimStatePayload)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.running = true
	interval := time.Duration(r.engine.Resolution()) * time.Millisecond

	go r.loop(ctx, interval, publish)
	return true
}

// Stop halts the simulation loop. The state is kept.
func (r *Room) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return false
	}
	r.cancel()
	r.cancel = nil
	r.running = false
	return true
}

func (r *Room) loop(ctx context.Context, interval time.Duration, publish func(SimStatePayload)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if update, ok := r.Step(); ok {
				publish(update)
			}
		}
	}
}

// Step runs one cycle and returns the nodes that changed. ok is false when
// nothing changed and no node failed.
func (r *Room) Step() (SimStatePayload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.engine.Tick()
	states := r.engine.States()
	update := SimStatePayload{
		Cycle:   r.engine.Cycle(),
		Running: r.running,
		States:  changedStates(r.last, states),
	}
	r.last = states

	if err != nil {
		update.Errors = errorStrings(err)
	}
	return update, len(update.States) > 0 || len(update.Errors) > 0
}

// Reset recompiles the circuit and rewinds the clock.
func (r *Room) Reset() (SimStatePayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.engine.Reset()
	r.last = r.engine.States()
	return r.snapshotLocked(), err
}

// SetSignal drives a signal. A nil value toggles it.
func (r *Room) SetSignal(id string, v *simulation.Bool3) (SimStatePayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if v == nil {
		_, err = r.engine.ToggleSignal(id)
	} else {
		err = r.engine.SetSignal(id, *v)
	}
	if err != nil {
		return SimStatePayload{}, err
	}

	states := r.engine.States()
	update := SimStatePayload{
		Cycle:   r.engine.Cycle(),
		Running: r.running,
		States:  changedStates(r.last, states),
	}
	r.last = states
	return update, nil
}

// SelectPoint hit-tests a screen point in the given view.
func (r *Room) SelectPoint(x, y float64, view engine.View) (SelectionPayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.engine.SetView(view)
	pointID, err := r.engine.HitTestPoint(x, y)
	if err != nil {
		return SelectionPayload{}, err
	}
	shapeID, err := r.engine.HitTest(x, y)
	if err != nil {
		return SelectionPayload{}, err
	}

	ids := []string{}
	if shapeID != "" {
		ids = append(ids, shapeID)
	}
	r.engine.SetSelection(ids)
	return SelectionPayload{
		ShapeID: shapeID,
		PointID: pointID,
		IDs:     ids,
		Bounds:  r.engine.SelectionBounds(),
	}, nil
}

// SelectRect selects every shape touching a screen rectangle.
func (r *Room) SelectRect(rect geometry.Rect2, view engine.View) (SelectionPayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.engine.SetView(view)
	ids, err := r.engine.SelectRect(rect)
	if err != nil {
		return SelectionPayload{}, err
	}
	if ids == nil {
		ids = []string{}
	}
	return SelectionPayload{IDs: ids, Bounds: r.engine.SelectionBounds()}, nil
}

// Apply applies a document edit and refreshes the engine. Rewiring edits
// recompile the circuit, which resets it.
func (r *Room) Apply(op Operation) (int64, *SimStatePayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq, rewired, err := r.state.ApplyOperation(op)
	if err != nil {
		return 0, nil, err
	}
	if !rewired {
		r.engine.UpdateDocument(r.state.Document())
		return seq, nil, nil
	}

	r.engine.UpdateDocument(r.state.Document())
	if err := r.engine.Compile(); err != nil {
		slog.Warn("recompile document", "document", r.documentID, "error", err)
	}
	r.last = r.engine.States()
	snap := r.snapshotLocked()
	return seq, &snap, nil
}

// DirtyDocument returns the encoded document and its sequence when it has
// unsaved edits.
func (r *Room) DirtyDocument() ([]byte, int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.Dirty() {
		return nil, 0, false
	}
	data, err := json.Marshal(r.state.Document())
	if err != nil {
		slog.Error("marshal document", "document", r.documentID, "error", err)
		return nil, 0, false
	}
	return data, r.state.Seq(), true
}

// MarkSaved clears the dirty flag unless edits arrived after seq.
func (r *Room) MarkSaved(seq int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Seq() == seq {
		r.state.MarkSaved()
	}
}

func changedStates(prev, cur map[string]simulation.Bool3) map[string]simulation.Bool3 {
	out := make(map[string]simulation.Bool3)
	for id, v := range cur {
		if old, ok := prev[id]; !ok || old != v {
			out[id] = v
		}
	}
	return out
}

// errorStrings flattens an errors.Join result.
func errorStrings(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
