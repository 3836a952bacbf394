// Package engine owns one open document and answers the editor's questions
// about it: which shape is under the pointer, what a drag rectangle selects,
// and what the circuit drawn in it does over time.
package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/inamate/logicsketch/internal/document"
	"github.com/inamate/logicsketch/internal/geometry"
	"github.com/inamate/logicsketch/internal/graph"
	"github.com/inamate/logicsketch/internal/hittest"
	"github.com/inamate/logicsketch/internal/simulation"
)

var (
	ErrNoDocument  = errors.New("no document loaded")
	ErrUnknownNode = errors.New("unknown simulation node")
	ErrNotSignal   = errors.New("node is not a signal")
)

const (
	DefaultResolution = 100
	DefaultHitRadius  = 6.0
)

// Options configures a new Engine. Zero values select the defaults.
type Options struct {
	// Resolution is the simulated milliseconds per clock cycle.
	Resolution int64
	// HitRadius is the pick tolerance in screen pixels.
	HitRadius float64
	Registry  *hittest.Registry
	Factory   *simulation.Factory
}

// Engine is not safe for concurrent use.
type Engine struct {
	doc *document.Document

	registry *hittest.Registry
	factory  *simulation.Factory

	// Top-level hit-test shapes, front-most first. Rebuilt when dirty.
	shapes []hittest.Shape
	dirty  bool

	compiled *simulation.Compiled
	warnings []graph.Warning
	clock    *simulation.SimulationClock

	view      View
	hitRadius float64
	selection []string
}

// New creates an engine with no document.
func New(opts Options) (*Engine, error) {
	if opts.Resolution == 0 {
		opts.Resolution = DefaultResolution
	}
	if opts.HitRadius == 0 {
		opts.HitRadius = DefaultHitRadius
	}
	if opts.Registry == nil {
		opts.Registry = hittest.NewDefaultRegistry()
	}
	if opts.Factory == nil {
		opts.Factory = simulation.NewDefaultFactory()
	}

	clock, err := simulation.NewClock(opts.Resolution)
	if err != nil {
		return nil, err
	}

	return &Engine{
		registry:  opts.Registry,
		factory:   opts.Factory,
		clock:     clock,
		view:      DefaultView(),
		hitRadius: opts.HitRadius,
	}, nil
}

// --- Commands ---

// LoadDocument parses a JSON document and makes it current.
func (e *Engine) LoadDocument(data []byte) error {
	doc, err := document.Parse(data)
	if err != nil {
		return err
	}
	e.SetDocument(doc)
	return nil
}

// SetDocument replaces the current document. The simulation is discarded and
// recompiled on the next tick.
func (e *Engine) SetDocument(doc *document.Document) {
	e.doc = doc
	e.dirty = true
	e.compiled = nil
	e.warnings = nil
	e.selection = nil
	e.clock.Reset()
}

// LoadSampleDocument loads the built-in sample circuit.
func (e *Engine) LoadSampleDocument() {
	e.SetDocument(document.NewSampleDocument())
}

// UpdateDocument replaces the document geometry while keeping the simulation
// running. Use it for edits that do not change wiring, like moving shapes.
func (e *Engine) UpdateDocument(doc *document.Document) {
	e.doc = doc
	e.dirty = true
	e.selection = lo.Filter(e.selection, func(id string, _ int) bool {
		_, ok := doc.Shapes[id]
		return ok
	})
}

// Compile builds the simulation for the current document and rewinds the
// clock. Unsupported gates are reported through Warnings.
func (e *Engine) Compile() error {
	if e.doc == nil {
		return ErrNoDocument
	}
	compiled, warnings, err := e.factory.Create(graph.Create(e.doc))
	e.warnings = warnings
	if err != nil {
		e.compiled = nil
		return fmt.Errorf("compile %s: %w", e.doc.ID, err)
	}
	e.compiled = compiled
	e.clock.Reset()
	return nil
}

// Reset recompiles the circuit, returning every node to its initial state.
func (e *Engine) Reset() error {
	return e.Compile()
}

// Tick runs one cycle at the current clock cycle and advances the clock.
// Node errors do not stop the cycle; they are returned joined.
func (e *Engine) Tick() error {
	if err := e.ensureCompiled(); err != nil {
		return err
	}
	err := e.compiled.Run(e.clock)
	e.clock.Tick()
	return err
}

// Run ticks n times and returns the errors of the last failing cycle.
func (e *Engine) Run(n int) error {
	var last error
	for range n {
		if err := e.Tick(); err != nil {
			if errors.Is(err, ErrNoDocument) {
				return err
			}
			last = err
		}
	}
	return last
}

// SetSignal drives a signal node.
func (e *Engine) SetSignal(id string, v simulation.Bool3) error {
	s, err := e.signal(id)
	if err != nil {
		return err
	}
	s.Set(v)
	return nil
}

// ToggleSignal flips a signal node and returns its new value.
func (e *Engine) ToggleSignal(id string) (simulation.Bool3, error) {
	s, err := e.signal(id)
	if err != nil {
		return simulation.Unknown, err
	}
	return s.Toggle(), nil
}

// SetView sets the screen transform used by the hit-test queries.
func (e *Engine) SetView(v View) {
	e.view = v
}

// SetSelection sets the selected shape IDs.
func (e *Engine) SetSelection(ids []string) {
	e.selection = slices.Clone(ids)
}

// --- Queries ---

// Document returns the current document, or nil.
func (e *Engine) Document() *document.Document { return e.doc }

// Cycle returns the clock cycle the next tick will run at.
func (e *Engine) Cycle() int64 { return e.clock.Cycle() }

// Resolution returns the milliseconds per cycle.
func (e *Engine) Resolution() int64 { return e.clock.Resolution() }

// Warnings returns the problems found by the last compilation.
func (e *Engine) Warnings() []graph.Warning { return e.warnings }

// Gates returns the gate keys the engine can simulate.
func (e *Engine) Gates() []string { return e.factory.Keys() }

func (e *Engine) View() View { return e.view }

func (e *Engine) Selection() []string { return slices.Clone(e.selection) }

// States returns the committed state of every simulated node. It is empty
// before the first compilation.
func (e *Engine) States() map[string]simulation.Bool3 {
	if e.compiled == nil {
		return map[string]simulation.Bool3{}
	}
	return e.compiled.States()
}

// HitTest returns the ID of the top-most shape under a screen point, or ""
// when nothing is hit.
func (e *Engine) HitTest(x, y float64) (string, error) {
	shapes, err := e.hitShapes()
	if err != nil {
		return "", err
	}
	target := e.view.ToDocument(geometry.Pt(x, y))
	s, err := e.registry.TryToGetShape(shapes, target, e.hitRadius, e.view.Zoom)
	if err != nil || s == nil {
		return "", err
	}
	return s.ID(), nil
}

// HitTestPoint returns the ID of the top-most control or connector point near
// a screen point, or "" when there is none.
func (e *Engine) HitTestPoint(x, y float64) (string, error) {
	shapes, err := e.hitShapes()
	if err != nil {
		return "", err
	}
	target := e.view.ToDocument(geometry.Pt(x, y))
	p, ok, err := e.registry.TryToGetConnectionPoint(shapes, target, e.hitRadius, e.view.Zoom)
	if err != nil || !ok {
		return "", err
	}
	return p.ID, nil
}

// SelectRect selects every top-level shape touching a screen rectangle,
// top-most first, and returns the new selection.
func (e *Engine) SelectRect(r geometry.Rect2) ([]string, error) {
	shapes, err := e.hitShapes()
	if err != nil {
		return nil, err
	}
	hits, err := e.registry.TryToGetShapes(shapes, e.view.RectToDocument(r), e.hitRadius, e.view.Zoom)
	if err != nil {
		return nil, err
	}
	e.selection = lo.Map(hits, func(s hittest.Shape, _ int) string { return s.ID() })
	return e.Selection(), nil
}

// SelectionBounds returns the document-space bounds of the selected shapes.
func (e *Engine) SelectionBounds() geometry.Rect2 {
	if e.doc == nil || len(e.selection) == 0 {
		return geometry.Rect2{}
	}
	shapes, err := e.hitShapes()
	if err != nil {
		return geometry.Rect2{}
	}
	selected := lo.SliceToMap(e.selection, func(id string) (string, bool) { return id, true })

	var bounds geometry.Rect2
	first := true
	for _, s := range shapes {
		if !selected[s.ID()] {
			continue
		}
		points := lo.Map(hittest.AllPoints(s), func(p hittest.Point, _ int) geometry.Point2 { return p.Point2 })
		r := geometry.BoundingRect(points)
		if first {
			bounds, first = r, false
			continue
		}
		bounds = bounds.Union(r)
	}
	return bounds
}

func (e *Engine) ensureCompiled() error {
	if e.compiled != nil {
		return nil
	}
	return e.Compile()
}

func (e *Engine) signal(id string) (*simulation.Signal, error) {
	if err := e.ensureCompiled(); err != nil {
		return nil, err
	}
	if _, ok := e.compiled.Node(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	s, ok := e.compiled.Signal(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSignal, id)
	}
	return s, nil
}

// hitShapes returns the top-level shapes front-most first.
func (e *Engine) hitShapes() ([]hittest.Shape, error) {
	if e.doc == nil {
		return nil, ErrNoDocument
	}
	if e.dirty {
		e.shapes = hittest.FromDocument(e.doc)
		slices.Reverse(e.shapes)
		e.dirty = false
	}
	return e.shapes, nil
}
