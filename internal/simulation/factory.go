package simulation

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/samber/lo"

	"github.com/inamate/logicsketch/internal/graph"
)

// Gate keys, matched against the tag of a document group.
const (
	KeySignal      = "SIGNAL"
	KeyBuffer      = "BUFFER"
	KeyNot         = "NOT"
	KeyAnd         = "AND"
	KeyOr          = "OR"
	KeyXor         = "XOR"
	KeyMemorySet   = "MEMORY-SET"
	KeyMemoryReset = "MEMORY-RESET"
	KeyTimerOn     = "TIMER-ON"
	KeyTimerOff    = "TIMER-OFF"
	KeyTimerPulse  = "TIMER-PULSE"
)

// Constructor builds the node for one gate from its properties. Inputs are
// connected by the factory afterwards.
type Constructor func(gate *graph.Gate) (Node, error)

// Factory maps gate keys to constructors. Register everything before the
// first Create; the table is read-only afterwards.
type Factory struct {
	constructors map[string]Constructor
}

func NewFactory() *Factory {
	return &Factory{constructors: make(map[string]Constructor)}
}

// NewDefaultFactory returns a factory with every built-in gate registered.
func NewDefaultFactory() *Factory {
	f := NewFactory()
	f.Register(KeySignal, func(g *graph.Gate) (Node, error) {
		initial, err := ParseBool3(propertyOr(g, "State", "false"))
		if err != nil {
			return nil, err
		}
		return NewSignal(g.ID, initial), nil
	})
	f.Register(KeyBuffer, func(g *graph.Gate) (Node, error) { return NewBuffer(g.ID), nil })
	f.Register(KeyNot, func(g *graph.Gate) (Node, error) { return NewNot(g.ID), nil })
	f.Register(KeyAnd, func(g *graph.Gate) (Node, error) { return NewAnd(g.ID), nil })
	f.Register(KeyXor, func(g *graph.Gate) (Node, error) { return NewXor(g.ID), nil })
	f.Register(KeyOr, func(g *graph.Gate) (Node, error) {
		counter, err := strconv.Atoi(propertyOr(g, "Counter", "1"))
		if err != nil {
			return nil, fmt.Errorf("%w: Counter: %v", ErrInvalidProperty, err)
		}
		node, err := NewOr(g.ID, counter)
		if err != nil {
			return nil, err
		}
		return node, nil
	})
	f.Register(KeyMemorySet, func(g *graph.Gate) (Node, error) { return NewMemory(g.ID, true), nil })
	f.Register(KeyMemoryReset, func(g *graph.Gate) (Node, error) { return NewMemory(g.ID, false), nil })
	f.Register(KeyTimerOn, timerConstructor(func(id string, d float64) Node { return NewTimerOn(id, d) }))
	f.Register(KeyTimerOff, timerConstructor(func(id string, d float64) Node { return NewTimerOff(id, d) }))
	f.Register(KeyTimerPulse, timerConstructor(func(id string, d float64) Node { return NewTimerPulse(id, d) }))
	return f
}

// Register adds or replaces the constructor for key.
func (f *Factory) Register(key string, c Constructor) {
	f.constructors[key] = c
}

// Keys returns the registered keys in sorted order.
func (f *Factory) Keys() []string {
	keys := lo.Keys(f.constructors)
	slices.Sort(keys)
	return keys
}

// Compiled is a circuit ready to run. Nodes keep document order.
type Compiled struct {
	Nodes []Node
	byID  map[string]Node
}

// Node returns the node compiled from the gate with the given ID.
func (c *Compiled) Node(id string) (Node, bool) {
	n, ok := c.byID[id]
	return n, ok
}

// Signal returns the signal node with the given ID.
func (c *Compiled) Signal(id string) (*Signal, bool) {
	n, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	s, ok := n.(*Signal)
	return s, ok
}

// States returns the committed state of every node by ID.
func (c *Compiled) States() map[string]Bool3 {
	out := make(map[string]Bool3, len(c.Nodes))
	for _, n := range c.Nodes {
		out[n.ID()] = n.State()
	}
	return out
}

// Run advances the circuit by one cycle.
func (c *Compiled) Run(clock Clock) error {
	return Run(c.Nodes, clock)
}

// Create compiles a resolved graph. Gates with an unregistered key are
// skipped with a warning, as are inputs driven by such gates. A constructor
// error aborts compilation.
func (f *Factory) Create(g *graph.Graph) (*Compiled, []graph.Warning, error) {
	c := &Compiled{byID: make(map[string]Node, len(g.Gates))}
	warnings := slices.Clone(g.Warnings)

	for _, gate := range g.Gates {
		ctor, ok := f.constructors[gate.Key]
		if !ok {
			w := graph.Warning{GateID: gate.ID, Message: fmt.Sprintf("no simulation registered for %q", gate.Key)}
			slog.Warn("skipping gate", "gate", gate.ID, "key", gate.Key)
			warnings = append(warnings, w)
			continue
		}
		node, err := ctor(gate)
		if err != nil {
			return nil, warnings, fmt.Errorf("create %s %s: %w", gate.Key, gate.ID, err)
		}
		c.Nodes = append(c.Nodes, node)
		c.byID[gate.ID] = node
	}

	for _, gate := range g.Gates {
		node, ok := c.byID[gate.ID]
		if !ok {
			continue
		}
		var inputs []Input
		for _, pin := range gate.ConnectedInputs() {
			upstream, ok := c.byID[pin.Driver]
			if !ok {
				warnings = append(warnings, graph.Warning{
					GateID:  gate.ID,
					Message: fmt.Sprintf("input %q is driven by a gate without simulation", pin.Connector.Name),
				})
				continue
			}
			inputs = append(inputs, Input{Simulation: upstream, IsInverted: pin.Inverted})
		}
		node.setInputs(inputs)
	}

	return c, warnings, nil
}

func propertyOr(g *graph.Gate, name, fallback string) string {
	if v, ok := g.Property(name); ok && v != "" {
		return v
	}
	return fallback
}

func timerConstructor(build func(id string, delay float64) Node) Constructor {
	return func(g *graph.Gate) (Node, error) {
		delay, err := strconv.ParseFloat(propertyOr(g, "Delay", "0"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: Delay: %v", ErrInvalidProperty, err)
		}
		if delay < 0 {
			return nil, fmt.Errorf("%w: Delay %v is negative", ErrInvalidProperty, delay)
		}
		seconds, err := ConvertToSeconds(delay, propertyOr(g, "Unit", "s"))
		if err != nil {
			return nil, err
		}
		return build(g.ID, seconds), nil
	}
}
