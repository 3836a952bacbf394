// Package graph resolves a document's wiring into logic connectivity.
// Shapes are connected when they reference the same point ID: a wire (line)
// whose endpoint is a gate connector, or two wires sharing an endpoint.
package graph

import (
	"fmt"

	"github.com/inamate/logicsketch/internal/document"
)

// Pin is a resolved input of a gate.
type Pin struct {
	Connector document.Connector
	// Driver is the ID of the gate whose output reaches this pin, or empty
	// when the pin is unconnected.
	Driver string
	// Inverted is true when exactly one of the two connectors is inverted.
	Inverted bool
}

// Gate is a tagged group: one logic element.
type Gate struct {
	ID         string
	Key        string
	Name       string
	Properties map[string]string
	Inputs     []Pin
	Outputs    []document.Connector
}

// Property returns a named property of the gate.
func (g *Gate) Property(name string) (string, bool) {
	v, ok := g.Properties[name]
	return v, ok
}

// ConnectedInputs returns the pins that have a driver.
func (g *Gate) ConnectedInputs() []Pin {
	out := make([]Pin, 0, len(g.Inputs))
	for _, p := range g.Inputs {
		if p.Driver != "" {
			out = append(out, p)
		}
	}
	return out
}

// Warning is a non-fatal problem found while resolving connectivity.
type Warning struct {
	GateID  string `json:"gateId"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.GateID, w.Message)
}

// Graph is the connectivity of all gates in a document, in document order.
type Graph struct {
	Gates    []*Gate
	ByID     map[string]*Gate
	Warnings []Warning
}

type driver struct {
	gateID    string
	connector document.Connector
}

// Create walks the document and resolves which output drives every input pin.
func Create(doc *document.Document) *Graph {
	g := &Graph{ByID: make(map[string]*Gate)}

	// point -> wires touching it, point -> outputs sitting on it
	wires := make(map[string][]document.Shape)
	outputs := make(map[string][]driver)

	doc.Walk(func(s document.Shape) bool {
		if s.Kind == document.KindGroup && s.Tag != "" {
			gate := &Gate{
				ID:         s.ID,
				Key:        s.Tag,
				Name:       s.Name,
				Properties: s.Properties,
			}
			for _, c := range s.Connectors {
				switch c.Role {
				case document.RoleInput:
					gate.Inputs = append(gate.Inputs, Pin{Connector: c})
				case document.RoleOutput:
					gate.Outputs = append(gate.Outputs, c)
					outputs[c.PointID] = append(outputs[c.PointID], driver{gateID: s.ID, connector: c})
				}
			}
			g.Gates = append(g.Gates, gate)
			g.ByID[gate.ID] = gate
			// The body of a gate is decoration, not wiring.
			return false
		}
		if s.Kind == document.KindLine && len(s.Points) >= 2 {
			for _, pid := range []string{s.Points[0], s.Points[len(s.Points)-1]} {
				wires[pid] = append(wires[pid], s)
			}
		}
		return true
	})

	for _, gate := range g.Gates {
		for i := range gate.Inputs {
			pin := &gate.Inputs[i]
			drivers := trace(pin.Connector.PointID, wires, outputs)
			if len(drivers) == 0 {
				continue
			}
			if len(drivers) > 1 {
				g.Warnings = append(g.Warnings, Warning{
					GateID:  gate.ID,
					Message: fmt.Sprintf("input %q has %d drivers, using %s", pin.Connector.Name, len(drivers), drivers[0].gateID),
				})
			}
			pin.Driver = drivers[0].gateID
			pin.Inverted = pin.Connector.Inverted != drivers[0].connector.Inverted
		}
	}

	return g
}

// trace follows wires from start breadth-first and returns every output
// connector reachable, in discovery order.
func trace(start string, wires map[string][]document.Shape, outputs map[string][]driver) []driver {
	var found []driver
	visited := map[string]bool{start: true}
	usedWire := make(map[string]bool)
	queue := []string{start}

	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]

		found = append(found, outputs[pid]...)

		for _, w := range wires[pid] {
			if usedWire[w.ID] {
				continue
			}
			usedWire[w.ID] = true
			for _, next := range []string{w.Points[0], w.Points[len(w.Points)-1]} {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	return found
}
