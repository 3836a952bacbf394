// Package simulation evaluates logic circuits built from a document graph.
// All nodes advance together once per clock cycle: each node computes its
// next state from the states its inputs held after the previous cycle, and
// the new states become visible only when the whole cycle is committed.
package simulation

import (
	"errors"
	"fmt"
)

// Node is one logic element of a compiled circuit.
type Node interface {
	ID() string
	Key() string
	// State is the value committed by the last cycle.
	State() Bool3
	Inputs() []Input
	// Run computes the next state. It must only read the committed state of
	// other nodes.
	Run(clock Clock) error

	setInputs(inputs []Input)
	commit()
}

// Input is a connection to an upstream node.
type Input struct {
	Simulation Node
	IsInverted bool
}

// Value returns the upstream state, negated when the connection is inverted.
func (in Input) Value() Bool3 {
	if in.Simulation == nil {
		return Unknown
	}
	v := in.Simulation.State()
	if in.IsInverted {
		return v.Not()
	}
	return v
}

type base struct {
	id     string
	key    string
	inputs []Input
	state  Bool3
	next   Bool3
}

func newBase(id, key string) base {
	return base{id: id, key: key}
}

func (b *base) ID() string              { return b.id }
func (b *base) Key() string             { return b.key }
func (b *base) State() Bool3            { return b.state }
func (b *base) Inputs() []Input         { return b.inputs }
func (b *base) setInputs(inputs []Input) { b.inputs = inputs }
func (b *base) commit()                 { b.state = b.next }

func (b *base) values() []Bool3 {
	out := make([]Bool3, len(b.inputs))
	for i, in := range b.inputs {
		out[i] = in.Value()
	}
	return out
}

// single returns the only input value. No input yields Unknown; more than one
// is a wiring error reported with the node's display name.
func (b *base) single(name string) (Bool3, error) {
	switch len(b.inputs) {
	case 0:
		return Unknown, nil
	case 1:
		return b.inputs[0].Value(), nil
	}
	return Unknown, fmt.Errorf("%s simulation can only have one input State (%s has %d): %w",
		name, b.id, len(b.inputs), ErrTooManyInputs)
}

// Run advances every node by one cycle. All nodes run before any of them
// commits, so the result does not depend on the order of nodes. Node errors
// are collected; a failing node holds Unknown for the cycle.
func Run(nodes []Node, clock Clock) error {
	var errs []error
	for _, n := range nodes {
		if err := n.Run(clock); err != nil {
			errs = append(errs, err)
		}
	}
	for _, n := range nodes {
		n.commit()
	}
	return errors.Join(errs...)
}
