package simulation

import "fmt"

// Signal is a source driven from outside the circuit, like a switch. With a
// single input it follows that input instead.
type Signal struct {
	base
	value Bool3
}

func NewSignal(id string, initial Bool3) *Signal {
	s := &Signal{base: newBase(id, KeySignal), value: initial}
	s.state = initial
	s.next = initial
	return s
}

// Set drives the signal. The value is visible to other nodes immediately.
func (s *Signal) Set(v Bool3) {
	s.value = v
	s.state = v
	s.next = v
}

// Toggle flips a definite value. Unknown becomes True.
func (s *Signal) Toggle() Bool3 {
	if s.value == True {
		s.Set(False)
	} else {
		s.Set(True)
	}
	return s.value
}

func (s *Signal) Run(Clock) error {
	if len(s.inputs) == 0 {
		s.next = s.value
		return nil
	}
	v, err := s.single("Signal")
	s.next = v
	return err
}

// Buffer copies its input.
type Buffer struct{ base }

func NewBuffer(id string) *Buffer { return &Buffer{base: newBase(id, KeyBuffer)} }

func (b *Buffer) Run(Clock) error {
	v, err := b.single("Buffer")
	b.next = v
	return err
}

// Not inverts its input.
type Not struct{ base }

func NewNot(id string) *Not { return &Not{base: newBase(id, KeyNot)} }

func (n *Not) Run(Clock) error {
	v, err := n.single("Not")
	n.next = v.Not()
	return err
}

// And is Unknown with fewer than two inputs.
type And struct{ base }

func NewAnd(id string) *And { return &And{base: newBase(id, KeyAnd)} }

func (a *And) Run(Clock) error {
	vals := a.values()
	if len(vals) < 2 {
		a.next = Unknown
		return nil
	}
	result := vals[0]
	for _, v := range vals[1:] {
		result = result.And(v)
	}
	a.next = result
	return nil
}

// Or is true once Counter inputs are true. Below the threshold it falls back
// to the plain tri-state OR of all inputs.
type Or struct {
	base
	Counter int
}

func NewOr(id string, counter int) (*Or, error) {
	if counter <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCounter, counter)
	}
	return &Or{base: newBase(id, KeyOr), Counter: counter}, nil
}

func (o *Or) Run(Clock) error {
	vals := o.values()
	if len(vals) < 2 {
		o.next = Unknown
		return nil
	}
	count := 0
	result := vals[0]
	for i, v := range vals {
		if v == True {
			count++
		}
		if i > 0 {
			result = result.Or(v)
		}
	}
	if count >= o.Counter {
		o.next = True
	} else {
		o.next = result
	}
	return nil
}

// Xor is Unknown with fewer than two inputs.
type Xor struct{ base }

func NewXor(id string) *Xor { return &Xor{base: newBase(id, KeyXor)} }

func (x *Xor) Run(Clock) error {
	vals := x.values()
	if len(vals) < 2 {
		x.next = Unknown
		return nil
	}
	result := vals[0]
	for _, v := range vals[1:] {
		result = result.Xor(v)
	}
	x.next = result
	return nil
}

// Memory is an SR latch with inputs S and R, in that order. SetPriority
// decides the output when both are true.
type Memory struct {
	base
	SetPriority bool
}

func NewMemory(id string, setPriority bool) *Memory {
	key := KeyMemoryReset
	if setPriority {
		key = KeyMemorySet
	}
	return &Memory{base: newBase(id, key), SetPriority: setPriority}
}

func (m *Memory) Run(Clock) error {
	switch len(m.inputs) {
	case 0:
		m.next = Unknown
		return nil
	case 2:
	default:
		m.next = Unknown
		return fmt.Errorf("memory simulation needs set and reset inputs (%s has %d): %w",
			m.id, len(m.inputs), ErrWrongInputCount)
	}

	s, r := m.inputs[0].Value(), m.inputs[1].Value()
	switch {
	case !s.Known() || !r.Known():
		m.next = Unknown
	case s == True && r == True:
		m.next = FromBool(m.SetPriority)
	case s == True:
		m.next = True
	case r == True:
		m.next = False
	default:
		m.next = m.state
	}
	return nil
}
