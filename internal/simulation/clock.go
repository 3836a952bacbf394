package simulation

import "fmt"

// Clock is the time source of a simulation. Cycle increases monotonically and
// each cycle represents Resolution milliseconds.
type Clock interface {
	Cycle() int64
	Resolution() int64
}

// SimulationClock is a Clock advanced by its owner.
type SimulationClock struct {
	cycle      int64
	resolution int64
}

// NewClock returns a clock at cycle zero.
func NewClock(resolutionMS int64) (*SimulationClock, error) {
	if resolutionMS <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidResolution, resolutionMS)
	}
	return &SimulationClock{resolution: resolutionMS}, nil
}

func (c *SimulationClock) Cycle() int64      { return c.cycle }
func (c *SimulationClock) Resolution() int64 { return c.resolution }

// Tick advances the clock by one cycle.
func (c *SimulationClock) Tick() { c.cycle++ }

// Reset rewinds the clock to cycle zero.
func (c *SimulationClock) Reset() { c.cycle = 0 }

// cycles converts a duration in seconds to whole clock cycles, rounding down.
func cycles(clock Clock, seconds float64) int64 {
	return int64(seconds*1000) / clock.Resolution()
}
