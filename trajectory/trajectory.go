// Package trajectory is the boundary to the external trajectory solver.
// A Model maps a logical state and a time grid onto the noiseless expected
// readout trace for that state.
package trajectory

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"readout/fault"
)

// TimeGrid is a strictly increasing sequence of sample times.
type TimeGrid []float64

// Trace is the expected complex readout signal sampled on a TimeGrid.
type Trace []complex128

// Linspace returns n evenly spaced samples over [start, stop].
func Linspace(start, stop float64, n int) TimeGrid {
	if n <= 0 {
		return TimeGrid{}
	}
	if n == 1 {
		return TimeGrid{start}
	}
	return TimeGrid(floats.Span(make([]float64, n), start, stop))
}

// Validate checks that the grid is non-empty, finite and strictly increasing.
func (g TimeGrid) Validate() error {
	if len(g) == 0 {
		return fault.Configuration("trajectory", "time grid must have at least one sample")
	}
	for i, t := range g {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fault.Configuration("trajectory", "time sample %d is not finite", i)
		}
		if i > 0 && t <= g[i-1] {
			return fault.Configuration("trajectory", "time grid not strictly increasing at sample %d", i)
		}
	}
	return nil
}

// Model supplies expected traces. Implementations must be deterministic.
type Model interface {
	Trace(state uint8, grid TimeGrid) (Trace, error)
}

// Expected holds the two immutable per-state traces of one run.
type Expected struct {
	Grid TimeGrid
	Zero Trace
	One  Trace
}

// For returns the trace selected by state.
func (e *Expected) For(state uint8) Trace {
	if state == 0 {
		return e.Zero
	}
	return e.One
}

// Resolve queries m once per state and checks both traces match the grid.
func Resolve(m Model, grid TimeGrid) (*Expected, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	zero, err := m.Trace(0, grid)
	if err != nil {
		return nil, err
	}
	one, err := m.Trace(1, grid)
	if err != nil {
		return nil, err
	}
	for state, tr := range []Trace{zero, one} {
		if len(tr) != len(grid) {
			return nil, fault.Configuration("trajectory", "trace for state %d has %d samples, grid has %d", state, len(tr), len(grid))
		}
	}
	return &Expected{Grid: grid, Zero: zero, One: one}, nil
}

// Constant is a model whose trace is a fixed complex level per state.
type Constant struct {
	Level0 complex128
	Level1 complex128
}

func (c Constant) Trace(state uint8, grid TimeGrid) (Trace, error) {
	if state > 1 {
		return nil, fault.Configuration("trajectory", "state %d is not a logical bit", state)
	}
	level := c.Level0
	if state == 1 {
		level = c.Level1
	}
	tr := make(Trace, len(grid))
	for i := range tr {
		tr[i] = level
	}
	return tr, nil
}
