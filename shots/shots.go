// Package shots synthesizes noisy single-shot readout trajectories and
// integrates each into one IQ sample per bit.
package shots

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"readout/fault"
	"readout/trajectory"
)

// Synthesizer adds complex Gaussian noise of per-component standard
// deviation Sigma to the expected trace of each bit.
type Synthesizer struct {
	Sigma   float64
	Seed    uint64
	Workers int // <= 0 means GOMAXPROCS
}

func (s Synthesizer) validate() error {
	if math.IsNaN(s.Sigma) || math.IsInf(s.Sigma, 0) || s.Sigma < 0 {
		return fault.Configuration("synthesizer", "noise power %v must be a non-negative real", s.Sigma)
	}
	return nil
}

// Shot returns the noisy trajectory of bit index bit, drawn from the
// trace of state. The noise depends only on (Seed, bit).
func (s Synthesizer) Shot(exp *trajectory.Expected, bit int, state uint8) (trajectory.Trace, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if state > 1 {
		return nil, fault.Configuration("synthesizer", "bit %d has state %d, want 0 or 1", bit, state)
	}
	base := exp.For(state)
	shot := make(trajectory.Trace, len(base))
	copy(shot, base)
	if s.Sigma == 0 {
		return shot, nil
	}
	noise := distuv.Normal{Mu: 0, Sigma: s.Sigma, Src: Source(s.Seed, bit)}
	for t := range shot {
		re := noise.Rand()
		im := noise.Rand()
		shot[t] += complex(re, im)
	}
	return shot, nil
}

// Integrated synthesizes and integrates one shot per entry of states.
// Shots are discarded as soon as they are reduced.
func (s Synthesizer) Integrated(ctx context.Context, exp *trajectory.Expected, states []uint8) ([]complex128, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]complex128, len(states))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, state := range states {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			shot, err := s.Shot(exp, i, state)
			if err != nil {
				return err
			}
			out[i], err = Integrate(shot)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Signalled returns the states the shots are drawn from: truth with the
// bits at flip indices inverted. truth itself is not modified.
func Signalled(truth []uint8, flips []int) ([]uint8, error) {
	out := append([]uint8(nil), truth...)
	seen := make(map[int]bool, len(flips))
	for _, idx := range flips {
		if idx < 0 || idx >= len(out) {
			return nil, fault.Configuration("synthesizer", "flip index %d outside codeword of %d bits", idx, len(out))
		}
		if seen[idx] {
			return nil, fault.Configuration("synthesizer", "flip index %d listed twice", idx)
		}
		seen[idx] = true
		out[idx] ^= 1
	}
	return out, nil
}
