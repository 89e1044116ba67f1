package shots

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"readout/fault"
	"readout/trajectory"
)

// Integrate reduces a shot to its temporal mean. Components are summed in
// sorted order so the result is exactly independent of sample order.
func Integrate(shot trajectory.Trace) (complex128, error) {
	if len(shot) == 0 {
		return 0, fault.Configuration("integrator", "shot has no time samples")
	}
	re := make([]float64, len(shot))
	im := make([]float64, len(shot))
	for i, z := range shot {
		re[i] = real(z)
		im[i] = imag(z)
	}
	sort.Float64s(re)
	sort.Float64s(im)
	return complex(stat.Mean(re, nil), stat.Mean(im, nil)), nil
}
