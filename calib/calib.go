// Package calib estimates the IQ-plane transform that separates the two
// readout clusters and converts calibrated samples into real LLRs.
//
// After calibration the inter-class axis lies on the real line and
// logical 0 sits on the positive side, which is the decoder's convention.
package calib

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/stat"

	"readout/fault"
)

// Mode selects how Params are obtained.
type Mode string

const (
	// ModeEnsemble estimates Params from labelled integrated samples.
	ModeEnsemble Mode = "ensemble"
	// ModeReference derives Params from the noiseless expected traces and
	// skips ensemble estimation. Used for fixed-value test vectors.
	ModeReference Mode = "reference"
)

// Params is the calibration of one ensemble.
type Params struct {
	Rotation float64 `json:"rotation"` // radians
	Polarity int     `json:"polarity"` // +1 or -1
	Variance float64 `json:"variance"` // population variance of the calibrated ensemble
}

// Apply rotates every sample and applies the polarity.
func (p Params) Apply(samples []complex128) []complex128 {
	w := cmplx.Exp(complex(0, p.Rotation)) * complex(float64(p.Polarity), 0)
	out := make([]complex128, len(samples))
	for i, z := range samples {
		out[i] = z * w
	}
	return out
}

// centroids returns the class means of samples labelled 0 and 1.
func centroids(samples []complex128, labels []uint8) (c0, c1 complex128, err error) {
	if len(samples) != len(labels) {
		return 0, 0, fault.DegenerateEnsemble("calibrator", "%d samples but %d labels", len(samples), len(labels))
	}
	var re, im [2][]float64
	for i, z := range samples {
		l := labels[i]
		if l > 1 {
			return 0, 0, fault.DegenerateEnsemble("calibrator", "label %d at bit %d is not 0 or 1", l, i)
		}
		re[l] = append(re[l], real(z))
		im[l] = append(im[l], imag(z))
	}
	for class := range re {
		if len(re[class]) == 0 {
			return 0, 0, fault.DegenerateEnsemble("calibrator", "no samples labelled %d, rotation and polarity undefined", class)
		}
	}
	c0 = complex(stat.Mean(re[0], nil), stat.Mean(im[0], nil))
	c1 = complex(stat.Mean(re[1], nil), stat.Mean(im[1], nil))
	return c0, c1, nil
}

// rotationFor returns the angle that puts c1-c0 on the real axis.
func rotationFor(c0, c1 complex128) (float64, error) {
	sep := c1 - c0
	if sep == 0 || cmplx.IsNaN(sep) || cmplx.IsInf(sep) {
		return 0, fault.DegenerateEnsemble("calibrator", "class centroids coincide or are not finite (separation %v)", sep)
	}
	return -cmplx.Phase(sep), nil
}

// Calibrate estimates rotation and polarity from the whole ensemble and
// returns them with the transformed samples. Every sample is observed
// before any is transformed.
func Calibrate(samples []complex128, labels []uint8) (Params, []complex128, error) {
	c0, c1, err := centroids(samples, labels)
	if err != nil {
		return Params{}, nil, err
	}
	rot, err := rotationFor(c0, c1)
	if err != nil {
		return Params{}, nil, err
	}
	p := Params{Rotation: rot, Polarity: 1}
	rotated := p.Apply(samples)

	var zeroRe []float64
	for i, z := range rotated {
		if labels[i] == 0 {
			zeroRe = append(zeroRe, real(z))
		}
	}
	if stat.Mean(zeroRe, nil) < 0 {
		p.Polarity = -1
		for i := range rotated {
			rotated[i] = -rotated[i]
		}
	}
	return p, rotated, nil
}

// Reference derives rotation and polarity from the expected per-state
// means instead of labelled samples.
func Reference(mean0, mean1 complex128) (Params, error) {
	rot, err := rotationFor(mean0, mean1)
	if err != nil {
		return Params{}, err
	}
	p := Params{Rotation: rot, Polarity: 1}
	if real(p.Apply([]complex128{mean0})[0]) < 0 {
		p.Polarity = -1
	}
	return p, nil
}

// Variance is the population variance of complex samples,
// mean(|z - mean(z)|^2), i.e. the sum of the component variances.
func Variance(samples []complex128) float64 {
	re := make([]float64, len(samples))
	im := make([]float64, len(samples))
	for i, z := range samples {
		re[i] = real(z)
		im[i] = imag(z)
	}
	return stat.PopVariance(re, nil) + stat.PopVariance(im, nil)
}

// ZeroVariancePolicy decides what ComputeLLR does when the ensemble
// variance is exactly zero.
type ZeroVariancePolicy string

const (
	// PolicySaturate maps each sample to an infinite LLR of the sign of
	// its real part, which the quantizer clips to the bound.
	PolicySaturate ZeroVariancePolicy = "saturate"
	// PolicyFail reports a DegenerateVariance error.
	PolicyFail ZeroVariancePolicy = "fail"
)

// ComputeLLR returns 2*Re(z)/variance for each calibrated sample.
func ComputeLLR(rotated []complex128, variance float64, policy ZeroVariancePolicy) ([]float64, error) {
	if math.IsNaN(variance) || math.IsInf(variance, 0) || variance < 0 {
		return nil, fault.DegenerateVariance("llr", "variance %v is not a finite non-negative value", variance)
	}
	llr := make([]float64, len(rotated))
	if variance == 0 {
		if policy != PolicySaturate {
			return nil, fault.DegenerateVariance("llr", "ensemble variance is exactly zero")
		}
		for i, z := range rotated {
			switch {
			case real(z) > 0:
				llr[i] = math.Inf(1)
			case real(z) < 0:
				llr[i] = math.Inf(-1)
			}
		}
		return llr, nil
	}
	for i, z := range rotated {
		llr[i] = 2 * real(z) / variance
	}
	return llr, nil
}
