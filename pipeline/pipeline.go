// Package pipeline runs the readout-to-LLR stages in order: expected
// traces, shot synthesis and integration, calibration, LLR computation,
// quantization and export. It stops at the first failure and never retries.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"readout/calib"
	"readout/config"
	"readout/export"
	"readout/fault"
	"readout/quant"
	"readout/shots"
	"readout/trajectory"
	"readout/utils"
)

// Result holds every intermediate of one run.
type Result struct {
	Truth     []uint8
	Signalled []uint8
	Samples   []complex128 // integrated, before calibration
	Rotated   []complex128
	Params    calib.Params
	LLR       []float64
	Quantized []quant.LLR
	Manifest  *export.Manifest // nil unless out.manifest is set
	Timings   utils.StageTimings
}

// HardErrors counts bits whose quantized sign disagrees with ground truth.
// A zero LLR reads as logical 0.
func (r *Result) HardErrors() int {
	n := 0
	for i, q := range r.Quantized {
		var bit uint8
		if q < 0 {
			bit = 1
		}
		if bit != r.Truth[i] {
			n++
		}
	}
	return n
}

// BuildModel returns the trajectory model and time grid selected by cfg.
func BuildModel(cfg *config.Config) (trajectory.Model, trajectory.TimeGrid, error) {
	switch cfg.Model {
	case "csv":
		m, err := trajectory.LoadCSV(cfg.TraceFile)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Grid, nil
	case "constant":
		grid := trajectory.Linspace(0, cfg.ReadoutTime, cfg.TimeSamples)
		return trajectory.Constant{Level0: cfg.Level0.Value(), Level1: cfg.Level1.Value()}, grid, nil
	}
	return nil, nil, fault.Configuration("pipeline", "unknown trajectory model %q", cfg.Model)
}

// Codeword resolves the ground-truth bits selected by cfg.
func Codeword(cfg *config.Config) ([]uint8, error) {
	kind, path, err := cfg.CodewordSource()
	if err != nil {
		return nil, err
	}
	var bits []uint8
	switch kind {
	case "random":
		bits = shots.RandomCodeword(cfg.Seed, cfg.Bits)
	case "zeros":
		bits = make([]uint8, cfg.Bits)
	case "ones":
		bits = make([]uint8, cfg.Bits)
		for i := range bits {
			bits[i] = 1
		}
	case "file":
		if bits, err = export.ReadTruth(path); err != nil {
			return nil, err
		}
	}
	if len(bits) == 0 {
		return nil, fault.Configuration("pipeline", "codeword is empty")
	}
	if len(bits) != cfg.Bits {
		return nil, fault.Configuration("pipeline", "codeword has %d bits, configured for %d", len(bits), cfg.Bits)
	}
	return bits, nil
}

// Run builds the model from cfg and executes the pipeline.
func Run(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model, grid, err := BuildModel(cfg)
	if err != nil {
		return nil, err
	}
	return RunModel(ctx, cfg, model, grid, log)
}

// RunModel executes the pipeline against an externally supplied model.
func RunModel(ctx context.Context, cfg *config.Config, model trajectory.Model, grid trajectory.TimeGrid, log zerolog.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	res := &Result{}
	start := time.Now()
	defer func() { res.Timings.TotalTime = time.Since(start) }()

	truth, err := Codeword(cfg)
	if err != nil {
		return nil, err
	}
	res.Truth = truth
	if res.Signalled, err = shots.Signalled(truth, cfg.Flips); err != nil {
		return nil, err
	}

	t0 := time.Now()
	exp, err := trajectory.Resolve(model, grid)
	if err != nil {
		return nil, err
	}
	utils.Track(&res.Timings.TraceTime, t0)
	log.Debug().Str("stage", "trajectory").Int("samples", len(grid)).Msg("resolved expected traces")

	t0 = time.Now()
	synth := shots.Synthesizer{Sigma: cfg.Sigma, Seed: cfg.Seed, Workers: cfg.Workers}
	if res.Samples, err = synth.Integrated(ctx, exp, res.Signalled); err != nil {
		return nil, err
	}
	utils.Track(&res.Timings.SynthesisTime, t0)
	log.Debug().Str("stage", "synthesizer").Int("bits", len(res.Samples)).Float64("sigma", cfg.Sigma).Msg("integrated shots")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t0 = time.Now()
	if res.Params, res.Rotated, err = calibrate(cfg, exp, res.Samples, truth); err != nil {
		return nil, err
	}
	utils.Track(&res.Timings.CalibrateTime, t0)

	t0 = time.Now()
	res.Params.Variance = calib.Variance(res.Rotated)
	if res.LLR, err = calib.ComputeLLR(res.Rotated, res.Params.Variance, calib.ZeroVariancePolicy(cfg.ZeroVariance)); err != nil {
		return nil, err
	}
	utils.Track(&res.Timings.LLRTime, t0)
	log.Debug().
		Str("stage", "calibrator").
		Str("mode", cfg.Calibration).
		Float64("rotation", res.Params.Rotation).
		Int("polarity", res.Params.Polarity).
		Float64("variance", res.Params.Variance).
		Msg("calibrated ensemble")
	if res.Params.Variance == 0 {
		log.Warn().Str("stage", "llr").Str("policy", cfg.ZeroVariance).Msg("ensemble variance is zero, LLRs saturated")
	}

	t0 = time.Now()
	res.Quantized = quant.QuantizeAll(res.LLR, cfg.Scale)
	utils.Track(&res.Timings.QuantizeTime, t0)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := writeArtifacts(cfg, res, len(grid), log); err != nil {
		return nil, err
	}
	log.Info().Int("bits", len(truth)).Int("hard_errors", res.HardErrors()).Float64("elapsed_us", utils.DurationUS(time.Since(start))).Msg("pipeline complete")
	return res, nil
}

func calibrate(cfg *config.Config, exp *trajectory.Expected, samples []complex128, truth []uint8) (calib.Params, []complex128, error) {
	if calib.Mode(cfg.Calibration) == calib.ModeReference {
		m0, err := shots.Integrate(exp.Zero)
		if err != nil {
			return calib.Params{}, nil, err
		}
		m1, err := shots.Integrate(exp.One)
		if err != nil {
			return calib.Params{}, nil, err
		}
		p, err := calib.Reference(m0, m1)
		if err != nil {
			return calib.Params{}, nil, err
		}
		return p, p.Apply(samples), nil
	}
	return calib.Calibrate(samples, truth)
}
