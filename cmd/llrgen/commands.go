package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"readout/config"
	"readout/export"
	"readout/fault"
	"readout/logging"
	"readout/pipeline"
	"readout/quant"
	"readout/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

type runFlags struct {
	configPath string
	envFile    string
	flips      string
	demoFlips  bool
	timings    bool
}

type verifyFlags struct {
	llrPath   string
	truthPath string
	bits      int
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "llrgen",
		Short:         "Generate quantized LLR memory files from simulated readout",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	root.AddCommand(newRunCmd(), newVerifyCmd())
	return root
}

// =============================================================================
// RUN COMMAND
// =============================================================================

func newRunCmd() *cobra.Command {
	cfg := config.Default()
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Synthesize shots, calibrate, quantize and export LLRs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadRunConfig(cmd, cfg, rf)
			if err != nil {
				return err
			}
			return runPipeline(cmd, loaded, rf)
		},
	}

	f := cmd.Flags()
	f.StringVar(&rf.configPath, "config", "", "YAML config file")
	f.StringVar(&rf.envFile, "env-file", "", "env file with LLRGEN_* overrides (default .env)")
	f.IntVar(&cfg.Bits, "bits", cfg.Bits, "codeword length N")
	f.IntVar(&cfg.DecoderWidth, "decoder-width", cfg.DecoderWidth, "decoder input width N must match")
	f.Float64Var(&cfg.Sigma, "sigma", cfg.Sigma, "per-component noise standard deviation")
	f.IntVar(&cfg.Scale, "scale", cfg.Scale, "quantization scale factor")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel shot workers (0 = GOMAXPROCS)")
	f.IntVar(&cfg.TimeSamples, "time-samples", cfg.TimeSamples, "samples per readout trace")
	f.Float64Var(&cfg.ReadoutTime, "readout-time", cfg.ReadoutTime, "readout window in seconds")
	f.StringVar(&cfg.Calibration, "calibration", cfg.Calibration, "calibration mode: ensemble or reference")
	f.StringVar(&cfg.ZeroVariance, "zero-variance", cfg.ZeroVariance, "zero variance policy: saturate or fail")
	f.StringVar(&cfg.Codeword, "codeword", cfg.Codeword, "codeword: random, zeros, ones or file:<path>")
	f.StringVar(&rf.flips, "flip", "", "comma separated bit indices to inject as errors")
	f.BoolVar(&rf.demoFlips, "demo-flips", false, "inject the decoder demo error pattern")
	f.StringVar(&cfg.Model, "model", cfg.Model, "trajectory model: constant or csv")
	f.StringVar(&cfg.TraceFile, "trace-file", "", "CSV traces for --model=csv")
	f.Float64Var(&cfg.Level0.Re, "level0-re", cfg.Level0.Re, "constant model: real level of state 0")
	f.Float64Var(&cfg.Level0.Im, "level0-im", cfg.Level0.Im, "constant model: imaginary level of state 0")
	f.Float64Var(&cfg.Level1.Re, "level1-re", cfg.Level1.Re, "constant model: real level of state 1")
	f.Float64Var(&cfg.Level1.Im, "level1-im", cfg.Level1.Im, "constant model: imaginary level of state 1")
	f.StringVar(&cfg.Out.LLR, "out-llr", cfg.Out.LLR, "LLR memory file")
	f.StringVar(&cfg.Out.Truth, "out-truth", cfg.Out.Truth, "ground-truth bit file")
	f.StringVar(&cfg.Out.Word32, "out-word32", "", "sign-extended 32-bit word file")
	f.StringVar(&cfg.Out.Manifest, "out-manifest", "", "JSON reproducibility manifest")
	f.StringVar(&cfg.Out.Report, "out-report", "", "IQ scatter CSV report")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	f.BoolVar(&cfg.LogPretty, "pretty", false, "human readable logs")
	f.BoolVar(&rf.timings, "timings", false, "print per-stage timing statistics")
	return cmd
}

// loadRunConfig layers file and environment under the flags the user set
// explicitly. flagCfg holds flag values on top of defaults.
func loadRunConfig(cmd *cobra.Command, flagCfg *config.Config, rf *runFlags) (*config.Config, error) {
	var envFiles []string
	if rf.envFile != "" {
		envFiles = append(envFiles, rf.envFile)
	}
	cfg, err := config.Load(rf.configPath, envFiles...)
	if err != nil {
		return nil, err
	}

	set := cmd.Flags().Changed
	apply := map[string]func(){
		"bits":          func() { cfg.Bits = flagCfg.Bits },
		"decoder-width": func() { cfg.DecoderWidth = flagCfg.DecoderWidth },
		"sigma":         func() { cfg.Sigma = flagCfg.Sigma },
		"scale":         func() { cfg.Scale = flagCfg.Scale },
		"seed":          func() { cfg.Seed = flagCfg.Seed },
		"workers":       func() { cfg.Workers = flagCfg.Workers },
		"time-samples":  func() { cfg.TimeSamples = flagCfg.TimeSamples },
		"readout-time":  func() { cfg.ReadoutTime = flagCfg.ReadoutTime },
		"calibration":   func() { cfg.Calibration = flagCfg.Calibration },
		"zero-variance": func() { cfg.ZeroVariance = flagCfg.ZeroVariance },
		"codeword":      func() { cfg.Codeword = flagCfg.Codeword },
		"model":         func() { cfg.Model = flagCfg.Model },
		"trace-file":    func() { cfg.TraceFile = flagCfg.TraceFile },
		"level0-re":     func() { cfg.Level0.Re = flagCfg.Level0.Re },
		"level0-im":     func() { cfg.Level0.Im = flagCfg.Level0.Im },
		"level1-re":     func() { cfg.Level1.Re = flagCfg.Level1.Re },
		"level1-im":     func() { cfg.Level1.Im = flagCfg.Level1.Im },
		"out-llr":       func() { cfg.Out.LLR = flagCfg.Out.LLR },
		"out-truth":     func() { cfg.Out.Truth = flagCfg.Out.Truth },
		"out-word32":    func() { cfg.Out.Word32 = flagCfg.Out.Word32 },
		"out-manifest":  func() { cfg.Out.Manifest = flagCfg.Out.Manifest },
		"out-report":    func() { cfg.Out.Report = flagCfg.Out.Report },
		"log-level":     func() { cfg.LogLevel = flagCfg.LogLevel },
		"pretty":        func() { cfg.LogPretty = flagCfg.LogPretty },
	}
	for name, fn := range apply {
		if set(name) {
			fn()
		}
	}

	if set("flip") {
		flips, err := config.ParseFlips(rf.flips)
		if err != nil {
			return nil, err
		}
		cfg.Flips = flips
	}
	if rf.demoFlips {
		cfg.Flips = append([]int(nil), config.DemoFlips...)
	}
	return cfg, nil
}

func runPipeline(cmd *cobra.Command, cfg *config.Config, rf *runFlags) error {
	log := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Out: cmd.ErrOrStderr()})
	log.Debug().Int("bits", cfg.Bits).Float64("sigma", cfg.Sigma).Uint64("seed", cfg.Seed).Msg("starting run")

	res, err := pipeline.Run(cmd.Context(), cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		return err
	}

	out := cmd.OutOrStdout()
	printSummary(out, cfg, res)
	if rf.timings {
		utils.Output = out
		utils.PrintStageTimings(&res.Timings, len(res.Truth))
	}
	return nil
}

func printSummary(w io.Writer, cfg *config.Config, res *pipeline.Result) {
	fmt.Fprintln(w, "--- LLR GENERATION COMPLETE ---")
	fmt.Fprintf(w, "  Bits:        %d\n", len(res.Truth))
	fmt.Fprintf(w, "  Calibration: %s (rotation %.6f rad, polarity %+d)\n", cfg.Calibration, res.Params.Rotation, res.Params.Polarity)
	fmt.Fprintf(w, "  Variance:    %.6g\n", res.Params.Variance)
	fmt.Fprintf(w, "  Hard errors: %d\n", res.HardErrors())
	fmt.Fprintf(w, "  > %s\n", cfg.Out.LLR)
	fmt.Fprintf(w, "  > %s\n", cfg.Out.Truth)
	for _, p := range []string{cfg.Out.Word32, cfg.Out.Report, cfg.Out.Manifest} {
		if p != "" {
			fmt.Fprintf(w, "  > %s\n", p)
		}
	}
}

// =============================================================================
// VERIFY COMMAND
// =============================================================================

func newVerifyCmd() *cobra.Command {
	vf := &verifyFlags{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an LLR memory file against the decoder input contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return verify(cmd.OutOrStdout(), vf)
		},
	}
	cmd.Flags().StringVar(&vf.llrPath, "llr", "llr_input_qutip.mem", "LLR memory file")
	cmd.Flags().StringVar(&vf.truthPath, "truth", "", "optional ground-truth file to compare hard decisions against")
	cmd.Flags().IntVar(&vf.bits, "bits", config.DecoderWidth, "expected number of lines")
	return cmd
}

func verify(w io.Writer, vf *verifyFlags) error {
	llrs, err := export.ReadLLRMem(vf.llrPath, vf.bits)
	if err != nil {
		return err
	}
	var pos, neg, zero int
	for _, v := range llrs {
		switch {
		case v > 0:
			pos++
		case v < 0:
			neg++
		default:
			zero++
		}
	}
	fmt.Fprintf(w, "%s: %d words OK (range [-%d, %d])\n", vf.llrPath, len(llrs), quant.Clip, quant.Clip)
	fmt.Fprintf(w, "  positive (reads 0): %d\n  negative (reads 1): %d\n  zero: %d\n", pos, neg, zero)

	if vf.truthPath == "" {
		return nil
	}
	truth, err := export.ReadTruth(vf.truthPath)
	if err != nil {
		return err
	}
	if len(truth) != len(llrs) {
		return fault.Configuration("verify", "truth file has %d bits, memory file has %d", len(truth), len(llrs))
	}
	mismatches := 0
	for i, v := range llrs {
		hard := uint8(0)
		if v < 0 {
			hard = 1
		}
		if hard != truth[i] {
			mismatches++
		}
	}
	fmt.Fprintf(w, "  hard-decision mismatches vs %s: %d\n", vf.truthPath, mismatches)
	return nil
}
