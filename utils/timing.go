package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether timing statistics are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// StageTimings holds wall time spent in each pipeline stage
type StageTimings struct {
	TotalTime     time.Duration
	TraceTime     time.Duration
	SynthesisTime time.Duration
	CalibrateTime time.Duration
	LLRTime       time.Duration
	QuantizeTime  time.Duration
	ExportTime    time.Duration
	ReportTime    time.Duration
}

// Track adds the time elapsed since start to *d.
// Use as `defer utils.Track(&stats.ExportTime, time.Now())`.
func Track(d *time.Duration, start time.Time) {
	*d += time.Since(start)
}

func share(part, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// PrintStageTimings prints the per-stage breakdown for a run over bits bits.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintStageTimings(stats *StageTimings, bits int) {
	if !Verbose {
		return
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total run time: %v\n", stats.TotalTime)
	if bits > 0 {
		fmt.Fprintf(Output, "Average time per bit: %v\n", stats.TotalTime/time.Duration(bits))
	}
	fmt.Fprintf(Output, "Bits processed: %d\n", bits)
	fmt.Fprintln(Output, "\nBreakdown by stage:")
	fmt.Fprintf(Output, "  Trace model: %v (%.1f%%)\n", stats.TraceTime, share(stats.TraceTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Shot synthesis + integration: %v (%.1f%%)\n", stats.SynthesisTime, share(stats.SynthesisTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Calibration: %v (%.1f%%)\n", stats.CalibrateTime, share(stats.CalibrateTime, stats.TotalTime))
	fmt.Fprintf(Output, "  LLR computation: %v (%.1f%%)\n", stats.LLRTime, share(stats.LLRTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Quantization: %v (%.1f%%)\n", stats.QuantizeTime, share(stats.QuantizeTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Export: %v (%.1f%%)\n", stats.ExportTime, share(stats.ExportTime, stats.TotalTime))
	if stats.ReportTime > 0 {
		fmt.Fprintf(Output, "  IQ report: %v (%.1f%%)\n", stats.ReportTime, share(stats.ReportTime, stats.TotalTime))
	}
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
