// llrgen: converts simulated qubit readout into quantized LLR memory files
// for the LDPC decoder harness.
//
// Usage:
//
//	llrgen run --sigma=0.05 --seed=7
//	llrgen run --codeword=zeros --sigma=0 --calibration=reference --demo-flips
//	llrgen verify --llr=llr_input_qutip.mem --truth=true_bits_qutip.txt
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"readout/fault"
)

// Exit codes
const (
	exitOK         = 0
	exitUsage      = 1
	exitConfig     = 2
	exitDegenerate = 3
	exitOutput     = 4
)

// usageError marks bad command lines so they are not reported as I/O failures.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) || errors.Is(err, context.Canceled) {
		return exitUsage
	}
	var fe *fault.Error
	if !errors.As(err, &fe) {
		return exitOutput
	}
	switch fe.Kind {
	case fault.KindConfiguration:
		return exitConfig
	case fault.KindDegenerateEnsemble, fault.KindDegenerateVariance:
		return exitDegenerate
	default:
		return exitOutput
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}
