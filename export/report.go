package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"readout/quant"
)

// IQRow is one bit of the observational IQ report.
type IQRow struct {
	Truth   uint8
	Raw     complex128 // integrated sample
	Rotated complex128 // after rotation and polarity
	LLR     float64
	Q       quant.LLR
}

var reportHeader = []string{"bit", "truth", "i", "q", "i_rot", "q_rot", "llr", "llr_q"}

// FormatIQReport renders rows as CSV. Infinite LLRs are written as +Inf/-Inf.
func FormatIQReport(rows []IQRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(reportHeader); err != nil {
		return nil, err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }
	for i, r := range rows {
		rec := []string{
			strconv.Itoa(i),
			strconv.Itoa(int(r.Truth)),
			f(real(r.Raw)), f(imag(r.Raw)),
			f(real(r.Rotated)), f(imag(r.Rotated)),
			f(r.LLR),
			strconv.Itoa(int(r.Q)),
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write report row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteIQReport writes the IQ report. It only observes computed values.
func WriteIQReport(path string, rows []IQRow) error {
	data, err := FormatIQReport(rows)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}
