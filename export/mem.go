// Package export writes the artifacts consumed by the decoder harness:
// the LLR memory file, the ground-truth bit file, the sign-extended word
// file, and a reproducibility manifest.
package export

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"readout/fault"
	"readout/quant"
)

// writeAtomic writes data to a temp file next to path and renames it in place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

// FormatLLRMem renders one two-digit hex word per line.
func FormatLLRMem(llrs []quant.LLR) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(llrs) * 3)
	for i, v := range llrs {
		s, err := quant.EncodeHex(int(v))
		if err != nil {
			return nil, fmt.Errorf("bit %d: %w", i, err)
		}
		buf.WriteString(s)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// FormatTruth renders one decimal bit per line.
func FormatTruth(bits []uint8) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(bits) * 2)
	for i, b := range bits {
		if b > 1 {
			return nil, fault.Configuration("exporter", "codeword bit %d has value %d", i, b)
		}
		buf.WriteByte('0' + b)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// FormatWord32 renders each value sign-extended to 32 bits, one per line.
func FormatWord32(llrs []quant.LLR) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(llrs) * 9)
	for i, v := range llrs {
		if v < -quant.Clip {
			return nil, fault.Encoding("exporter", "bit %d value %d below clip bound", i, v)
		}
		buf.WriteString(quant.FormatWord32(v))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// WriteLLRMem writes the LLR memory file.
func WriteLLRMem(path string, llrs []quant.LLR) error {
	data, err := FormatLLRMem(llrs)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// WriteTruth writes the ground-truth bit file.
func WriteTruth(path string, bits []uint8) error {
	data, err := FormatTruth(bits)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// WriteWord32 writes the sign-extended harness input file.
func WriteWord32(path string, llrs []quant.LLR) error {
	data, err := FormatWord32(llrs)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// ReadLLRMem parses a memory file and checks it holds exactly n words.
func ReadLLRMem(path string, n int) ([]quant.LLR, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory file: %w", err)
	}
	defer f.Close()

	var out []quant.LLR
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimRight(sc.Text(), "\r")
		v, err := quant.DecodeHex(text)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read memory file: %w", err)
	}
	if len(out) != n {
		return nil, fault.Configuration("exporter", "memory file has %d lines, decoder expects %d", len(out), n)
	}
	return out, nil
}

// ReadTruth parses a ground-truth file written by WriteTruth.
func ReadTruth(path string) ([]uint8, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.Configuration("exporter", "open codeword file").Wrap(err)
	}
	defer f.Close()

	var bits []uint8
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		switch strings.TrimSpace(sc.Text()) {
		case "0":
			bits = append(bits, 0)
		case "1":
			bits = append(bits, 1)
		case "":
			continue
		default:
			return nil, fault.Configuration("exporter", "%s line %d is not 0 or 1", filepath.Base(path), line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fault.Configuration("exporter", "read codeword file").Wrap(err)
	}
	return bits, nil
}
