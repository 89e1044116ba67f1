package export

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readout/calib"
	"readout/fault"
	"readout/quant"
)

func TestWriteLLRMemLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llr_input.mem")
	require.NoError(t, WriteLLRMem(path, []quant.LLR{127, -127, 0, -1, 16}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7F\n81\n00\nFF\n10\n", string(data))
}

func TestReadLLRMemRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "llr.mem")
	var in []quant.LLR
	for v := -quant.Clip; v <= quant.Clip; v++ {
		in = append(in, quant.LLR(v))
	}
	require.NoError(t, WriteLLRMem(path, in))

	got, err := ReadLLRMem(path, len(in))
	require.NoError(t, err)
	assert.Equal(t, in, got)

	_, err = ReadLLRMem(path, len(in)+1)
	assert.True(t, errors.Is(err, fault.ErrConfiguration))
}

func TestReadLLRMemRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mem")
	require.NoError(t, os.WriteFile(path, []byte("7F\n80\n"), 0644))
	_, err := ReadLLRMem(path, 2)
	assert.True(t, errors.Is(err, fault.ErrEncoding))
}

func TestWriteTruth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "true_bits.txt")
	require.NoError(t, WriteTruth(path, []uint8{0, 1, 1, 0}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n1\n0\n", string(data))

	err = WriteTruth(path, []uint8{0, 2})
	assert.True(t, errors.Is(err, fault.ErrConfiguration))
}

func TestWriteWord32(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llr.word32")
	require.NoError(t, WriteWord32(path, []quant.LLR{127, -127, -1}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0000007F\nFFFFFF81\nFFFFFFFF\n", string(data))
}

func TestFormatRejectsUnclipped(t *testing.T) {
	_, err := FormatLLRMem([]quant.LLR{0, -128})
	assert.True(t, errors.Is(err, fault.ErrEncoding))
	_, err = FormatWord32([]quant.LLR{-128})
	assert.True(t, errors.Is(err, fault.ErrEncoding))
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteTruth(filepath.Join(dir, "bits.txt"), []uint8{1}))
	require.NoError(t, WriteTruth(filepath.Join(dir, "bits.txt"), []uint8{0}))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bits.txt", entries[0].Name())
}

func TestManifestRecordAndLoad(t *testing.T) {
	dir := t.TempDir()
	mem := filepath.Join(dir, "llr.mem")
	require.NoError(t, WriteLLRMem(mem, []quant.LLR{127, 127}))

	m := NewManifest(RunParameters{Bits: 2, Seed: 9, Calibration: "reference"}, calib.Params{Rotation: 1, Polarity: -1, Variance: 0.5})
	require.NoError(t, m.Record("llr", mem))
	require.Len(t, m.Artifacts, 1)
	assert.Equal(t, 2, m.Artifacts[0].Lines)
	assert.Equal(t, Digest([]byte("7F\n7F\n")), m.Artifacts[0].SHA256)
	assert.NotEmpty(t, m.RunID)

	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, m.Save(path))
	loaded, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, loaded.RunID)
	assert.Equal(t, m.Parameters, loaded.Parameters)
	assert.Equal(t, m.Calibration, loaded.Calibration)
	assert.Equal(t, m.Artifacts, loaded.Artifacts)

	assert.Error(t, m.Record("missing", filepath.Join(dir, "nope")))
}

func TestIQReport(t *testing.T) {
	data, err := FormatIQReport([]IQRow{
		{Truth: 0, Raw: 1 + 2i, Rotated: 2 - 1i, LLR: 3.5, Q: 56},
		{Truth: 1, Raw: -1, Rotated: -1, LLR: -2, Q: -32},
	})
	require.NoError(t, err)
	recs, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, reportHeader, recs[0])
	assert.Equal(t, []string{"0", "0", "1", "2", "2", "-1", "3.5", "56"}, recs[1])
	assert.Equal(t, []string{"1", "1", "-1", "0", "-1", "0", "-2", "-32"}, recs[2])
}

func TestReadTruth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bits.txt")
	require.NoError(t, WriteTruth(path, []uint8{1, 0, 1}))
	bits, err := ReadTruth(path)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 0, 1}, bits)

	require.NoError(t, os.WriteFile(path, []byte("0\n2\n"), 0644))
	_, err = ReadTruth(path)
	assert.True(t, errors.Is(err, fault.ErrConfiguration))
}
