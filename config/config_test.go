package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readout/fault"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 576, cfg.Bits)
	assert.Equal(t, 16, cfg.Scale)
	assert.Equal(t, 127, cfg.Clip)
	assert.Equal(t, "llr_input_qutip.mem", cfg.Out.LLR)
	assert.Equal(t, "true_bits_qutip.txt", cfg.Out.Truth)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"width mismatch":     func(c *Config) { c.Bits = 100 },
		"zero bits":          func(c *Config) { c.Bits, c.DecoderWidth = 0, 0 },
		"negative sigma":     func(c *Config) { c.Sigma = -0.1 },
		"nan sigma":          func(c *Config) { c.Sigma = math.NaN() },
		"full range clip":    func(c *Config) { c.Clip = 128 },
		"zero scale":         func(c *Config) { c.Scale = 0 },
		"zero time samples":  func(c *Config) { c.TimeSamples = 0 },
		"bad calibration":    func(c *Config) { c.Calibration = "auto" },
		"bad policy":         func(c *Config) { c.ZeroVariance = "ignore" },
		"bad codeword":       func(c *Config) { c.Codeword = "alternating" },
		"empty file":         func(c *Config) { c.Codeword = "file:" },
		"flip out of range":  func(c *Config) { c.Flips = []int{576} },
		"negative flip":      func(c *Config) { c.Flips = []int{-1} },
		"duplicate flip":     func(c *Config) { c.Flips = []int{3, 3} },
		"csv without file":   func(c *Config) { c.Model = "csv" },
		"missing llr path":   func(c *Config) { c.Out.LLR = "" },
		"missing truth path": func(c *Config) { c.Out.Truth = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, fault.ErrConfiguration), "got %v", err)
		})
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sigma: 0
codeword: zeros
calibration: reference
flip: [10, 50]
level0: {re: 0.5, im: 0.25}
out:
  llr: out/llr.mem
  word32: out/llr.word32
`), 0644))

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Sigma)
	assert.Equal(t, "zeros", cfg.Codeword)
	assert.Equal(t, "reference", cfg.Calibration)
	assert.Equal(t, []int{10, 50}, cfg.Flips)
	assert.Equal(t, complex(0.5, 0.25), cfg.Level0.Value())
	assert.Equal(t, complex(-1, 0), cfg.Level1.Value())
	assert.Equal(t, "out/llr.mem", cfg.Out.LLR)
	assert.Equal(t, "true_bits_qutip.txt", cfg.Out.Truth)
	assert.Equal(t, 576, cfg.Bits)
	require.NoError(t, cfg.Validate())
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bits: [not an int"), 0644))
	_, err := Load(path)
	assert.True(t, errors.Is(err, fault.ErrConfiguration))

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errors.Is(err, fault.ErrConfiguration))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LLRGEN_SIGMA", "0.2")
	t.Setenv("LLRGEN_SEED", "99")
	t.Setenv("LLRGEN_FLIPS", "demo")
	t.Setenv("LLRGEN_CODEWORD", "ones")

	cfg, err := Load("", filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Sigma)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, DemoFlips, cfg.Flips)
	assert.Equal(t, "ones", cfg.Codeword)
}

func TestLoadEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "run.env")
	require.NoError(t, os.WriteFile(envFile, []byte("LLRGEN_SCALE=8\n"), 0644))
	t.Setenv("LLRGEN_SCALE", "")
	os.Unsetenv("LLRGEN_SCALE")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Scale)
}

func TestLoadEnvInvalid(t *testing.T) {
	t.Setenv("LLRGEN_BITS", "many")
	_, err := Load("", filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrConfiguration))
}

func TestParseFlips(t *testing.T) {
	got, err := ParseFlips("1, 2,3")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	got, err = ParseFlips("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseFlips("1,x")
	assert.True(t, errors.Is(err, fault.ErrConfiguration))
}

func TestCodewordSource(t *testing.T) {
	cfg := Default()
	cfg.Codeword = "file:bits.txt"
	kind, path, err := cfg.CodewordSource()
	require.NoError(t, err)
	assert.Equal(t, "file", kind)
	assert.Equal(t, "bits.txt", path)
}
