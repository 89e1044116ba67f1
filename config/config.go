// Package config holds the options of one generator run. Values come from
// built-in defaults, an optional YAML file, then .env and LLRGEN_*
// environment variables, then command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"readout/fault"
)

// DecoderWidth is the input width of the LDPC decoder the artifacts feed.
const DecoderWidth = 576

// DemoFlips are the error-injection positions of the decoder demo.
var DemoFlips = []int{10, 50, 100, 150, 200, 250, 300, 350, 400, 450}

// Complex is a YAML friendly complex level.
type Complex struct {
	Re float64 `yaml:"re"`
	Im float64 `yaml:"im"`
}

// Value returns c as a complex128.
func (c Complex) Value() complex128 { return complex(c.Re, c.Im) }

// Output lists artifact paths. Empty optional paths disable that artifact.
type Output struct {
	LLR      string `yaml:"llr" validate:"required"`
	Truth    string `yaml:"truth" validate:"required"`
	Word32   string `yaml:"word32"`
	Manifest string `yaml:"manifest"`
	Report   string `yaml:"report"`
}

// Config holds every recognized option.
type Config struct {
	Bits         int     `yaml:"bits" validate:"gt=0"`
	DecoderWidth int     `yaml:"decoder_width" validate:"gt=0"`
	Sigma        float64 `yaml:"sigma" validate:"gte=0"`
	Scale        int     `yaml:"scale" validate:"gt=0"`
	Clip         int     `yaml:"clip" validate:"eq=127"`
	Seed         uint64  `yaml:"seed"`
	Workers      int     `yaml:"workers" validate:"gte=0"`

	TimeSamples int     `yaml:"time_samples" validate:"gt=0"`
	ReadoutTime float64 `yaml:"readout_time" validate:"gt=0"`

	Calibration  string `yaml:"calibration" validate:"oneof=ensemble reference"`
	ZeroVariance string `yaml:"zero_variance" validate:"oneof=saturate fail"`
	Codeword     string `yaml:"codeword" validate:"required"`
	Flips        []int  `yaml:"flip" validate:"unique,dive,gte=0"`

	Model     string  `yaml:"model" validate:"oneof=constant csv"`
	TraceFile string  `yaml:"trace_file" validate:"required_if=Model csv"`
	Level0    Complex `yaml:"level0"`
	Level1    Complex `yaml:"level1"`

	Out Output `yaml:"out"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogPretty bool   `yaml:"log_pretty"`
}

// Default matches the decoder bridge run: 576 random bits, sigma 0.05,
// scale 16, 500 samples over a 2 us readout window.
func Default() *Config {
	return &Config{
		Bits:         DecoderWidth,
		DecoderWidth: DecoderWidth,
		Sigma:        0.05,
		Scale:        16,
		Clip:         127,
		Seed:         1,
		TimeSamples:  500,
		ReadoutTime:  2e-6,
		Calibration:  "ensemble",
		ZeroVariance: "saturate",
		Codeword:     "random",
		Model:        "constant",
		Level0:       Complex{Re: 1},
		Level1:       Complex{Re: -1},
		Out: Output{
			LLR:   "llr_input_qutip.mem",
			Truth: "true_bits_qutip.txt",
		},
		LogLevel: "info",
	}
}

// Load builds a Config from defaults, the YAML file at path (if non-empty)
// and the environment. Env files default to .env in the working directory
// and are optional.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fault.Configuration("config", "read config file").Wrap(err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fault.Configuration("config", "parse config file %s", path).Wrap(err)
		}
	}
	_ = godotenv.Load(envFiles...)
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	intVar := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %w", key, v, err))
				return
			}
			*dst = n
		}
	}
	floatVar := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %w", key, v, err))
				return
			}
			*dst = f
		}
	}
	strVar := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	intVar("LLRGEN_BITS", &c.Bits)
	intVar("LLRGEN_SCALE", &c.Scale)
	intVar("LLRGEN_WORKERS", &c.Workers)
	floatVar("LLRGEN_SIGMA", &c.Sigma)
	strVar("LLRGEN_CALIBRATION", &c.Calibration)
	strVar("LLRGEN_ZERO_VARIANCE", &c.ZeroVariance)
	strVar("LLRGEN_CODEWORD", &c.Codeword)
	strVar("LLRGEN_MODEL", &c.Model)
	strVar("LLRGEN_TRACE_FILE", &c.TraceFile)
	strVar("LLRGEN_OUT_LLR", &c.Out.LLR)
	strVar("LLRGEN_OUT_TRUTH", &c.Out.Truth)
	strVar("LLRGEN_LOG_LEVEL", &c.LogLevel)
	if v := os.Getenv("LLRGEN_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLRGEN_SEED=%q: %w", v, err))
		} else {
			c.Seed = seed
		}
	}
	if v := os.Getenv("LLRGEN_FLIPS"); v != "" {
		flips, err := ParseFlips(v)
		if err != nil {
			errs = append(errs, err)
		} else {
			c.Flips = flips
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fault.Configuration("config", "invalid environment override").Wrap(err)
	}
	return nil
}

// ParseFlips parses a comma separated list of bit indices. "demo" selects
// DemoFlips.
func ParseFlips(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if s == "demo" {
		return append([]int(nil), DemoFlips...), nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fault.Configuration("config", "flip index %q is not an integer", p).Wrap(err)
		}
		out = append(out, n)
	}
	return out, nil
}

var validate = validator.New()

// Validate checks field constraints and cross-field invariants.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fault.Configuration("config", "%s", strings.Join(msgs, "; "))
		}
		return fault.Configuration("config", "validate").Wrap(err)
	}
	if c.Bits != c.DecoderWidth {
		return fault.Configuration("config", "bits=%d must equal decoder width %d", c.Bits, c.DecoderWidth)
	}
	for _, idx := range c.Flips {
		if idx >= c.Bits {
			return fault.Configuration("config", "flip index %d outside codeword of %d bits", idx, c.Bits)
		}
	}
	if _, _, err := c.CodewordSource(); err != nil {
		return err
	}
	return nil
}

// CodewordSource splits the codeword option into its kind (random, zeros,
// ones, file) and the file path for kind file.
func (c *Config) CodewordSource() (kind, path string, err error) {
	switch {
	case c.Codeword == "random", c.Codeword == "zeros", c.Codeword == "ones":
		return c.Codeword, "", nil
	case strings.HasPrefix(c.Codeword, "file:") && len(c.Codeword) > len("file:"):
		return "file", strings.TrimPrefix(c.Codeword, "file:"), nil
	}
	return "", "", fault.Configuration("config", "codeword %q must be random, zeros, ones or file:<path>", c.Codeword)
}
