package quant

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readout/fault"
)

func TestHexRoundTrip(t *testing.T) {
	for v := -Clip; v <= Clip; v++ {
		s, err := EncodeHex(v)
		require.NoError(t, err)
		require.Len(t, s, 2)
		got, err := DecodeHex(s)
		require.NoError(t, err)
		require.Equal(t, v, int(got), "round trip of %d via %q", v, s)
	}
}

func TestEncodeHexKnownValues(t *testing.T) {
	cases := map[int]string{127: "7F", -127: "81", 0: "00", -1: "FF", 1: "01", 16: "10"}
	for v, want := range cases {
		got, err := EncodeHex(v)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestEncodeHexRejectsUnclipped(t *testing.T) {
	for _, v := range []int{-128, 128, 300, -1000} {
		_, err := EncodeHex(v)
		require.Error(t, err)
		assert.True(t, errors.Is(err, fault.ErrEncoding))
	}
}

func TestDecodeHexRejects(t *testing.T) {
	for _, s := range []string{"80", "7", "7FF", "ZZ", ""} {
		_, err := DecodeHex(s)
		assert.Error(t, err, "input %q", s)
	}
	v, err := DecodeHex("7f")
	require.NoError(t, err)
	assert.Equal(t, LLR(127), v)
}

func TestQuantizeBounded(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	inputs := []float64{math.Inf(1), math.Inf(-1), math.NaN(), math.MaxFloat64, -math.MaxFloat64, 0, -0.0}
	for i := 0; i < 2000; i++ {
		inputs = append(inputs, (r.Float64()-0.5)*1e6)
	}
	for _, scale := range []int{0, 1, 16, 1000, -16} {
		for _, in := range inputs {
			q := Quantize(in, scale)
			require.GreaterOrEqual(t, int(q), -Clip)
			require.LessOrEqual(t, int(q), Clip)
		}
	}
}

func TestQuantizeRounding(t *testing.T) {
	assert.Equal(t, LLR(2), Quantize(0.125, 16))
	assert.Equal(t, LLR(-2), Quantize(-0.125, 16))
	assert.Equal(t, LLR(1), Quantize(0.04, 16))
	assert.Equal(t, LLR(0), Quantize(0.03, 16))
	assert.Equal(t, LLR(127), Quantize(29.4, 16))
	assert.Equal(t, LLR(-127), Quantize(-29.4, 16))
	assert.Equal(t, LLR(0), Quantize(math.NaN(), 16))
	assert.Equal(t, LLR(127), Quantize(math.Inf(1), 16))
}

func TestQuantizeAll(t *testing.T) {
	got := QuantizeAll([]float64{1, -1, 100}, 16)
	assert.Equal(t, []LLR{16, -16, 127}, got)
}

func TestSignExtend32(t *testing.T) {
	assert.Equal(t, int32(127), SignExtend32(127))
	assert.Equal(t, int32(-127), SignExtend32(-127))
	assert.Equal(t, int32(-1), SignExtend32(-1))
	assert.Equal(t, "0000007F", FormatWord32(127))
	assert.Equal(t, "FFFFFF81", FormatWord32(-127))
	assert.Equal(t, "00000000", FormatWord32(0))
	for v := -Clip; v <= Clip; v++ {
		assert.Equal(t, int32(v), SignExtend32(LLR(v)))
	}
}
