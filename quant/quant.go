// Package quant maps real LLRs onto the decoder's signed 8-bit input grid
// and renders them in the memory-file encodings the decoder harness reads.
package quant

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"readout/fault"
)

// Clip is the symmetric saturation bound. -128 is never produced so that
// negation stays closed on the quantized range.
const Clip = 127

// DefaultScale is the amplification applied before rounding.
const DefaultScale = 16

// LLR is a quantized log-likelihood ratio in [-Clip, Clip].
type LLR int8

// Quantize scales llr, rounds half away from zero and clips to [-Clip, Clip].
// NaN maps to 0 and infinities saturate.
func Quantize(llr float64, scale int) LLR {
	if math.IsNaN(llr) {
		return 0
	}
	v := math.Round(llr * float64(scale))
	switch {
	case v > Clip:
		return Clip
	case v < -Clip:
		return -Clip
	case math.IsNaN(v):
		// Inf * 0 scale
		return 0
	}
	return LLR(v)
}

// QuantizeAll applies Quantize to every element of llrs.
func QuantizeAll(llrs []float64, scale int) []LLR {
	out := make([]LLR, len(llrs))
	for i, v := range llrs {
		out[i] = Quantize(v, scale)
	}
	return out
}

// EncodeHex renders v as two uppercase hex digits of its 8-bit two's
// complement form, i.e. (v mod 256).
func EncodeHex(v int) (string, error) {
	if v < -Clip || v > Clip {
		return "", fault.Encoding("quantizer", "value %d outside [-%d, %d] reached the hex encoder", v, Clip, Clip)
	}
	return fmt.Sprintf("%02X", uint8(((v%256)+256)%256)), nil
}

// DecodeHex parses two hex digits back into a signed value.
func DecodeHex(s string) (LLR, error) {
	s = strings.TrimSpace(s)
	if len(s) != 2 {
		return 0, fault.Encoding("quantizer", "memory word %q is not two hex digits", s)
	}
	u, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, fault.Encoding("quantizer", "memory word %q is not hex", s).Wrap(err)
	}
	v := int8(uint8(u))
	if v < -Clip {
		return 0, fault.Encoding("quantizer", "memory word %q decodes to %d, below -%d", s, v, Clip)
	}
	return LLR(v), nil
}

// SignExtend32 replicates bit 7 of v into the upper 24 bits, matching the
// harness load {{24{raw[7]}}, raw}.
func SignExtend32(v LLR) int32 {
	raw := uint32(uint8(v))
	if raw&0x80 != 0 {
		raw |= 0xFFFFFF00
	}
	return int32(raw)
}

// FormatWord32 renders the sign-extended value as eight uppercase hex digits.
func FormatWord32(v LLR) string {
	return fmt.Sprintf("%08X", uint32(SignExtend32(v)))
}
