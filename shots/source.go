package shots

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/tuneinsight/lattigo/v5/utils/sampling"
)

// Stream domains keep noise and codeword draws independent for one seed.
const (
	domainNoise    byte = 'n'
	domainCodeword byte = 'c'
)

// keyedSource adapts lattigo's keyed blake2b XOF to a math/rand/v2 Source.
type keyedSource struct {
	prng *sampling.KeyedPRNG
	buf  [8]byte
}

// Uint64 panics if the XOF cannot produce output, which only happens past
// its maximum output length.
func (s *keyedSource) Uint64() uint64 {
	if _, err := s.prng.Read(s.buf[:]); err != nil {
		panic(fmt.Sprintf("shots: keyed prng exhausted: %v", err))
	}
	return binary.LittleEndian.Uint64(s.buf[:])
}

func newKeyedSource(domain byte, seed uint64, index uint64) rand.Source {
	key := make([]byte, 17)
	key[0] = domain
	binary.BigEndian.PutUint64(key[1:9], seed)
	binary.BigEndian.PutUint64(key[9:], index)
	prng, err := sampling.NewKeyedPRNG(key)
	if err != nil {
		// blake2b only rejects keys longer than 64 bytes
		panic(fmt.Sprintf("shots: keyed prng: %v", err))
	}
	return &keyedSource{prng: prng}
}

// Source returns the noise sub-stream for one bit index. Streams for
// different bits are independent, so bits can be generated in any order
// or in parallel with identical results.
func Source(seed uint64, bit int) rand.Source {
	return newKeyedSource(domainNoise, seed, uint64(bit))
}

// RandomCodeword draws n uniform bits from the codeword stream of seed.
func RandomCodeword(seed uint64, n int) []uint8 {
	r := rand.New(newKeyedSource(domainCodeword, seed, 0))
	bits := make([]uint8, n)
	for i := range bits {
		bits[i] = uint8(r.IntN(2))
	}
	return bits
}
