package standardize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/bits"
	"slices"
	"strconv"

	"DeSynth/pkg/dsp"
)

// pHashBand is the edge of the low-frequency DCT band the hash is built from
const pHashBand = 8

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// perceptualHash builds the 64-bit DCT hash of a PHashSize×PHashSize luma sample.
// The DC term is excluded, leaving 63 coefficients; the final bit is always 0.
func perceptualHash(sample []float64) string {
	coeffs := dsp.DCTLowBand(sample, PHashSize, pHashBand)
	values := coeffs[1:]

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	median := sorted[len(sorted)/2]

	var h uint64
	for i, v := range values {
		if v > median {
			h |= 1 << (63 - uint(i))
		}
	}
	return fmt.Sprintf("%016x", h)
}

// HammingDistance counts differing bits between two perceptual hashes
func HammingDistance(a, b string) (int, error) {
	if len(a) != 16 || len(b) != 16 {
		return 0, fmt.Errorf("perceptual hashes must be 16 hex characters, got %d and %d", len(a), len(b))
	}
	x, err := strconv.ParseUint(a, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hash %q: %w", a, err)
	}
	y, err := strconv.ParseUint(b, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hash %q: %w", b, err)
	}
	return bits.OnesCount64(x ^ y), nil
}
