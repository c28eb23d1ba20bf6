// Package fingerprint computes and compares perceptual image fingerprints.
//
// The fingerprint is a difference hash (dHash): a 9x8 grayscale grid yields
// one bit per horizontal neighbor pair, 64 bits total, encoded as 16 hex
// characters. Row-major order with a left-minus-right comparison is part of
// the wire contract; two implementations must agree on it or their hashes
// are not comparable.
package fingerprint

import (
	"fmt"
	"math/bits"
)

// Grid and hash dimensions.
const (
	GridWidth  = 9 // one extra column so every row yields GridWidth-1 comparisons
	GridHeight = 8
	HashBits   = 64
	HexLen     = 16

	// DistanceInfinite is returned when two fingerprints cannot be compared.
	// It exceeds every valid threshold, so "never similar" falls out of the
	// ordinary <= comparison without a special case at the call site.
	DistanceInfinite = HashBits + 1
)

// Gray is the fixed 9x8 grayscale grid the hash is computed from. Producing
// it from image bytes is the pixel source's job (see the pixels adapter).
type Gray [GridHeight][GridWidth]uint8

// FromGray computes the 64-bit difference hash of g, encoded as 16 lowercase
// hex characters. Bit order is row-major; a bit is 1 iff the left pixel is
// strictly brighter than its right neighbor.
func FromGray(g Gray) string {
	var h uint64
	for row := 0; row < GridHeight; row++ {
		for col := 0; col < GridWidth-1; col++ {
			h <<= 1
			if g[row][col] > g[row][col+1] {
				h |= 1
			}
		}
	}
	return fmt.Sprintf("%016x", h)
}

// Distance returns the Hamming distance between two hex-encoded fingerprints,
// or DistanceInfinite when either is absent, the lengths differ, or a side is
// not valid hex. It never fails: callers rely on a total order for threshold
// comparisons.
func Distance(a, b string) int {
	if a == "" || b == "" || len(a) != len(b) {
		return DistanceInfinite
	}
	d := 0
	for i := 0; i < len(a); i++ {
		na, ok := hexNibble(a[i])
		if !ok {
			return DistanceInfinite
		}
		nb, ok := hexNibble(b[i])
		if !ok {
			return DistanceInfinite
		}
		d += bits.OnesCount8(na ^ nb)
	}
	return d
}

// SimilarityPercent derives a display-only percentage from a Hamming
// distance. It is never used in comparison logic.
func SimilarityPercent(distance int) int {
	if distance < 0 || distance > HashBits {
		return 0
	}
	return int(float64(HashBits-distance)/float64(HashBits)*100 + 0.5)
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
