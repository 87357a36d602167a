package fmath

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Clamp limits v to the inclusive range [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Finite returns v unless it is NaN or infinite, in which case fallback is
// returned. Height and probability arithmetic must never leak non-finite
// values.
func Finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Lerp interpolates linearly between a and b by t in [0, 1].
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// FloorCoord maps a continuous world ordinate to the chunk ordinate it falls
// in for the chunk size passed.
func FloorCoord(v float64, size int) int32 {
	return int32(math.Floor(v / float64(size)))
}

// Pack2 packs two chunk ordinates into a single int64 map key.
func Pack2(x, z int32) int64 {
	return int64(x)<<32 | int64(uint32(z))
}

// Pack3 packs three chunk ordinates into a single int64 map key. Each
// ordinate must fit in 21 bits, far beyond the coordinate range the streaming
// radii can reach.
func Pack3(x, y, z int32) int64 {
	const mask = 1<<21 - 1
	return int64(x&mask)<<42 | int64(y&mask)<<21 | int64(z&mask)
}
