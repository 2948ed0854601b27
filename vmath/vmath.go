package vmath

import "math"

const (
	LUTSize = 1024
	LUTMask = LUTSize - 1

	// TwoPi is cached to keep the hot path free of repeated multiplications
	TwoPi = 2 * math.Pi
)

// SinLUT holds one full sine period sampled at LUTSize points
var SinLUT [LUTSize]float64

func init() {
	for i := 0; i < LUTSize; i++ {
		SinLUT[i] = math.Sin(TwoPi * float64(i) / LUTSize)
	}
}

// Sin returns an approximate sine of rad using the lookup table
// Error is bounded by the table resolution (~0.3% worst case), which is
// well inside what a per-frame visual modulation can tolerate
func Sin(rad float64) float64 {
	// Two's complement AND wraps negative indices into the table
	idx := int(math.Floor(rad/TwoPi*LUTSize)) & LUTMask
	return SinLUT[idx]
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp interpolates linearly between a and b by t in [0, 1]
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Abs returns the absolute value without branching through math.Abs
func Abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
