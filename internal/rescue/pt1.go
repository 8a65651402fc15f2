package rescue

import "math"

// clampF restricts v to [lo, hi]. gonum has no scalar clamp helper, so this
// stays a plain math-package one-liner rather than a fabricated gonum call;
// see DESIGN.md's standard-library justification for pt1.go.
func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalize180 folds deg into (-180, 180] by adding or subtracting 360 at
// most once, per spec.md §4.2.
func normalize180(deg float64) float64 {
	if deg > 180 {
		return deg - 360
	}
	if deg <= -180 {
		return deg + 360
	}
	return deg
}

// pt1FilterGain computes the gain of a single-pole low-pass filter with
// cutoff cutoffHz and sample interval dt: dt / (dt + tau), tau = 1/(2*pi*f).
func pt1FilterGain(cutoffHz, dt float64) float64 {
	tau := 1.0 / (2.0 * math.Pi * cutoffHz)
	return dt / (dt + tau)
}
