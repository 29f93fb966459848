// Package fuzzy provides magnitude-relative floating-point comparisons.
//
// Timing and capacitance values span many orders of magnitude and accumulate
// rounding noise through repeated arithmetic. Comparing them exactly causes
// pruning loops in the rebuffer engine, so its pruning and option-selection
// comparisons go through this package: two values are considered equal when
// they agree within an
// absolute tolerance or within a small fraction of their magnitudes.
package fuzzy

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Default absolute tolerances, chosen well below the resolution that matters
// for each quantity.
const (
	// TimeTol is the absolute tolerance for delay, slew and required-time
	// comparisons, in seconds.
	TimeTol = 1e-15

	// CapTol is the absolute tolerance for capacitance comparisons, in farads.
	CapTol = 1e-21

	// relTol normalizes the tolerance to the magnitudes involved.
	relTol = 1e-9
)

// Equal reports whether a and b agree within tol absolutely or within a
// small fraction of their magnitudes.
func Equal(a, b, tol float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return scalar.EqualWithinAbsOrRel(a, b, tol, relTol)
}

// Less reports a < b outside the tolerance band.
func Less(a, b, tol float64) bool {
	return a < b && !Equal(a, b, tol)
}

// Greater reports a > b outside the tolerance band.
func Greater(a, b, tol float64) bool {
	return a > b && !Equal(a, b, tol)
}

// LessEqual reports a < b or a ~= b.
func LessEqual(a, b, tol float64) bool {
	return a < b || Equal(a, b, tol)
}

// GreaterEqual reports a > b or a ~= b.
func GreaterEqual(a, b, tol float64) bool {
	return a > b || Equal(a, b, tol)
}

// IsInf reports whether v is infinite in either direction. An infinite
// required time means the node is unconstrained.
func IsInf(v float64) bool {
	return math.IsInf(v, 0)
}
