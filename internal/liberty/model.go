package liberty

import (
	"gonum.org/v1/gonum/interp"
)

// DelayModel computes a gate's arc delay and output slew for a given input
// slew and output load. It is a capability, not a class: anything that can
// evaluate the pair qualifies.
type DelayModel interface {
	// Evaluate returns the arc delay and output slew, both in seconds,
	// for the given input slew (seconds) and load capacitance (farads).
	Evaluate(inSlew, loadCap float64) (delay, slew float64)
}

// LinearModel is a first-order delay model:
//
//	delay = DelayIntercept + DelayPerCap*load + DelayPerSlew*inSlew
//	slew  = SlewIntercept  + SlewPerCap*load  + SlewPerSlew*inSlew
//
// Intercepts are seconds; per-cap slopes are seconds/farad; per-slew slopes
// are dimensionless.
type LinearModel struct {
	DelayIntercept float64 `json:"delay_intercept"`
	DelayPerCap    float64 `json:"delay_per_cap"`
	DelayPerSlew   float64 `json:"delay_per_slew"`
	SlewIntercept  float64 `json:"slew_intercept"`
	SlewPerCap     float64 `json:"slew_per_cap"`
	SlewPerSlew    float64 `json:"slew_per_slew"`
}

// Evaluate implements DelayModel.
func (m *LinearModel) Evaluate(inSlew, loadCap float64) (delay, slew float64) {
	delay = m.DelayIntercept + m.DelayPerCap*loadCap + m.DelayPerSlew*inSlew
	slew = m.SlewIntercept + m.SlewPerCap*loadCap + m.SlewPerSlew*inSlew
	return delay, slew
}

// TableModel interpolates delay and slew from lookup tables indexed by input
// slew and load capacitance. Values outside the characterized axes clamp to
// the table edge before interpolating, matching how characterization tables
// are normally consumed.
type TableModel struct {
	// SlewAxis and CapAxis are the table indices, strictly increasing.
	SlewAxis []float64 `json:"slew_axis"`
	CapAxis  []float64 `json:"cap_axis"`

	// Delay and Slew are row-major tables: Delay[i][j] is the value at
	// SlewAxis[i], CapAxis[j].
	Delay [][]float64 `json:"delay"`
	Slew  [][]float64 `json:"slew"`
}

// Evaluate implements DelayModel by bilinear interpolation: interpolate each
// slew row along the cap axis, then interpolate between rows.
func (m *TableModel) Evaluate(inSlew, loadCap float64) (delay, slew float64) {
	delay = m.lookup(m.Delay, inSlew, loadCap)
	slew = m.lookup(m.Slew, inSlew, loadCap)
	return delay, slew
}

func (m *TableModel) lookup(table [][]float64, inSlew, loadCap float64) float64 {
	loadCap = clamp(loadCap, m.CapAxis)
	inSlew = clamp(inSlew, m.SlewAxis)
	if len(m.SlewAxis) == 1 {
		return interpRow(m.CapAxis, table[0], loadCap)
	}
	rows := make([]float64, len(m.SlewAxis))
	for i, row := range table {
		rows[i] = interpRow(m.CapAxis, row, loadCap)
	}
	return interpRow(m.SlewAxis, rows, inSlew)
}

func interpRow(xs, ys []float64, x float64) float64 {
	if len(xs) == 1 {
		return ys[0]
	}
	var pl interp.PiecewiseLinear
	// Axes are validated at load time; Fit only fails on mismatched or
	// too-short slices.
	if err := pl.Fit(xs, ys); err != nil {
		return ys[0]
	}
	return pl.Predict(x)
}

func clamp(v float64, axis []float64) float64 {
	if len(axis) == 0 {
		return v
	}
	if v < axis[0] {
		return axis[0]
	}
	if last := axis[len(axis)-1]; v > last {
		return last
	}
	return v
}
