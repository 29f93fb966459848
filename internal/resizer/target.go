package resizer

import (
	"gonum.org/v1/gonum/stat"

	"github.com/abk-openroad/Resizer/internal/liberty"
)

// Target-load characterization. A target slew is derived once per run from
// the libraries' buffers; each cell then gets the load capacitance at which
// its output slew equals the target.

func (r *Resizer) ensureTargetLoads() {
	if r.targetLoadMap == nil {
		r.findTargetLoads()
	}
}

func (r *Resizer) findTargetLoads() {
	r.ensureBufferTargetSlews()
	r.targetLoadMap = make(map[*liberty.Cell]float64)
	for _, lib := range r.network.Libraries() {
		r.findLibraryTargetLoads(lib)
	}
}

func (r *Resizer) findLibraryTargetLoads(lib *liberty.Library) {
	for _, cell := range lib.Cells() {
		if cell.IsBuffer() {
			continue
		}
		var loads []float64
		for _, set := range cell.ArcSets() {
			if set.Role != liberty.Combinational {
				continue
			}
			for _, arc := range set.Arcs() {
				loads = append(loads, r.findTargetLoad(arc, r.tgtSlews[arc.FromTr]))
			}
		}
		if len(loads) > 0 {
			r.targetLoadMap[cell] = stat.Mean(loads, nil)
		} else {
			r.targetLoadMap[cell] = 0
		}
	}
}

// findTargetLoad solves for the load capacitance whose output slew equals
// targetSlew, by bisection-by-halving from 1 pF down to a 0.001 pF step.
// An arc without a model contributes 0.
func (r *Resizer) findTargetLoad(arc *liberty.Arc, targetSlew float64) float64 {
	if arc.Model == nil {
		return 0
	}
	const capInit = 1.0e-12
	const capTol = capInit * 0.001
	loadCap := capInit
	capStep := capInit
	for capStep > capTol {
		_, slew := arc.Model.Evaluate(0, loadCap)
		if slew > targetSlew {
			loadCap -= capStep
			capStep /= 2
		}
		loadCap += capStep
	}
	return loadCap
}

// TargetLoad returns the characterized target load for a cell, 0 for cells
// with no qualifying arcs.
func (r *Resizer) TargetLoad(cell *liberty.Cell) float64 {
	r.ensureTargetLoads()
	return r.targetLoadMap[cell]
}

func (r *Resizer) ensureBufferTargetSlews() {
	if !r.tgtSlewsValid {
		r.findBufferTargetSlews()
		r.tgtSlewsValid = true
	}
}

// findBufferTargetSlews samples the output slew of every buffer arc under a
// moderate load (10x the buffer's input capacitance), feeding the first
// result back as the input slew so the sample is self-consistent. The
// per-transition target slew is the mean over all samples from all
// libraries.
func (r *Resizer) findBufferTargetSlews() {
	var samples [liberty.TransitionCount][]float64
	for _, lib := range r.network.Libraries() {
		for _, buffer := range lib.Buffers() {
			in, out, ok := buffer.BufferPorts()
			if !ok {
				continue
			}
			for _, set := range buffer.ArcSets() {
				if set.From != in || set.To != out {
					continue
				}
				for _, arc := range set.Arcs() {
					if arc.Model == nil {
						continue
					}
					loadCap := in.Capacitance(arc.FromTr) * 10
					_, slew := arc.Model.Evaluate(0, loadCap)
					_, slew = arc.Model.Evaluate(slew, loadCap)
					samples[arc.ToTr] = append(samples[arc.ToTr], slew)
				}
			}
		}
	}
	for tr := range samples {
		if len(samples[tr]) > 0 {
			r.tgtSlews[tr] = stat.Mean(samples[tr], nil)
		} else {
			r.tgtSlews[tr] = 0
		}
	}
}

// TargetSlew returns the library-wide target slew for a transition.
func (r *Resizer) TargetSlew(tr liberty.Transition) float64 {
	r.ensureBufferTargetSlews()
	return r.tgtSlews[tr]
}
