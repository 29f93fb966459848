package resizer

import (
	"log"

	"github.com/abk-openroad/Resizer/internal/liberty"
	"github.com/abk-openroad/Resizer/internal/network"
)

// resizeToTargetSlew walks drivers in reverse level order so downstream
// loads are already final when each driver is considered.
func (r *Resizer) resizeToTargetSlew() error {
	drvrs, err := r.graph.LevelDrvrPins()
	if err != nil {
		return err
	}
	for i := len(drvrs) - 1; i >= 0; i-- {
		if inst := drvrs[i].Inst; inst != nil {
			r.resizeToTargetSlew1(inst)
		}
	}
	return nil
}

// resizeToTargetSlew1 replaces one instance's cell with the equivalence
// group member whose target load best matches the actual load. The match
// metric is the load ratio folded into [0, 1]; 1 is a perfect match.
func (r *Resizer) resizeToTargetSlew1(inst *network.Instance) {
	cell := inst.Cell
	if cell == nil || cell.Library == nil {
		return
	}
	output := inst.SingleOutputPin()
	if output == nil {
		// Only single output gates are resized.
		return
	}
	// Includes net parasitic capacitance.
	loadCap := r.graph.LoadCap(output)
	equiv := cell.Library.EquivCells(cell)
	if equiv == nil {
		return
	}
	var best *liberty.Cell
	bestRatio := 0.0
	for _, candidate := range equiv {
		targetLoad := r.targetLoadMap[candidate]
		ratio := targetLoad / loadCap
		if ratio > 1 {
			ratio = 1 / ratio
		}
		if ratio > bestRatio {
			bestRatio = ratio
			best = candidate
		}
	}
	if best != nil && best != cell {
		if cell.LEF && !best.LEF {
			// A LEF-backed cell only swaps with another LEF cell so pin
			// locations stay aligned.
			return
		}
		if err := r.network.ReplaceCell(inst, best); err != nil {
			log.Printf("resize %s: %v", inst.Name, err)
			return
		}
		r.resizeCount++
	}
}
