// Package resizer implements gate resizing and buffer insertion over a
// placed netlist. Resizing substitutes each cell with the drive-strength
// equivalent whose characterized target load best matches its actual load;
// rebuffering runs a bottom-up dynamic program over each violating net's
// routing tree and materializes the chosen buffer placements.
package resizer

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/abk-openroad/Resizer/internal/liberty"
	"github.com/abk-openroad/Resizer/internal/network"
	"github.com/abk-openroad/Resizer/internal/parasitics"
	"github.com/abk-openroad/Resizer/internal/timing"
)

// Options configures one optimization run.
type Options struct {
	// Resize enables the cell substitution pass.
	Resize bool

	// RepairMaxCap and RepairMaxSlew enable rebuffering of drivers whose
	// load capacitance or output slew exceeds its limit.
	RepairMaxCap  bool
	RepairMaxSlew bool

	// BufferCell is the single buffer used for all insertions. Required
	// when either repair flag is set.
	BufferCell *liberty.Cell

	// Per-meter wire parasitics.
	WireResPerMeter float64
	WireCapPerMeter float64

	// Corner selects the analysis point.
	Corner *timing.Corner
}

func (o Options) validate() error {
	if o.Corner == nil {
		return errors.New("no corner selected")
	}
	if o.WireResPerMeter <= 0 || o.WireCapPerMeter <= 0 {
		return errors.New("wire resistance and capacitance must be positive")
	}
	if o.RepairMaxCap || o.RepairMaxSlew {
		if o.BufferCell == nil {
			return errors.New("repair requires a buffer cell")
		}
		if !o.BufferCell.IsBuffer() {
			return errors.Errorf("cell %s is not a buffer", o.BufferCell.Name)
		}
		if _, _, ok := o.BufferCell.BufferPorts(); !ok {
			return errors.Errorf("buffer %s does not have one input and one output",
				o.BufferCell.Name)
		}
	}
	return nil
}

// Resizer runs the optimization passes. All mutation happens on one logical
// thread; callers must not modify the netlist, timing graph or parasitics
// while a pass runs.
type Resizer struct {
	network *network.Network
	graph   *timing.Graph
	paras   *parasitics.Store
	out     io.Writer

	corner  *timing.Corner
	wireRes float64 // ohms/meter
	wireCap float64 // farads/meter

	// Characterization caches, computed lazily, invalidated by corner
	// changes.
	targetLoadMap map[*liberty.Cell]float64
	tgtSlews      [liberty.TransitionCount]float64
	tgtSlewsValid bool

	uniqueNetIndex    int
	uniqueBufferIndex int

	resizeCount         int
	insertedBufferCount int
	rebufferNetCount    int
}

// New creates a resizer over a network. Reports go to out.
func New(net *network.Network, graph *timing.Graph, paras *parasitics.Store, out io.Writer) *Resizer {
	return &Resizer{
		network:           net,
		graph:             graph,
		paras:             paras,
		out:               out,
		uniqueNetIndex:    1,
		uniqueBufferIndex: 1,
	}
}

// ResizeCount returns the number of instances replaced by the last pass.
func (r *Resizer) ResizeCount() int { return r.resizeCount }

// InsertedBufferCount returns the number of buffers inserted by the last pass.
func (r *Resizer) InsertedBufferCount() int { return r.insertedBufferCount }

// RebufferNetCount returns the number of nets rebuffered by the last pass.
func (r *Resizer) RebufferNetCount() int { return r.rebufferNetCount }

func (r *Resizer) init() {
	r.resizeCount = 0
	r.insertedBufferCount = 0
	r.rebufferNetCount = 0
}

func (r *Resizer) initCorner(corner *timing.Corner) {
	if r.corner != corner {
		r.corner = corner
		r.targetLoadMap = nil
		r.tgtSlewsValid = false
	}
}

// SetWireRC sets the per-meter wire parasitics and rebuilds every net's
// parasitic network. Cached delays become stale.
func (r *Resizer) SetWireRC(resPerMeter, capPerMeter float64, corner *timing.Corner) error {
	if corner == nil {
		return errors.New("no corner selected")
	}
	if resPerMeter <= 0 || capPerMeter <= 0 {
		return errors.New("wire resistance and capacitance must be positive")
	}
	r.initCorner(corner)
	r.wireRes = resPerMeter
	r.wireCap = capPerMeter
	r.graph.SetWireRC(resPerMeter, capPerMeter)
	r.makeAllNetParasitics()
	r.graph.DelaysInvalid()
	return nil
}

// Run executes the configured passes and prints the counters report.
func (r *Resizer) Run(opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if err := r.SetWireRC(opts.WireResPerMeter, opts.WireCapPerMeter, opts.Corner); err != nil {
		return err
	}
	r.init()
	r.ensureTargetLoads()
	if opts.Resize {
		if err := r.resizeToTargetSlew(); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Resized %d instances.\n", r.resizeCount)
	}
	if opts.RepairMaxCap || opts.RepairMaxSlew {
		if err := r.rebuffer(opts.RepairMaxCap, opts.RepairMaxSlew, opts.BufferCell); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Inserted %d buffers in %d nets.\n",
			r.insertedBufferCount, r.rebufferNetCount)
	}
	return nil
}

// ResizeInstance resizes one instance to its target load. Entry point for
// incremental use; the full pass goes through Run.
func (r *Resizer) ResizeInstance(inst *network.Instance, corner *timing.Corner) error {
	if corner == nil {
		return errors.New("no corner selected")
	}
	r.initCorner(corner)
	r.ensureTargetLoads()
	r.resizeToTargetSlew1(inst)
	return nil
}

// RebufferNet rebuffers every driver of one net using the given buffer.
func (r *Resizer) RebufferNet(net *network.Net, buffer *liberty.Cell) error {
	if buffer == nil || !buffer.IsBuffer() {
		return errors.New("rebuffer requires a buffer cell")
	}
	r.init()
	r.ensureBufferTargetSlews()
	for _, drvr := range net.Drivers() {
		if err := r.rebufferPin(drvr, buffer); err != nil {
			return err
		}
	}
	fmt.Fprintf(r.out, "Inserted %d buffers.\n", r.insertedBufferCount)
	return nil
}
