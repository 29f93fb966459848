package resizer

import (
	"fmt"
	"math"
	"sort"

	"github.com/abk-openroad/Resizer/internal/liberty"
	"github.com/abk-openroad/Resizer/internal/network"
	"github.com/abk-openroad/Resizer/internal/steiner"
	"github.com/abk-openroad/Resizer/pkg/fuzzy"
	"github.com/abk-openroad/Resizer/pkg/geometry"
)

// The routing tree is a binary tree with the sinks at the leaves, the
// Steiner points at the junctions and the driver at the root. The bottom-up
// pass enumerates Pareto-optimal (capacitance, required time) options at
// each point; the top-down pass materializes the option chosen at the
// driver into buffer instances and split nets.

type optionType int

const (
	optSink optionType = iota
	optJunction
	optWire
	optBuffer
)

// nullOption marks a missing back-reference.
const nullOption = -1

// rebufferOption is one node of the option DAG. cap is the downstream
// capacitance a driver placed here would see; required weakly decreases
// with cap along the Pareto front at a point.
type rebufferOption struct {
	typ      optionType
	cap      float64
	required float64
	loadPin  *network.Pin
	loc      geometry.Point
	ref      int
	ref2     int
}

// optionArena owns every option built for one net. Options reference each
// other by index; the whole arena is dropped when rebuffering the net
// completes.
type optionArena struct {
	opts []rebufferOption
}

func (a *optionArena) add(o rebufferOption) int {
	a.opts = append(a.opts, o)
	return len(a.opts) - 1
}

func (a *optionArena) at(i int) *rebufferOption {
	return &a.opts[i]
}

// bufferRequired is the option's required time as seen through a buffer
// placed in front of it.
func (a *optionArena) bufferRequired(r *Resizer, i int, buffer *liberty.Cell) float64 {
	opt := a.at(i)
	return opt.required - r.bufferDelay(buffer, opt.cap)
}

// rebuffer walks drivers in reverse level order and rebuffers each one with
// a violation. Clock-network drivers are left alone.
func (r *Resizer) rebuffer(repairMaxCap, repairMaxSlew bool, buffer *liberty.Cell) error {
	if err := r.graph.FindDelays(); err != nil {
		return err
	}
	drvrs, err := r.graph.LevelDrvrPins()
	if err != nil {
		return err
	}
	for i := len(drvrs) - 1; i >= 0; i-- {
		drvr := drvrs[i]
		if r.graph.IsClock(drvr) {
			continue
		}
		if (repairMaxCap && r.hasMaxCapViolation(drvr)) ||
			(repairMaxSlew && r.hasMaxSlewViolation(drvr)) {
			if err := r.rebufferPin(drvr, buffer); err != nil {
				return err
			}
		}
	}
	return nil
}

// rebufferPin runs the DP for one driver pin and materializes the best
// root option. Unconstrained drivers are skipped.
func (r *Resizer) rebufferPin(drvrPin *network.Pin, buffer *liberty.Cell) error {
	net := drvrPin.Net()
	if net == nil {
		return nil
	}
	var drvrPort *liberty.Port
	if drvrPin.IsTopLevel() {
		// A top-level input port has no gate of its own; stand in the
		// buffer's output drive.
		_, out, ok := buffer.BufferPorts()
		if !ok {
			return nil
		}
		drvrPort = out
	} else {
		drvrPort = drvrPin.Port
	}
	tree := steiner.Build(net, drvrPin)
	if tree == nil {
		return nil
	}
	drvrReq := r.graph.Required(drvrPin)
	if fuzzy.IsInf(drvrReq) {
		return nil
	}
	arena := &optionArena{}
	drvrPt := tree.DrvrPt()
	Z := r.rebufferBottomUp(arena, tree, tree.Left(drvrPt), drvrPt, buffer)
	best := nullOption
	bestReq := math.Inf(-1)
	for _, pi := range Z {
		opt := arena.at(pi)
		req := opt.required - r.gateDelay(drvrPort, opt.cap)
		if fuzzy.Greater(req, bestReq, fuzzy.TimeTol) {
			bestReq = req
			best = pi
		}
	}
	if best == nullOption {
		return nil
	}
	insertCount, err := r.rebufferTopDown(arena, best, net, buffer)
	if err != nil {
		return err
	}
	if insertCount > 0 {
		r.insertedBufferCount += insertCount
		r.rebufferNetCount++
	}
	return nil
}

// rebufferBottomUp produces the non-dominated options at tree point k, then
// extends them along the wire toward prev.
func (r *Resizer) rebufferBottomUp(a *optionArena, tree *steiner.Tree, k, prev int, buffer *liberty.Cell) []int {
	if k == steiner.NullPt {
		return nil
	}
	pin := tree.Pin(k)
	switch {
	case pin != nil && pin.IsLoad():
		z := a.add(rebufferOption{
			typ:      optSink,
			cap:      pin.Capacitance(),
			required: r.graph.Required(pin),
			loadPin:  pin,
			loc:      tree.Location(k),
			ref:      nullOption,
			ref2:     nullOption,
		})
		return r.addWireAndBuffer(a, []int{z}, tree, k, prev, buffer)

	case pin == nil:
		// Steiner junction: combine the options from both branches.
		Zl := r.rebufferBottomUp(a, tree, tree.Left(k), k, buffer)
		Zr := r.rebufferBottomUp(a, tree, tree.Right(k), k, buffer)
		Z2 := make([]int, 0, len(Zl)*len(Zr))
		for _, pi := range Zl {
			for _, qi := range Zr {
				p, q := a.at(pi), a.at(qi)
				junc := rebufferOption{
					typ:      optJunction,
					cap:      p.cap + q.cap,
					required: math.Min(p.required, q.required),
					loc:      tree.Location(k),
					ref:      pi,
					ref2:     qi,
				}
				Z2 = append(Z2, a.add(junc))
			}
		}
		Z := r.pruneOptions(a, Z2, buffer)
		return r.addWireAndBuffer(a, Z, tree, k, prev, buffer)
	}
	return nil
}

// pruneOptions removes dominated junction options: q is dominated by p when
// its buffered required time is strictly worse and its capacitance strictly
// larger. Survivors are ordered by (cap, location) for determinism.
func (r *Resizer) pruneOptions(a *optionArena, Z2 []int, buffer *liberty.Cell) []int {
	pruned := make([]bool, len(Z2))
	for i, pi := range Z2 {
		if pruned[i] {
			continue
		}
		Tp := a.bufferRequired(r, pi, buffer)
		Lp := a.at(pi).cap
		for j, qi := range Z2 {
			if pruned[j] {
				continue
			}
			Tq := a.bufferRequired(r, qi, buffer)
			Lq := a.at(qi).cap
			if fuzzy.Less(Tq, Tp, fuzzy.TimeTol) && fuzzy.Greater(Lq, Lp, fuzzy.CapTol) {
				pruned[j] = true
			}
		}
	}
	var Z []int
	for i, pi := range Z2 {
		if !pruned[i] {
			Z = append(Z, pi)
		}
	}
	sort.SliceStable(Z, func(i, j int) bool {
		p, q := a.at(Z[i]), a.at(Z[j])
		if p.cap != q.cap {
			return p.cap < q.cap
		}
		if p.loc.X != q.loc.X {
			return p.loc.X < q.loc.X
		}
		return p.loc.Y < q.loc.Y
	})
	return Z
}

// addWireAndBuffer extends the options at k along the wire to prev: every
// option gets the wire's capacitance and lumped R*C delay, and the single
// best candidate additionally spawns a buffer option at prev. Only one
// buffer drive strength is considered.
func (r *Resizer) addWireAndBuffer(a *optionArena, Z []int, tree *steiner.Tree, k, prev int, buffer *liberty.Cell) []int {
	kLoc := tree.Location(k)
	prevLoc := tree.Location(prev)
	wireLength := r.network.DbuToMeters(kLoc.ManhattanDistance(prevLoc))
	wireCap := wireLength * r.wireCap
	wireRes := wireLength * r.wireRes
	wireDelay := wireRes * wireCap

	Z1 := make([]int, 0, len(Z)+1)
	best := math.Inf(-1)
	bestRef := nullOption
	for _, pi := range Z {
		p := a.at(pi)
		wire := rebufferOption{
			typ: optWire,
			// account for wire load
			cap: p.cap + wireCap,
			// account for wire delay
			required: p.required - wireDelay,
			loc:      prevLoc,
			ref:      pi,
			ref2:     nullOption,
		}
		zi := a.add(wire)
		Z1 = append(Z1, zi)
		// A buffer in front of this option would be placed at prev and
		// drive the wire-extended load.
		req := a.bufferRequired(r, zi, buffer)
		if fuzzy.Greater(req, best, fuzzy.TimeTol) {
			best = req
			bestRef = pi
		}
	}
	if bestRef != nullOption {
		buf := rebufferOption{
			typ:      optBuffer,
			cap:      r.bufferInputCapacitance(buffer),
			required: best,
			// Locate the buffer at the opposite end of the wire.
			loc:  prevLoc,
			ref:  bestRef,
			ref2: nullOption,
		}
		Z1 = append(Z1, a.add(buf))
	}
	return Z1
}

// rebufferTopDown materializes the chosen option chain into the netlist and
// returns the number of buffers inserted.
func (r *Resizer) rebufferTopDown(a *optionArena, choice int, net *network.Net, buffer *liberty.Cell) (int, error) {
	opt := a.at(choice)
	switch opt.typ {
	case optBuffer:
		net2, err := r.network.MakeNet(r.makeUniqueNetName())
		if err != nil {
			return 0, err
		}
		inst, err := r.network.MakeInstance(buffer, r.makeUniqueBufferName())
		if err != nil {
			return 0, err
		}
		r.graph.InvalidateLevels()
		in, out, _ := buffer.BufferPorts()
		if _, err := r.network.Connect(inst, in.Name, net); err != nil {
			return 0, err
		}
		if _, err := r.network.Connect(inst, out.Name, net2); err != nil {
			return 0, err
		}
		r.network.SetLocation(inst, opt.loc)
		count, err := r.rebufferTopDown(a, opt.ref, net2, buffer)
		if err != nil {
			return 0, err
		}
		r.makeNetParasitics(net)
		r.makeNetParasitics(net2)
		return count + 1, nil

	case optWire:
		return r.rebufferTopDown(a, opt.ref, net, buffer)

	case optJunction:
		count1, err := r.rebufferTopDown(a, opt.ref, net, buffer)
		if err != nil {
			return count1, err
		}
		count2, err := r.rebufferTopDown(a, opt.ref2, net, buffer)
		return count1 + count2, err

	case optSink:
		loadPin := opt.loadPin
		if loadPin.Net() == net {
			return 0, nil
		}
		// Splice the buffered subtree into this load.
		r.network.Disconnect(loadPin)
		if loadPin.IsTopLevel() {
			if _, err := r.network.ConnectTopPort(loadPin.TopName, net); err != nil {
				return 0, err
			}
		} else {
			if _, err := r.network.Connect(loadPin.Inst, loadPin.Port.Name, net); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}
	return 0, nil
}

// makeUniqueNetName returns the next free net<k> name in the top scope.
func (r *Resizer) makeUniqueNetName() string {
	for {
		name := fmt.Sprintf("net%d", r.uniqueNetIndex)
		r.uniqueNetIndex++
		if r.network.FindNet(name) == nil {
			return name
		}
	}
}

// makeUniqueBufferName returns the next free buffer<k> instance name.
func (r *Resizer) makeUniqueBufferName() string {
	for {
		name := fmt.Sprintf("buffer%d", r.uniqueBufferIndex)
		r.uniqueBufferIndex++
		if r.network.FindInstance(name) == nil {
			return name
		}
	}
}

// gateDelay is the worst arc delay through a driving port at the given
// load, with input slews pinned to the library target slews.
func (r *Resizer) gateDelay(port *liberty.Port, loadCap float64) float64 {
	cell := port.Cell
	maxDelay := math.Inf(-1)
	for _, set := range cell.ArcSets() {
		if set.To != port {
			continue
		}
		for _, arc := range set.Arcs() {
			if arc.Model == nil {
				continue
			}
			delay, _ := arc.Model.Evaluate(r.tgtSlews[arc.FromTr], loadCap)
			if delay > maxDelay {
				maxDelay = delay
			}
		}
	}
	return maxDelay
}

// bufferDelay is the buffer's gate delay at the given load.
func (r *Resizer) bufferDelay(buffer *liberty.Cell, loadCap float64) float64 {
	_, out, ok := buffer.BufferPorts()
	if !ok {
		return 0
	}
	return r.gateDelay(out, loadCap)
}

// bufferInputCapacitance is the load a buffer presents to its driver.
func (r *Resizer) bufferInputCapacitance(buffer *liberty.Cell) float64 {
	in, _, ok := buffer.BufferPorts()
	if !ok {
		return 0
	}
	return in.CapacitanceMax()
}
