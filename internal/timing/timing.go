// Package timing is a small static-timing kernel: it levelizes the netlist,
// propagates output slews forward, and derives required times backward from
// endpoint constraints. It supplies exactly what the optimization passes
// consume — load capacitance, slews, required times, levels, and clock
// membership — not a full path-based analysis.
package timing

import (
	"math"

	"github.com/abk-openroad/Resizer/internal/liberty"
	"github.com/abk-openroad/Resizer/internal/network"
	"github.com/abk-openroad/Resizer/internal/parasitics"
)

// Corner names the process/voltage/temperature point timing is evaluated
// under. The delay models in the library are characterized at one corner;
// the struct exists so caches can be invalidated when it changes.
type Corner struct {
	Name string
}

// Constraints carries the design's timing constraints: endpoint required
// times, the design-wide slew limit, input slews at top-level ports, and
// clock-net membership.
type Constraints struct {
	designMaxSlew       float64
	designMaxSlewExists bool

	inputSlew [liberty.TransitionCount]float64

	required  map[*network.Pin]float64
	clockNets map[*network.Net]bool
}

// NewConstraints creates an empty constraint set.
func NewConstraints() *Constraints {
	return &Constraints{
		required:  make(map[*network.Pin]float64),
		clockNets: make(map[*network.Net]bool),
	}
}

// SetDesignMaxSlew sets the top-level slew limit.
func (c *Constraints) SetDesignMaxSlew(limit float64) {
	c.designMaxSlew = limit
	c.designMaxSlewExists = true
}

// DesignMaxSlew returns the top-level slew limit.
func (c *Constraints) DesignMaxSlew() (limit float64, exists bool) {
	return c.designMaxSlew, c.designMaxSlewExists
}

// SetInputSlew sets the slew driven into top-level input ports.
func (c *Constraints) SetInputSlew(tr liberty.Transition, slew float64) {
	c.inputSlew[tr] = slew
}

// SetRequired constrains the required time at a pin, in seconds.
func (c *Constraints) SetRequired(pin *network.Pin, required float64) {
	c.required[pin] = required
}

// MarkClockNet flags a net as part of the clock network. Optimization
// passes keep their hands off clock nets.
func (c *Constraints) MarkClockNet(net *network.Net) {
	c.clockNets[net] = true
}

// Graph evaluates timing over a network. Levels, slews and required times
// are computed lazily and cached; mutation of the netlist or parasitics
// invalidates them through InvalidateLevels and DelaysInvalid.
type Graph struct {
	net   *network.Network
	paras *parasitics.Store
	cons  *Constraints

	// Per-length wire RC for the lumped net delays used in required-time
	// propagation.
	wireResPerMeter float64
	wireCapPerMeter float64

	levelDrvrPins []*network.Pin
	levels        map[*network.Pin]int
	levelsValid   bool

	slews      map[*network.Pin][liberty.TransitionCount]float64
	slewsValid bool

	required map[*network.Pin]float64
	visiting map[*network.Pin]bool
}

// NewGraph creates a timing graph over a network.
func NewGraph(net *network.Network, paras *parasitics.Store, cons *Constraints) *Graph {
	return &Graph{
		net:   net,
		paras: paras,
		cons:  cons,
	}
}

// Constraints returns the graph's constraint set.
func (g *Graph) Constraints() *Constraints {
	return g.cons
}

// SetWireRC sets the per-meter wire resistance and capacitance used for net
// delays in required-time propagation.
func (g *Graph) SetWireRC(resPerMeter, capPerMeter float64) {
	g.wireResPerMeter = resPerMeter
	g.wireCapPerMeter = capPerMeter
	g.DelaysInvalid()
}

// InvalidateLevels discards the levelized driver order. Call after any
// topology mutation.
func (g *Graph) InvalidateLevels() {
	g.levelsValid = false
	g.DelaysInvalid()
}

// DelaysInvalid discards cached slews and required times.
func (g *Graph) DelaysInvalid() {
	g.slewsValid = false
	g.slews = nil
	g.required = nil
}

// IsClock reports whether the pin is on the clock network.
func (g *Graph) IsClock(pin *network.Pin) bool {
	net := pin.Net()
	return net != nil && g.cons.clockNets[net]
}

// LoadCap returns the capacitive load seen by a driver pin: the library
// input capacitances of its fanout plus the net's parasitic wire
// capacitance.
func (g *Graph) LoadCap(drvr *network.Pin) float64 {
	net := drvr.Net()
	if net == nil {
		return 0
	}
	var cap float64
	for _, load := range net.Loads() {
		cap += load.Capacitance()
	}
	cap += g.paras.WireCap(net)
	return cap
}

// FindDelays recomputes slews over the whole design.
func (g *Graph) FindDelays() error {
	g.DelaysInvalid()
	return g.ensureSlews()
}

// Slew returns the slew at a pin for one transition. Driver pins carry the
// slews their gates produce; load pins see their driver's slew.
func (g *Graph) Slew(pin *network.Pin, tr liberty.Transition) float64 {
	if err := g.ensureSlews(); err != nil {
		return 0
	}
	if s, ok := g.slews[pin]; ok {
		return s[tr]
	}
	// Load pin: take the driving pin's slew.
	if net := pin.Net(); net != nil {
		if drvrs := net.Drivers(); len(drvrs) > 0 {
			if s, ok := g.slews[drvrs[0]]; ok {
				return s[tr]
			}
		}
	}
	return 0
}

// FindRequired returns the required time at a pin, deriving it on first
// use. Unconstrained pins report +Inf.
func (g *Graph) FindRequired(pin *network.Pin) float64 {
	return g.Required(pin)
}

// Required returns the required time at a pin: the explicit endpoint
// constraint if one exists, otherwise the tightest requirement propagated
// back from downstream. +Inf means unconstrained.
func (g *Graph) Required(pin *network.Pin) float64 {
	if g.required == nil {
		g.required = make(map[*network.Pin]float64)
		g.visiting = make(map[*network.Pin]bool)
	}
	return g.requiredRec(pin)
}

func (g *Graph) requiredRec(pin *network.Pin) float64 {
	if r, ok := g.cons.required[pin]; ok {
		return r
	}
	if r, ok := g.required[pin]; ok {
		return r
	}
	if g.visiting[pin] {
		return math.Inf(1)
	}
	g.visiting[pin] = true
	r := math.Inf(1)
	if pin.IsDriver() {
		// Requirement at a driver: the tightest load requirement less
		// the wire delay to that load.
		if net := pin.Net(); net != nil {
			for _, load := range net.Loads() {
				lr := g.requiredRec(load) - g.netWireDelay(pin, load)
				if lr < r {
					r = lr
				}
			}
		}
	} else if pin.Inst != nil {
		// Requirement at a gate input: the tightest output requirement
		// less the worst arc delay through the gate.
		for _, set := range pin.Inst.Cell.ArcSets() {
			if set.From != pin.Port || set.Role != liberty.Combinational {
				continue
			}
			out := pin.Inst.FindPin(set.To.Name)
			if out == nil {
				continue
			}
			outReq := g.requiredRec(out)
			if math.IsInf(outReq, 1) {
				continue
			}
			delay := g.worstArcDelay(set, out)
			if or := outReq - delay; or < r {
				r = or
			}
		}
	}
	g.visiting[pin] = false
	g.required[pin] = r
	return r
}

// netWireDelay is the lumped R*C delay of the rectilinear span between two
// pins on a net, matching the wire delay model of the rebuffer engine.
func (g *Graph) netWireDelay(from, to *network.Pin) float64 {
	if !from.IsPlaced() || !to.IsPlaced() {
		return 0
	}
	dist := g.net.DbuToMeters(from.Location().ManhattanDistance(to.Location()))
	return (dist * g.wireResPerMeter) * (dist * g.wireCapPerMeter)
}

func (g *Graph) worstArcDelay(set *liberty.ArcSet, out *network.Pin) float64 {
	loadCap := g.LoadCap(out)
	worst := 0.0
	for _, arc := range set.Arcs() {
		if arc.Model == nil {
			continue
		}
		inSlew := 0.0
		if inPin := out.Inst.FindPin(set.From.Name); inPin != nil {
			inSlew = g.Slew(inPin, arc.FromTr)
		}
		delay, _ := arc.Model.Evaluate(inSlew, loadCap)
		if delay > worst {
			worst = delay
		}
	}
	return worst
}
