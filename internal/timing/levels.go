package timing

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/abk-openroad/Resizer/internal/liberty"
	"github.com/abk-openroad/Resizer/internal/network"
)

// LevelDrvrPins returns every driver pin in the design ordered by level,
// ties broken by the pin's hierarchical path. The level is the longest
// combinational depth from any primary input. Consumers iterate in reverse
// so downstream loads are final before a driver is processed.
func (g *Graph) LevelDrvrPins() ([]*network.Pin, error) {
	if err := g.ensureLevels(); err != nil {
		return nil, err
	}
	return g.levelDrvrPins, nil
}

// Level returns the level of a driver pin, 0 for pins outside the
// levelized set.
func (g *Graph) Level(pin *network.Pin) int {
	if err := g.ensureLevels(); err != nil {
		return 0
	}
	return g.levels[pin]
}

// ensureLevels builds the level order on first use after an invalidation.
// Instances and top-level ports become nodes of a directed graph with an
// edge per driver-to-load net connection; levels are the longest-path depth
// in topological order.
func (g *Graph) ensureLevels() error {
	if g.levelsValid {
		return nil
	}

	dag := simple.NewDirectedGraph()
	ids := make(map[interface{}]int64)
	next := int64(0)
	nodeID := func(owner interface{}) int64 {
		if id, ok := ids[owner]; ok {
			return id
		}
		id := next
		next++
		ids[owner] = id
		dag.AddNode(simple.Node(id))
		return id
	}

	// owner of a pin: its instance, or the pin itself for top ports.
	owner := func(p *network.Pin) interface{} {
		if p.Inst != nil {
			return p.Inst
		}
		return p
	}

	for _, inst := range g.net.Instances() {
		nodeID(inst)
	}
	for _, port := range g.net.TopPorts() {
		nodeID(port)
	}
	for _, net := range g.net.Nets() {
		for _, drvr := range net.Drivers() {
			from := nodeID(owner(drvr))
			for _, load := range net.Loads() {
				to := nodeID(owner(load))
				if from == to {
					continue
				}
				dag.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
			}
		}
	}

	order, err := topo.Sort(dag)
	if err != nil {
		return errors.Wrap(err, "levelize: combinational loop")
	}

	// Longest-path levels in topological order.
	nodeLevel := make(map[int64]int, len(order))
	for _, nd := range order {
		id := nd.ID()
		level := nodeLevel[id]
		to := dag.From(id)
		for to.Next() {
			succ := to.Node().ID()
			if level+1 > nodeLevel[succ] {
				nodeLevel[succ] = level + 1
			}
		}
	}

	g.levels = make(map[*network.Pin]int)
	var drvrs []*network.Pin
	for _, inst := range g.net.Instances() {
		for _, pin := range inst.Pins() {
			if pin.Port.Direction == liberty.Output {
				g.levels[pin] = nodeLevel[ids[inst]]
				drvrs = append(drvrs, pin)
			}
		}
	}
	for _, port := range g.net.TopPorts() {
		if port.IsDriver() {
			g.levels[port] = nodeLevel[ids[port]]
			drvrs = append(drvrs, port)
		}
	}

	sort.SliceStable(drvrs, func(i, j int) bool {
		li, lj := g.levels[drvrs[i]], g.levels[drvrs[j]]
		if li != lj {
			return li < lj
		}
		return drvrs[i].PathName() < drvrs[j].PathName()
	})
	g.levelDrvrPins = drvrs
	g.levelsValid = true
	return nil
}

// ensureSlews propagates output slews forward in level order.
func (g *Graph) ensureSlews() error {
	if g.slewsValid {
		return nil
	}
	if err := g.ensureLevels(); err != nil {
		return err
	}
	g.slews = make(map[*network.Pin][liberty.TransitionCount]float64)
	for _, drvr := range g.levelDrvrPins {
		if drvr.IsTopLevel() {
			g.slews[drvr] = g.cons.inputSlew
			continue
		}
		loadCap := g.LoadCap(drvr)
		var out [liberty.TransitionCount]float64
		for _, set := range drvr.Inst.Cell.ArcSets() {
			if set.To != drvr.Port || set.Role != liberty.Combinational {
				continue
			}
			inPin := drvr.Inst.FindPin(set.From.Name)
			for _, arc := range set.Arcs() {
				if arc.Model == nil {
					continue
				}
				inSlew := 0.0
				if inPin != nil {
					inSlew = g.loadPinSlew(inPin, arc.FromTr)
				}
				_, slew := arc.Model.Evaluate(inSlew, loadCap)
				if slew > out[arc.ToTr] {
					out[arc.ToTr] = slew
				}
			}
		}
		g.slews[drvr] = out
	}
	g.slewsValid = true
	return nil
}

// loadPinSlew reads the slew a load pin sees from its driver, without
// re-entering ensureSlews.
func (g *Graph) loadPinSlew(pin *network.Pin, tr liberty.Transition) float64 {
	net := pin.Net()
	if net == nil {
		return 0
	}
	for _, drvr := range net.Drivers() {
		if s, ok := g.slews[drvr]; ok {
			return s[tr]
		}
	}
	return 0
}
