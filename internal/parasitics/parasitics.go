// Package parasitics stores per-net RC parasitic networks built from
// routing trees. Each net maps to at most one parasitic network; rebuilding
// replaces the previous one.
package parasitics

import (
	"fmt"

	"github.com/abk-openroad/Resizer/internal/network"
)

// Store holds the parasitic networks for a design.
type Store struct {
	nets map[*network.Net]*Parasitic
}

// NewStore creates an empty parasitic store.
func NewStore() *Store {
	return &Store{nets: make(map[*network.Net]*Parasitic)}
}

// MakeParasiticNetwork creates a fresh parasitic network for a net,
// replacing any existing one.
func (s *Store) MakeParasiticNetwork(net *network.Net) *Parasitic {
	p := &Parasitic{
		net:      net,
		pinNodes: make(map[*network.Pin]*Node),
		ptNodes:  make(map[int]*Node),
	}
	s.nets[net] = p
	return p
}

// Find returns the parasitic network for a net, or nil.
func (s *Store) Find(net *network.Net) *Parasitic {
	return s.nets[net]
}

// Delete drops a net's parasitic network.
func (s *Store) Delete(net *network.Net) {
	delete(s.nets, net)
}

// WireCap returns the total wire capacitance attached to a net, 0 when the
// net has no parasitic network.
func (s *Store) WireCap(net *network.Net) float64 {
	p := s.nets[net]
	if p == nil {
		return 0
	}
	return p.TotalCap()
}

// Parasitic is one net's RC network: nodes with grounded capacitance joined
// by resistors.
type Parasitic struct {
	net       *network.Net
	pinNodes  map[*network.Pin]*Node
	ptNodes   map[int]*Node
	nodes     []*Node
	resistors []*Resistor
}

// Node is a parasitic network node with accumulated grounded capacitance.
type Node struct {
	name string
	cap  float64
}

// Name returns a printable node name.
func (n *Node) Name() string {
	return n.name
}

// Cap returns the node's accumulated capacitance in farads.
func (n *Node) Cap() float64 {
	return n.cap
}

// Resistor is a series resistance between two nodes.
type Resistor struct {
	N1, N2 *Node
	Res    float64
}

// EnsurePinNode returns the node for a pin, creating it on first use.
func (p *Parasitic) EnsurePinNode(pin *network.Pin) *Node {
	if n, ok := p.pinNodes[pin]; ok {
		return n
	}
	n := &Node{name: pin.PathName()}
	p.pinNodes[pin] = n
	p.nodes = append(p.nodes, n)
	return n
}

// EnsureSteinerNode returns the node for a Steiner point index, creating it
// on first use.
func (p *Parasitic) EnsureSteinerNode(steinerPt int) *Node {
	if n, ok := p.ptNodes[steinerPt]; ok {
		return n
	}
	n := &Node{name: fmt.Sprintf("%s:%d", p.net.Name, steinerPt)}
	p.ptNodes[steinerPt] = n
	p.nodes = append(p.nodes, n)
	return n
}

// MakeResistor adds a series resistor between two nodes.
func (p *Parasitic) MakeResistor(n1, n2 *Node, res float64) {
	p.resistors = append(p.resistors, &Resistor{N1: n1, N2: n2, Res: res})
}

// IncrCap adds grounded capacitance to a node.
func (p *Parasitic) IncrCap(n *Node, cap float64) {
	n.cap += cap
}

// TotalCap returns the sum of all node capacitances in farads.
func (p *Parasitic) TotalCap() float64 {
	var sum float64
	for _, n := range p.nodes {
		sum += n.cap
	}
	return sum
}

// TotalRes returns the sum of all resistor values in ohms.
func (p *Parasitic) TotalRes() float64 {
	var sum float64
	for _, r := range p.resistors {
		sum += r.Res
	}
	return sum
}

// Resistors returns the network's resistors in creation order.
func (p *Parasitic) Resistors() []*Resistor {
	return p.resistors
}

// NodeCount returns the number of parasitic nodes.
func (p *Parasitic) NodeCount() int {
	return len(p.nodes)
}
