package resizer

import (
	"github.com/abk-openroad/Resizer/internal/network"
	"github.com/abk-openroad/Resizer/internal/parasitics"
	"github.com/abk-openroad/Resizer/internal/steiner"
)

// makeAllNetParasitics rebuilds the parasitic network of every net.
func (r *Resizer) makeAllNetParasitics() {
	for _, net := range r.network.Nets() {
		r.makeNetParasitics(net)
	}
}

// makeNetParasitics builds a pi-model parasitic network for one net from
// its routing tree: split capacitance at each branch endpoint and a series
// resistance between them. Zero-length branches get a nominal resistor to
// keep the connectivity intact. Nets without a placed tree are skipped.
func (r *Resizer) makeNetParasitics(net *network.Net) {
	drvrs := net.Drivers()
	if len(drvrs) == 0 {
		return
	}
	tree := steiner.Build(net, drvrs[0])
	if tree == nil {
		return
	}
	parasitic := r.paras.MakeParasiticNetwork(net)
	for _, branch := range tree.Branches() {
		n1 := findParasiticNode(tree, parasitic, branch.From)
		n2 := findParasiticNode(tree, parasitic, branch.To)
		if n1 == n2 {
			continue
		}
		if branch.Length == 0 {
			// Keep the connectivity without affecting delay.
			parasitic.MakeResistor(n1, n2, 1.0e-3)
			continue
		}
		wireLength := r.network.DbuToMeters(branch.Length)
		wireCap := wireLength * r.wireCap
		wireRes := wireLength * r.wireRes
		parasitic.IncrCap(n1, wireCap/2)
		parasitic.MakeResistor(n1, n2, wireRes)
		parasitic.IncrCap(n2, wireCap/2)
	}
}

// findParasiticNode maps a tree point to its parasitic node. A Steiner
// point sitting on top of a pin uses the pin's node instead.
func findParasiticNode(tree *steiner.Tree, parasitic *parasitics.Parasitic, pt int) *parasitics.Node {
	pin := tree.Pin(pt)
	if pin == nil {
		pin = tree.Alias(pt)
	}
	if pin != nil {
		return parasitic.EnsurePinNode(pin)
	}
	return parasitic.EnsureSteinerNode(pt)
}
