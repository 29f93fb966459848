// Package steiner represents per-net routing trees. A tree is binary: the
// leaves are the net's pins, the internal nodes are Steiner points, and the
// root is the driver. Each edge carries a rectilinear wire length in
// database units.
//
// The builder here is deliberately simple (recursive bounding-box
// bisection). Anything that produces the same Tree shape can substitute for
// it.
package steiner

import (
	"sort"

	"github.com/abk-openroad/Resizer/internal/network"
	"github.com/abk-openroad/Resizer/pkg/geometry"
)

// NullPt marks a missing child.
const NullPt = -1

type node struct {
	loc   geometry.Point
	pin   *network.Pin
	left  int
	right int
}

// Tree is a binary routing tree over a net's pins.
type Tree struct {
	nodes   []node
	drvr    int
	aliases map[int]*network.Pin
}

// NewTree creates an empty tree for programmatic construction. Builders and
// tests add points with AddPt and finish with SetDrvrPt.
func NewTree() *Tree {
	return &Tree{drvr: NullPt}
}

// AddPt adds a tree point and returns its index. pin is nil for Steiner
// points; left and right are child indices or NullPt.
func (t *Tree) AddPt(loc geometry.Point, pin *network.Pin, left, right int) int {
	t.nodes = append(t.nodes, node{loc: loc, pin: pin, left: left, right: right})
	return len(t.nodes) - 1
}

// SetDrvrPt designates the root point corresponding to the driver pin.
func (t *Tree) SetDrvrPt(k int) {
	t.drvr = k
}

// DrvrPt returns the root point index.
func (t *Tree) DrvrPt() int {
	return t.drvr
}

// PointCount returns the number of tree points.
func (t *Tree) PointCount() int {
	return len(t.nodes)
}

// Left returns the left child of k, or NullPt.
func (t *Tree) Left(k int) int {
	return t.nodes[k].left
}

// Right returns the right child of k, or NullPt.
func (t *Tree) Right(k int) int {
	return t.nodes[k].right
}

// Location returns the placement of point k.
func (t *Tree) Location(k int) geometry.Point {
	return t.nodes[k].loc
}

// Pin returns the pin at point k, or nil for a Steiner point.
func (t *Tree) Pin(k int) *network.Pin {
	return t.nodes[k].pin
}

// Branch is one tree edge with its rectilinear length in database units.
type Branch struct {
	From   int
	To     int
	Length int64
}

// Branches returns the tree's edges parent-to-child.
func (t *Tree) Branches() []Branch {
	var branches []Branch
	for k, nd := range t.nodes {
		for _, child := range [2]int{nd.left, nd.right} {
			if child == NullPt {
				continue
			}
			branches = append(branches, Branch{
				From:   k,
				To:     child,
				Length: nd.loc.ManhattanDistance(t.nodes[child].loc),
			})
		}
	}
	return branches
}

// FindSteinerPtAliases records, for each Steiner point coinciding with a
// pin's location, that pin as the point's alias. Parasitic construction
// uses the pin's node instead of a synthetic one.
func (t *Tree) FindSteinerPtAliases() {
	byLoc := make(map[geometry.Point]*network.Pin)
	for _, nd := range t.nodes {
		if nd.pin != nil {
			byLoc[nd.loc] = nd.pin
		}
	}
	t.aliases = make(map[int]*network.Pin)
	for k, nd := range t.nodes {
		if nd.pin == nil {
			if pin, ok := byLoc[nd.loc]; ok {
				t.aliases[k] = pin
			}
		}
	}
}

// Alias returns the pin aliased to Steiner point k, or nil.
func (t *Tree) Alias(k int) *network.Pin {
	return t.aliases[k]
}

// Build constructs a routing tree for a net rooted at its driver pin.
// Returns nil when the net has no loads or any of its pins is unplaced;
// such nets are skipped by callers.
func Build(net *network.Net, drvr *network.Pin) *Tree {
	if drvr == nil || !drvr.IsPlaced() {
		return nil
	}
	loads := net.Loads()
	if len(loads) == 0 {
		return nil
	}
	for _, load := range loads {
		if !load.IsPlaced() {
			return nil
		}
	}
	// Stable input order regardless of connection history.
	sorted := make([]*network.Pin, len(loads))
	copy(sorted, loads)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PathName() < sorted[j].PathName()
	})

	t := NewTree()
	child := t.grow(sorted)
	root := t.AddPt(drvr.Location(), drvr, child, NullPt)
	t.SetDrvrPt(root)
	t.FindSteinerPtAliases()
	return t
}

// grow builds the subtree for a group of load pins and returns its root
// index. A single pin becomes a leaf; larger groups split along the longer
// bounding-box dimension and meet at a Steiner point in the middle.
func (t *Tree) grow(loads []*network.Pin) int {
	if len(loads) == 1 {
		return t.AddPt(loads[0].Location(), loads[0], NullPt, NullPt)
	}
	pts := make([]geometry.Point, len(loads))
	for i, p := range loads {
		pts[i] = p.Location()
	}
	bbox := geometry.BoundingBox(pts)

	group := make([]*network.Pin, len(loads))
	copy(group, loads)
	if bbox.Width >= bbox.Height {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Location().X < group[j].Location().X
		})
	} else {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Location().Y < group[j].Location().Y
		})
	}
	mid := len(group) / 2
	left := t.grow(group[:mid])
	right := t.grow(group[mid:])
	return t.AddPt(bbox.Center(), nil, left, right)
}
