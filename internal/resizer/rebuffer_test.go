package resizer

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/abk-openroad/Resizer/internal/liberty"
	"github.com/abk-openroad/Resizer/internal/network"
	"github.com/abk-openroad/Resizer/internal/steiner"
	"github.com/abk-openroad/Resizer/internal/timing"
	"github.com/abk-openroad/Resizer/pkg/geometry"
)

// longWireFixture is one weak driver at the origin and a 5 fF sink a
// millimeter away, with a 200 ps requirement at the sink. At 100 pF/m the
// wire alone adds 100 fF of load.
func longWireFixture(t *testing.T, maxCap float64, sinkX int64) (*Resizer, *network.Network, *timing.Constraints, *bytes.Buffer) {
	t.Helper()
	lib := liberty.NewLibrary("testlib")
	addBuffer(lib)
	addDriver(lib, "DRV", maxCap)
	addLoad(lib, "LOAD5", 5e-15)

	nw := network.New("top", 1000)
	nw.AddLibrary(lib)
	u1, _ := nw.MakeInstance(lib.FindCell("DRV"), "u1")
	u2, _ := nw.MakeInstance(lib.FindCell("LOAD5"), "u2")
	nw.SetLocation(u1, geometry.NewPoint(0, 0))
	nw.SetLocation(u2, geometry.NewPoint(sinkX, 0))
	n1, _ := nw.MakeNet("n1")
	if _, err := nw.Connect(u1, "Z", n1); err != nil {
		t.Fatal(err)
	}
	sink, err := nw.Connect(u2, "A", n1)
	if err != nil {
		t.Fatal(err)
	}
	cons := timing.NewConstraints()
	cons.SetRequired(sink, 200e-12)
	r, _, out := newHarness(nw, cons)
	return r, nw, cons, out
}

func repairOptions(buf *liberty.Cell) Options {
	opts := defaultOptions()
	opts.RepairMaxCap = true
	opts.BufferCell = buf
	return opts
}

func TestRebufferLongWire(t *testing.T) {
	r, nw, _, out := longWireFixture(t, 8e-15, 1000000)
	buf := nw.Libraries()[0].FindCell("BUF")
	if err := r.Run(repairOptions(buf)); err != nil {
		t.Fatal(err)
	}
	if r.InsertedBufferCount() != 1 || r.RebufferNetCount() != 1 {
		t.Fatalf("counters = %d buffers, %d nets", r.InsertedBufferCount(), r.RebufferNetCount())
	}
	if !strings.Contains(out.String(), "Inserted 1 buffers in 1 nets.") {
		t.Errorf("report = %q", out.String())
	}

	b1 := nw.FindInstance("buffer1")
	if b1 == nil {
		t.Fatal("buffer1 not created")
	}
	if b1.Cell != buf {
		t.Errorf("buffer cell = %s", b1.Cell.Name)
	}
	// The buffer lands at the wire's driver end.
	if !b1.Placed || b1.Location != geometry.NewPoint(0, 0) {
		t.Errorf("buffer location = %+v", b1.Location)
	}
	// Input stays on the driver's net, output on the fresh net.
	n1 := nw.FindNet("n1")
	if b1.FindPin("in").Net() != n1 {
		t.Error("buffer input not on the driver net")
	}
	n2 := b1.FindPin("out").Net()
	if n2 == nil || n2 == n1 || n2.Name != "net1" {
		t.Fatalf("buffer output net = %v", n2)
	}
	// The sink moved to the buffered net; the overall load set held.
	sink := nw.FindInstance("u2").FindPin("A")
	if sink.Net() != n2 {
		t.Error("sink not spliced onto the buffered net")
	}
	if loads := n1.Loads(); len(loads) != 1 || loads[0].Inst != b1 {
		t.Errorf("driver net loads = %v", loads)
	}
	if loads := n2.Loads(); len(loads) != 1 || loads[0] != sink {
		t.Errorf("buffered net loads = %v", loads)
	}
}

func TestRebufferNoViolation(t *testing.T) {
	// A short wire: 0.1 mm adds 10 fF, under the 20 fF limit.
	r, nw, _, out := longWireFixture(t, 20e-15, 100000)
	buf := nw.Libraries()[0].FindCell("BUF")
	if err := r.Run(repairOptions(buf)); err != nil {
		t.Fatal(err)
	}
	if r.InsertedBufferCount() != 0 || r.RebufferNetCount() != 0 {
		t.Errorf("counters = %d buffers, %d nets", r.InsertedBufferCount(), r.RebufferNetCount())
	}
	if !strings.Contains(out.String(), "Inserted 0 buffers in 0 nets.") {
		t.Errorf("report = %q", out.String())
	}
	if len(nw.Instances()) != 2 {
		t.Error("netlist mutated without a violation")
	}
}

func TestRebufferUnconstrainedDriver(t *testing.T) {
	r, nw, cons, _ := longWireFixture(t, 8e-15, 1000000)
	// Drop the sink requirement: the driver becomes unconstrained.
	*cons = *timing.NewConstraints()
	buf := nw.Libraries()[0].FindCell("BUF")
	if err := r.Run(repairOptions(buf)); err != nil {
		t.Fatal(err)
	}
	if r.InsertedBufferCount() != 0 {
		t.Errorf("inserted %d buffers on an unconstrained driver", r.InsertedBufferCount())
	}
}

func TestRebufferSkipsClock(t *testing.T) {
	r, nw, cons, _ := longWireFixture(t, 8e-15, 1000000)
	cons.MarkClockNet(nw.FindNet("n1"))
	buf := nw.Libraries()[0].FindCell("BUF")
	if err := r.Run(repairOptions(buf)); err != nil {
		t.Fatal(err)
	}
	if r.InsertedBufferCount() != 0 {
		t.Errorf("inserted %d buffers on the clock network", r.InsertedBufferCount())
	}
	if len(nw.Instances()) != 2 {
		t.Error("clock net was mutated")
	}
}

func TestRepairFlagsOffIsNoOp(t *testing.T) {
	r, nw, _, out := longWireFixture(t, 8e-15, 1000000)
	opts := defaultOptions()
	if err := r.Run(opts); err != nil {
		t.Fatal(err)
	}
	if len(nw.Instances()) != 2 || len(nw.Nets()) != 1 {
		t.Error("netlist mutated with all passes disabled")
	}
	if out.Len() != 0 {
		t.Errorf("report = %q, want empty", out.String())
	}
}

func TestRebufferUniqueNames(t *testing.T) {
	r, nw, _, _ := longWireFixture(t, 8e-15, 1000000)
	buf := nw.Libraries()[0].FindCell("BUF")
	// Occupy the first names so the counters must retry.
	if _, err := nw.MakeNet("net1"); err != nil {
		t.Fatal(err)
	}
	if _, err := nw.MakeInstance(buf, "buffer1"); err != nil {
		t.Fatal(err)
	}
	if err := r.Run(repairOptions(buf)); err != nil {
		t.Fatal(err)
	}
	if r.InsertedBufferCount() != 1 {
		t.Fatalf("inserted %d buffers", r.InsertedBufferCount())
	}
	if nw.FindInstance("buffer2") == nil {
		t.Error("buffer2 not created")
	}
	if nw.FindNet("net2") == nil {
		t.Error("net2 not created")
	}
}

func TestRebufferNet(t *testing.T) {
	r, nw, _, out := longWireFixture(t, 8e-15, 1000000)
	buf := nw.Libraries()[0].FindCell("BUF")
	if err := r.SetWireRC(1e2, 1e-10, testCorner); err != nil {
		t.Fatal(err)
	}
	if err := r.RebufferNet(nw.FindNet("n1"), buf); err != nil {
		t.Fatal(err)
	}
	if r.InsertedBufferCount() != 1 {
		t.Errorf("inserted %d buffers", r.InsertedBufferCount())
	}
	if !strings.Contains(out.String(), "Inserted 1 buffers.") {
		t.Errorf("report = %q", out.String())
	}
}

// TestJunctionCombine drives the bottom-up pass over a hand-built tree: two
// sinks with 2 fF each and 300/100 ps requirements meeting at a junction.
// With all points co-located there are no wire terms, so the junction
// option is exactly (4 fF, 100 ps) and every fatter combination is pruned.
func TestJunctionCombine(t *testing.T) {
	lib := liberty.NewLibrary("testlib")
	buf := addBuffer(lib)
	addDriver(lib, "DRV", 0)
	addLoad(lib, "LOAD2", 2e-15)

	nw := network.New("top", 1000)
	nw.AddLibrary(lib)
	origin := geometry.NewPoint(0, 0)
	u1, _ := nw.MakeInstance(lib.FindCell("DRV"), "u1")
	sa, _ := nw.MakeInstance(lib.FindCell("LOAD2"), "sa")
	sb, _ := nw.MakeInstance(lib.FindCell("LOAD2"), "sb")
	for _, inst := range []*network.Instance{u1, sa, sb} {
		nw.SetLocation(inst, origin)
	}
	n1, _ := nw.MakeNet("n1")
	drvr, _ := nw.Connect(u1, "Z", n1)
	pinA, _ := nw.Connect(sa, "A", n1)
	pinB, _ := nw.Connect(sb, "A", n1)

	cons := timing.NewConstraints()
	cons.SetRequired(pinA, 300e-12)
	cons.SetRequired(pinB, 100e-12)
	r, _, _ := newHarness(nw, cons)
	r.wireRes = 1e2
	r.wireCap = 1e-10
	r.tgtSlewsValid = true

	tree := steiner.NewTree()
	leafA := tree.AddPt(origin, pinA, steiner.NullPt, steiner.NullPt)
	leafB := tree.AddPt(origin, pinB, steiner.NullPt, steiner.NullPt)
	junction := tree.AddPt(origin, nil, leafA, leafB)
	root := tree.AddPt(origin, drvr, junction, steiner.NullPt)
	tree.SetDrvrPt(root)

	arena := &optionArena{}
	Z := r.rebufferBottomUp(arena, tree, tree.Left(root), root, buf)

	// One junction survivor extended toward the root: its wire image plus
	// one buffer option.
	if len(Z) != 2 {
		t.Fatalf("root option count = %d, want 2", len(Z))
	}
	var wire, buffer *rebufferOption
	for _, zi := range Z {
		opt := arena.at(zi)
		switch opt.typ {
		case optWire:
			wire = opt
		case optBuffer:
			buffer = opt
		}
	}
	if wire == nil || buffer == nil {
		t.Fatal("missing wire or buffer option at the root")
	}
	if math.Abs(wire.cap-4e-15) > 1e-20 {
		t.Errorf("junction cap = %g, want 4fF", wire.cap)
	}
	if math.Abs(wire.required-100e-12) > 1e-18 {
		t.Errorf("junction required = %g, want 100ps", wire.required)
	}
	junc := arena.at(wire.ref)
	if junc.typ != optJunction {
		t.Fatalf("wire ref is %v, want junction", junc.typ)
	}
	// The surviving junction combines the two plain wire images, not the
	// buffered ones.
	if math.Abs(junc.cap-4e-15) > 1e-20 {
		t.Errorf("surviving junction cap = %g", junc.cap)
	}
	// Buffer option: the buffer's own input cap, required from the
	// junction through the buffer delay (20ps + 2ps/fF * 4fF = 28ps).
	if math.Abs(buffer.cap-5e-15) > 1e-20 {
		t.Errorf("buffer option cap = %g, want 5fF", buffer.cap)
	}
	if math.Abs(buffer.required-72e-12) > 1e-18 {
		t.Errorf("buffer option required = %g, want 72ps", buffer.required)
	}
}

// TestJunctionPruning checks the dominance rule directly: a junction option
// with strictly worse buffered required time and strictly larger cap is
// removed.
func TestJunctionPruning(t *testing.T) {
	lib := liberty.NewLibrary("testlib")
	buf := addBuffer(lib)
	nw := network.New("top", 1000)
	nw.AddLibrary(lib)
	r, _, _ := newHarness(nw, timing.NewConstraints())
	r.tgtSlewsValid = true

	arena := &optionArena{}
	good := arena.add(rebufferOption{typ: optJunction, cap: 4e-15, required: 100e-12, ref: nullOption, ref2: nullOption})
	dominated := arena.add(rebufferOption{typ: optJunction, cap: 10e-15, required: 76e-12, ref: nullOption, ref2: nullOption})
	incomparable := arena.add(rebufferOption{typ: optJunction, cap: 2e-15, required: 50e-12, ref: nullOption, ref2: nullOption})

	Z := r.pruneOptions(arena, []int{good, dominated, incomparable}, buf)
	if len(Z) != 2 {
		t.Fatalf("survivor count = %d, want 2", len(Z))
	}
	for _, zi := range Z {
		if zi == dominated {
			t.Error("dominated option survived")
		}
	}
	// Survivors come back ordered by capacitance.
	if arena.at(Z[0]).cap > arena.at(Z[1]).cap {
		t.Error("survivors not ordered by cap")
	}
}

func TestParasiticsRoundTrip(t *testing.T) {
	r, nw, _, _ := longWireFixture(t, 8e-15, 1000000)
	if err := r.SetWireRC(1e2, 1e-10, testCorner); err != nil {
		t.Fatal(err)
	}
	n1 := nw.FindNet("n1")
	p1 := r.paras.Find(n1)
	if p1 == nil {
		t.Fatal("no parasitic network")
	}
	cap1, res1 := p1.TotalCap(), p1.TotalRes()
	// 1 mm at 100 pF/m and 100 ohm/m.
	if math.Abs(cap1-1e-13) > 1e-25 {
		t.Errorf("wire cap = %g, want 1e-13", cap1)
	}
	if math.Abs(res1-0.1) > 1e-12 {
		t.Errorf("wire res = %g, want 0.1", res1)
	}

	r.makeNetParasitics(n1)
	p2 := r.paras.Find(n1)
	if p2 == p1 {
		t.Fatal("rebuild did not replace the network")
	}
	if p2.TotalCap() != cap1 || p2.TotalRes() != res1 {
		t.Errorf("rebuild changed sums: cap %g res %g", p2.TotalCap(), p2.TotalRes())
	}
}

func TestZeroLengthBranchKeepsConnectivity(t *testing.T) {
	// Driver and sink at the same point: a nominal resistor, no cap.
	r, nw, _, _ := longWireFixture(t, 8e-15, 0)
	if err := r.SetWireRC(1e2, 1e-10, testCorner); err != nil {
		t.Fatal(err)
	}
	p := r.paras.Find(nw.FindNet("n1"))
	if p == nil {
		t.Fatal("no parasitic network")
	}
	if p.TotalCap() != 0 {
		t.Errorf("zero-length wire has cap %g", p.TotalCap())
	}
	rs := p.Resistors()
	if len(rs) != 1 || rs[0].Res != 1e-3 {
		t.Errorf("resistors = %+v", rs)
	}
}
