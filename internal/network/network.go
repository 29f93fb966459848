// Package network holds the placed netlist: instances bound to library
// cells, nets connecting their pins, and top-level ports. All mutation of
// the netlist goes through this package so that invariants (one net per
// pin, name uniqueness) hold in one place.
package network

import (
	"sort"

	"github.com/abk-openroad/Resizer/internal/liberty"
	"github.com/abk-openroad/Resizer/pkg/geometry"
)

// Network is the top-level design: a flat netlist of placed instances.
type Network struct {
	Name string

	// DBUPerMicron converts database units to physical length.
	DBUPerMicron float64

	libraries []*liberty.Library

	nets      map[string]*Net
	netOrder  []*Net
	instances map[string]*Instance
	instOrder []*Instance
	topPorts  map[string]*Pin
	portOrder []*Pin
}

// New creates an empty network. dbuPerMicron must be positive; the usual
// value is 1000 (1 DBU = 1 nm).
func New(name string, dbuPerMicron float64) *Network {
	return &Network{
		Name:         name,
		DBUPerMicron: dbuPerMicron,
		nets:         make(map[string]*Net),
		instances:    make(map[string]*Instance),
		topPorts:     make(map[string]*Pin),
	}
}

// AddLibrary registers a cell library with the design.
func (n *Network) AddLibrary(lib *liberty.Library) {
	n.libraries = append(n.libraries, lib)
}

// Libraries returns the design's libraries in registration order.
func (n *Network) Libraries() []*liberty.Library {
	return n.libraries
}

// DbuToMeters converts a length in database units to meters.
func (n *Network) DbuToMeters(dbu int64) float64 {
	return float64(dbu) / n.DBUPerMicron * 1e-6
}

// Nets returns all nets in creation order.
func (n *Network) Nets() []*Net {
	return n.netOrder
}

// Instances returns all instances in creation order.
func (n *Network) Instances() []*Instance {
	return n.instOrder
}

// TopPorts returns the top-level port pins in creation order.
func (n *Network) TopPorts() []*Pin {
	return n.portOrder
}

// FindNet looks a net up by name in the top scope.
func (n *Network) FindNet(name string) *Net {
	return n.nets[name]
}

// FindInstance looks an instance up by name.
func (n *Network) FindInstance(name string) *Instance {
	return n.instances[name]
}

// Instance is a placed occurrence of a library cell.
type Instance struct {
	Name     string
	Cell     *liberty.Cell
	Location geometry.Point
	Placed   bool

	pins map[string]*Pin
}

// Pins returns the instance's pins sorted by port name for stable iteration.
func (i *Instance) Pins() []*Pin {
	names := make([]string, 0, len(i.pins))
	for name := range i.pins {
		names = append(names, name)
	}
	sort.Strings(names)
	pins := make([]*Pin, len(names))
	for k, name := range names {
		pins[k] = i.pins[name]
	}
	return pins
}

// FindPin returns the instance pin for a port name.
func (i *Instance) FindPin(portName string) *Pin {
	return i.pins[portName]
}

// OutputPins returns the instance's output pins in port-name order.
func (i *Instance) OutputPins() []*Pin {
	var outs []*Pin
	for _, p := range i.Pins() {
		if p.Port.Direction == liberty.Output {
			outs = append(outs, p)
		}
	}
	return outs
}

// SingleOutputPin returns the instance's output pin when there is exactly
// one, nil otherwise. Multi-output cells are skipped by resizing.
func (i *Instance) SingleOutputPin() *Pin {
	outs := i.OutputPins()
	if len(outs) == 1 {
		return outs[0]
	}
	return nil
}

// Net carries one logical signal between pins.
type Net struct {
	Name string
	pins []*Pin
}

// Pins returns the net's pins in connection order.
func (nt *Net) Pins() []*Pin {
	return nt.pins
}

// Drivers returns the net's driving pins: instance output and bidirectional
// pins, and top-level input ports.
func (nt *Net) Drivers() []*Pin {
	var drvrs []*Pin
	for _, p := range nt.pins {
		if p.IsDriver() {
			drvrs = append(drvrs, p)
		}
	}
	return drvrs
}

// Loads returns the net's load pins: instance input and bidirectional pins,
// and top-level output ports.
func (nt *Net) Loads() []*Pin {
	var loads []*Pin
	for _, p := range nt.pins {
		if p.IsLoad() {
			loads = append(loads, p)
		}
	}
	return loads
}

// Pin is a connection endpoint: either an instance terminal or a top-level
// port.
type Pin struct {
	// Inst and Port are set for instance pins; nil for top-level ports.
	Inst *Instance
	Port *liberty.Port

	// TopName and TopDir describe a top-level port pin.
	TopName     string
	TopDir      liberty.Direction
	TopLocation geometry.Point

	// MaxSlew is a per-pin slew limit, when one is set.
	MaxSlew       float64
	MaxSlewExists bool

	net *Net
}

// IsTopLevel reports whether the pin is a top-level port.
func (p *Pin) IsTopLevel() bool {
	return p.Inst == nil
}

// Net returns the net the pin is connected to, or nil.
func (p *Pin) Net() *Net {
	return p.net
}

// Direction returns the pin's direction as seen from the cell (or the
// design boundary for top-level ports).
func (p *Pin) Direction() liberty.Direction {
	if p.IsTopLevel() {
		return p.TopDir
	}
	return p.Port.Direction
}

// IsDriver reports whether the pin drives its net: an instance output or
// bidirectional pin, or a top-level input port driving into the design.
func (p *Pin) IsDriver() bool {
	if p.IsTopLevel() {
		return p.TopDir == liberty.Input
	}
	return p.Port.Direction == liberty.Output || p.Port.Direction == liberty.Bidirect
}

// IsLoad reports whether the pin loads its net.
func (p *Pin) IsLoad() bool {
	if p.IsTopLevel() {
		return p.TopDir == liberty.Output
	}
	return p.Port.Direction == liberty.Input || p.Port.Direction == liberty.Bidirect
}

// Capacitance returns the load the pin presents: the worse of the library
// port's rise and fall capacitances. Top-level ports present no load.
func (p *Pin) Capacitance() float64 {
	if p.IsTopLevel() || p.Port == nil {
		return 0
	}
	return p.Port.CapacitanceMax()
}

// Location returns the pin's placement: the owning instance's location, or
// the port location for a top-level pin.
func (p *Pin) Location() geometry.Point {
	if p.IsTopLevel() {
		return p.TopLocation
	}
	return p.Inst.Location
}

// IsPlaced reports whether the pin has a placement.
func (p *Pin) IsPlaced() bool {
	if p.IsTopLevel() {
		return true
	}
	return p.Inst.Placed
}

// PathName returns the pin's hierarchical path: "inst/port" for instance
// pins, the bare port name for top-level ports.
func (p *Pin) PathName() string {
	if p.IsTopLevel() {
		return p.TopName
	}
	return p.Inst.Name + "/" + p.Port.Name
}
