package network

import (
	"github.com/pkg/errors"

	"github.com/abk-openroad/Resizer/internal/liberty"
	"github.com/abk-openroad/Resizer/pkg/geometry"
)

// MakeNet creates a new net in the top scope. The name must be unused.
func (n *Network) MakeNet(name string) (*Net, error) {
	if _, ok := n.nets[name]; ok {
		return nil, errors.Errorf("net %q already exists", name)
	}
	nt := &Net{Name: name}
	n.nets[name] = nt
	n.netOrder = append(n.netOrder, nt)
	return nt, nil
}

// MakeInstance creates an unplaced instance of a cell. All of the cell's
// ports get unconnected pins.
func (n *Network) MakeInstance(cell *liberty.Cell, name string) (*Instance, error) {
	if cell == nil {
		return nil, errors.New("instance requires a cell")
	}
	if _, ok := n.instances[name]; ok {
		return nil, errors.Errorf("instance %q already exists", name)
	}
	inst := &Instance{
		Name: name,
		Cell: cell,
		pins: make(map[string]*Pin),
	}
	for _, port := range cell.Ports() {
		inst.pins[port.Name] = &Pin{Inst: inst, Port: port}
	}
	n.instances[name] = inst
	n.instOrder = append(n.instOrder, inst)
	return inst, nil
}

// MakeTopPort creates a top-level port pin. An input port drives into the
// design; an output port is a load.
func (n *Network) MakeTopPort(name string, dir liberty.Direction, loc geometry.Point) (*Pin, error) {
	if _, ok := n.topPorts[name]; ok {
		return nil, errors.Errorf("port %q already exists", name)
	}
	pin := &Pin{TopName: name, TopDir: dir, TopLocation: loc}
	n.topPorts[name] = pin
	n.portOrder = append(n.portOrder, pin)
	return pin, nil
}

// Connect binds an instance port to a net. Connecting a port that is
// already on the target net is a no-op; connecting it to a different net is
// an error (disconnect first).
func (n *Network) Connect(inst *Instance, portName string, net *Net) (*Pin, error) {
	pin := inst.FindPin(portName)
	if pin == nil {
		return nil, errors.Errorf("instance %s has no port %q", inst.Name, portName)
	}
	return n.connectPin(pin, net)
}

// ConnectTopPort binds a top-level port to a net.
func (n *Network) ConnectTopPort(name string, net *Net) (*Pin, error) {
	pin := n.topPorts[name]
	if pin == nil {
		return nil, errors.Errorf("no top-level port %q", name)
	}
	return n.connectPin(pin, net)
}

func (n *Network) connectPin(pin *Pin, net *Net) (*Pin, error) {
	if net == nil {
		return nil, errors.New("connect requires a net")
	}
	if n.nets[net.Name] != net {
		return nil, errors.Errorf("net %q is not in this network", net.Name)
	}
	if pin.net == net {
		return pin, nil
	}
	if pin.net != nil {
		return nil, errors.Errorf("pin %s is already connected to %s",
			pin.PathName(), pin.net.Name)
	}
	pin.net = net
	net.pins = append(net.pins, pin)
	return pin, nil
}

// Disconnect removes a pin from its net. Disconnecting an unconnected pin
// is a no-op.
func (n *Network) Disconnect(pin *Pin) {
	net := pin.net
	if net == nil {
		return
	}
	for i, p := range net.pins {
		if p == pin {
			net.pins = append(net.pins[:i], net.pins[i+1:]...)
			break
		}
	}
	pin.net = nil
}

// ReplaceCell rebinds an instance to a different cell descriptor with the
// same port signature. Net bindings are preserved by port name; no nets or
// pins are created or destroyed.
func (n *Network) ReplaceCell(inst *Instance, newCell *liberty.Cell) error {
	if newCell == nil {
		return errors.New("replace requires a cell")
	}
	if !inst.Cell.PortSignatureMatches(newCell) {
		return errors.Errorf("cell %s port signature does not match %s",
			newCell.Name, inst.Cell.Name)
	}
	for name, pin := range inst.pins {
		pin.Port = newCell.FindPort(name)
	}
	inst.Cell = newCell
	return nil
}

// SetLocation places an instance.
func (n *Network) SetLocation(inst *Instance, loc geometry.Point) {
	inst.Location = loc
	inst.Placed = true
}
