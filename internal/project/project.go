// Package project provides design file handling and persistence. A design
// file carries the placed netlist, references to its libraries, and the
// timing constraints, so an optimization session loads from one JSON
// document.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/abk-openroad/Resizer/internal/liberty"
	"github.com/abk-openroad/Resizer/internal/network"
	"github.com/abk-openroad/Resizer/internal/timing"
	"github.com/abk-openroad/Resizer/pkg/geometry"
)

// File represents a resizer design file (.rszproj).
type File struct {
	Version int    `json:"version"`
	Name    string `json:"name"`

	// DBUPerMicron converts placement coordinates to physical length.
	DBUPerMicron float64 `json:"dbu_per_micron"`

	// Library paths, relative to the design file.
	LibraryPaths []string `json:"libraries"`

	Ports     []PortDef     `json:"ports,omitempty"`
	Instances []InstanceDef `json:"instances"`
	Nets      []NetDef      `json:"nets"`

	Constraints ConstraintsDef `json:"constraints,omitempty"`
}

// PortDef is a top-level port with its placement.
type PortDef struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
	X         int64  `json:"x"`
	Y         int64  `json:"y"`
}

// InstanceDef is a placed cell instance.
type InstanceDef struct {
	Name   string `json:"name"`
	Cell   string `json:"cell"`
	X      int64  `json:"x"`
	Y      int64  `json:"y"`
	Placed *bool  `json:"placed,omitempty"` // default true
}

// NetDef connects pins, named "inst/port" for instance pins or the bare
// port name for top-level ports.
type NetDef struct {
	Name  string   `json:"name"`
	Pins  []string `json:"pins"`
	Clock bool     `json:"clock,omitempty"`
}

// ConstraintsDef carries the timing constraints.
type ConstraintsDef struct {
	MaxSlew       *float64           `json:"max_slew,omitempty"`
	InputSlewRise float64            `json:"input_slew_rise,omitempty"`
	InputSlewFall float64            `json:"input_slew_fall,omitempty"`
	Required      map[string]float64 `json:"required,omitempty"`
	PinMaxSlew    map[string]float64 `json:"pin_max_slew,omitempty"`
}

// Design is a loaded design ready for optimization.
type Design struct {
	Network     *network.Network
	Constraints *timing.Constraints
}

// Load reads a design file and builds the netlist and constraints.
func Load(path string) (*Design, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read design")
	}
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "decode design")
	}
	dir := filepath.Dir(path)
	libs := make([]*liberty.Library, 0, len(file.LibraryPaths))
	for _, libPath := range file.LibraryPaths {
		if !filepath.IsAbs(libPath) {
			libPath = filepath.Join(dir, libPath)
		}
		lib, err := liberty.Load(libPath)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return Build(&file, libs)
}

// Build constructs a design from a parsed file and its libraries.
func Build(file *File, libs []*liberty.Library) (*Design, error) {
	if file.DBUPerMicron <= 0 {
		return nil, errors.New("dbu_per_micron must be positive")
	}
	net := network.New(file.Name, file.DBUPerMicron)
	for _, lib := range libs {
		net.AddLibrary(lib)
	}

	findCell := func(name string) *liberty.Cell {
		for _, lib := range libs {
			if c := lib.FindCell(name); c != nil {
				return c
			}
		}
		return nil
	}

	for _, pd := range file.Ports {
		dir, err := parseDirection(pd.Direction)
		if err != nil {
			return nil, errors.Wrapf(err, "port %s", pd.Name)
		}
		if _, err := net.MakeTopPort(pd.Name, dir, geometry.NewPoint(pd.X, pd.Y)); err != nil {
			return nil, err
		}
	}

	for _, id := range file.Instances {
		cell := findCell(id.Cell)
		if cell == nil {
			return nil, errors.Errorf("instance %s: unknown cell %q", id.Name, id.Cell)
		}
		inst, err := net.MakeInstance(cell, id.Name)
		if err != nil {
			return nil, err
		}
		if id.Placed == nil || *id.Placed {
			net.SetLocation(inst, geometry.NewPoint(id.X, id.Y))
		}
	}

	cons := timing.NewConstraints()
	for _, nd := range file.Nets {
		n, err := net.MakeNet(nd.Name)
		if err != nil {
			return nil, err
		}
		for _, pinName := range nd.Pins {
			if err := connectByName(net, pinName, n); err != nil {
				return nil, errors.Wrapf(err, "net %s", nd.Name)
			}
		}
		if nd.Clock {
			cons.MarkClockNet(n)
		}
	}

	if file.Constraints.MaxSlew != nil {
		cons.SetDesignMaxSlew(*file.Constraints.MaxSlew)
	}
	cons.SetInputSlew(liberty.Rise, file.Constraints.InputSlewRise)
	cons.SetInputSlew(liberty.Fall, file.Constraints.InputSlewFall)
	for pinName, req := range file.Constraints.Required {
		pin, err := findPin(net, pinName)
		if err != nil {
			return nil, errors.Wrap(err, "required constraint")
		}
		cons.SetRequired(pin, req)
	}
	for pinName, limit := range file.Constraints.PinMaxSlew {
		pin, err := findPin(net, pinName)
		if err != nil {
			return nil, errors.Wrap(err, "pin_max_slew constraint")
		}
		pin.MaxSlew = limit
		pin.MaxSlewExists = true
	}

	return &Design{Network: net, Constraints: cons}, nil
}

func connectByName(net *network.Network, pinName string, n *network.Net) error {
	if inst, port, ok := splitPinName(pinName); ok {
		instance := net.FindInstance(inst)
		if instance == nil {
			return errors.Errorf("unknown instance %q", inst)
		}
		_, err := net.Connect(instance, port, n)
		return err
	}
	_, err := net.ConnectTopPort(pinName, n)
	return err
}

func findPin(net *network.Network, pinName string) (*network.Pin, error) {
	if instName, port, ok := splitPinName(pinName); ok {
		inst := net.FindInstance(instName)
		if inst == nil {
			return nil, errors.Errorf("unknown instance %q", instName)
		}
		pin := inst.FindPin(port)
		if pin == nil {
			return nil, errors.Errorf("instance %s has no port %q", instName, port)
		}
		return pin, nil
	}
	for _, pin := range net.TopPorts() {
		if pin.TopName == pinName {
			return pin, nil
		}
	}
	return nil, errors.Errorf("unknown pin %q", pinName)
}

func splitPinName(name string) (inst, port string, ok bool) {
	idx := strings.LastIndex(name, "/")
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}

func parseDirection(s string) (liberty.Direction, error) {
	switch s {
	case "input":
		return liberty.Input, nil
	case "output":
		return liberty.Output, nil
	case "bidirect":
		return liberty.Bidirect, nil
	default:
		return 0, errors.Errorf("unknown direction %q", s)
	}
}

// Save writes the design file back to disk.
func (f *File) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode design")
	}
	return os.WriteFile(path, data, 0644)
}
