package liberty

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// The JSON library schema. A library file carries a list of cells, each with
// ports and timing arc sets; each arc carries a delay model tagged by type.

type libraryJSON struct {
	Name  string     `json:"name"`
	Cells []cellJSON `json:"cells"`
}

type cellJSON struct {
	Name     string       `json:"name"`
	Function string       `json:"function,omitempty"`
	Buffer   bool         `json:"buffer,omitempty"`
	LEF      bool         `json:"lef,omitempty"`
	Ports    []portJSON   `json:"ports"`
	Arcs     []arcSetJSON `json:"arcs,omitempty"`
}

type portJSON struct {
	Name      string   `json:"name"`
	Direction string   `json:"direction"`
	CapRise   float64  `json:"cap_rise,omitempty"`
	CapFall   float64  `json:"cap_fall,omitempty"`
	MaxCap    *float64 `json:"max_cap,omitempty"`
	MaxSlew   *float64 `json:"max_slew,omitempty"`
}

type arcSetJSON struct {
	From        string    `json:"from"`
	To          string    `json:"to"`
	Role        string    `json:"role,omitempty"`
	Transitions []arcJSON `json:"transitions"`
}

type arcJSON struct {
	FromTr string          `json:"from_tr"`
	ToTr   string          `json:"to_tr"`
	Model  json.RawMessage `json:"model"`
}

type modelJSON struct {
	Type string `json:"type"`
}

// Load reads a library from a JSON file.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read library")
	}
	lib, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse library %s", path)
	}
	return lib, nil
}

// Parse builds a library from JSON data.
func Parse(data []byte) (*Library, error) {
	var doc libraryJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode library")
	}
	if doc.Name == "" {
		return nil, errors.New("library has no name")
	}
	lib := NewLibrary(doc.Name)
	for _, cj := range doc.Cells {
		cell, err := parseCell(cj)
		if err != nil {
			return nil, errors.Wrapf(err, "cell %s", cj.Name)
		}
		lib.AddCell(cell)
	}
	return lib, nil
}

func parseCell(cj cellJSON) (*Cell, error) {
	if cj.Name == "" {
		return nil, errors.New("cell has no name")
	}
	cell := NewCell(cj.Name, cj.Function)
	cell.Buffer = cj.Buffer
	cell.LEF = cj.LEF
	for _, pj := range cj.Ports {
		port, err := parsePort(pj)
		if err != nil {
			return nil, errors.Wrapf(err, "port %s", pj.Name)
		}
		cell.AddPort(port)
	}
	for _, aj := range cj.Arcs {
		set, err := parseArcSet(cell, aj)
		if err != nil {
			return nil, errors.Wrapf(err, "arc %s->%s", aj.From, aj.To)
		}
		cell.AddArcSet(set)
	}
	return cell, nil
}

func parsePort(pj portJSON) (*Port, error) {
	dir, err := parseDirection(pj.Direction)
	if err != nil {
		return nil, err
	}
	port := &Port{
		Name:      pj.Name,
		Direction: dir,
	}
	port.Cap[Rise] = pj.CapRise
	port.Cap[Fall] = pj.CapFall
	if pj.MaxCap != nil {
		port.MaxCap = *pj.MaxCap
		port.MaxCapExists = true
	}
	if pj.MaxSlew != nil {
		port.MaxSlew = *pj.MaxSlew
		port.MaxSlewExists = true
	}
	return port, nil
}

func parseArcSet(cell *Cell, aj arcSetJSON) (*ArcSet, error) {
	from := cell.FindPort(aj.From)
	if from == nil {
		return nil, errors.Errorf("unknown from port %q", aj.From)
	}
	to := cell.FindPort(aj.To)
	if to == nil {
		return nil, errors.Errorf("unknown to port %q", aj.To)
	}
	role, err := parseRole(aj.Role)
	if err != nil {
		return nil, err
	}
	set := NewArcSet(from, to, role)
	for _, tj := range aj.Transitions {
		fromTr, err := parseTransition(tj.FromTr)
		if err != nil {
			return nil, err
		}
		toTr, err := parseTransition(tj.ToTr)
		if err != nil {
			return nil, err
		}
		model, err := parseModel(tj.Model)
		if err != nil {
			return nil, err
		}
		set.AddArc(&Arc{FromTr: fromTr, ToTr: toTr, Model: model})
	}
	return set, nil
}

func parseModel(raw json.RawMessage) (DelayModel, error) {
	if len(raw) == 0 {
		// An arc without a model contributes nothing to characterization.
		return nil, nil
	}
	var tag modelJSON
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, errors.Wrap(err, "decode model tag")
	}
	switch tag.Type {
	case "linear":
		var m LinearModel
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, errors.Wrap(err, "decode linear model")
		}
		return &m, nil
	case "table":
		var m TableModel
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, errors.Wrap(err, "decode table model")
		}
		if err := validateTable(&m); err != nil {
			return nil, err
		}
		return &m, nil
	default:
		return nil, errors.Errorf("unknown model type %q", tag.Type)
	}
}

func validateTable(m *TableModel) error {
	if len(m.SlewAxis) == 0 || len(m.CapAxis) == 0 {
		return errors.New("table model has empty axes")
	}
	for _, axis := range [][]float64{m.SlewAxis, m.CapAxis} {
		for i := 1; i < len(axis); i++ {
			if axis[i] <= axis[i-1] {
				return errors.New("table axes must be strictly increasing")
			}
		}
	}
	if len(m.Delay) != len(m.SlewAxis) || len(m.Slew) != len(m.SlewAxis) {
		return errors.New("table row count does not match slew axis")
	}
	for i := range m.Delay {
		if len(m.Delay[i]) != len(m.CapAxis) || len(m.Slew[i]) != len(m.CapAxis) {
			return errors.Errorf("table row %d does not match cap axis", i)
		}
	}
	return nil
}

func parseDirection(s string) (Direction, error) {
	switch s {
	case "input":
		return Input, nil
	case "output":
		return Output, nil
	case "bidirect":
		return Bidirect, nil
	default:
		return 0, errors.Errorf("unknown direction %q", s)
	}
}

func parseRole(s string) (ArcRole, error) {
	switch s {
	case "", "combinational":
		return Combinational, nil
	case "timing_check":
		return TimingCheck, nil
	case "tristate_enable":
		return TristateEnable, nil
	case "tristate_disable":
		return TristateDisable, nil
	default:
		return 0, errors.Errorf("unknown arc role %q", s)
	}
}

func parseTransition(s string) (Transition, error) {
	switch s {
	case "rise":
		return Rise, nil
	case "fall":
		return Fall, nil
	default:
		return 0, errors.Errorf("unknown transition %q", s)
	}
}
