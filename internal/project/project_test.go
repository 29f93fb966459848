package project

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/abk-openroad/Resizer/internal/liberty"
)

const libDoc = `{
	"name": "testlib",
	"cells": [
		{
			"name": "INV1",
			"function": "INV",
			"ports": [
				{"name": "A", "direction": "input", "cap_rise": 2e-15, "cap_fall": 2e-15},
				{"name": "Z", "direction": "output", "max_cap": 2e-14}
			],
			"arcs": [
				{"from": "A", "to": "Z", "transitions": [
					{"from_tr": "rise", "to_tr": "fall",
					 "model": {"type": "linear", "delay_intercept": 1e-11, "slew_intercept": 5e-11}}
				]}
			]
		},
		{
			"name": "BUF1",
			"function": "BUF",
			"buffer": true,
			"ports": [
				{"name": "in", "direction": "input", "cap_rise": 5e-15, "cap_fall": 5e-15},
				{"name": "out", "direction": "output"}
			]
		}
	]
}`

func writeDesign(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lib.json"), []byte(libDoc), 0644); err != nil {
		t.Fatal(err)
	}
	design := `{
		"version": 1,
		"name": "chain",
		"dbu_per_micron": 1000,
		"libraries": ["lib.json"],
		"ports": [
			{"name": "in1", "direction": "input", "x": 0, "y": 0}
		],
		"instances": [
			{"name": "u1", "cell": "INV1", "x": 0, "y": 0},
			{"name": "u2", "cell": "INV1", "x": 500000, "y": 0}
		],
		"nets": [
			{"name": "n0", "pins": ["in1", "u1/A"]},
			{"name": "n1", "pins": ["u1/Z", "u2/A"]},
			{"name": "clk", "pins": ["u2/Z"], "clock": true}
		],
		"constraints": {
			"max_slew": 1.5e-10,
			"required": {"u2/A": 2e-10},
			"pin_max_slew": {"u1/Z": 1.2e-10}
		}
	}`
	path := filepath.Join(dir, "chain.rszproj")
	if err := os.WriteFile(path, []byte(design), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	design, err := Load(writeDesign(t))
	if err != nil {
		t.Fatal(err)
	}
	nw := design.Network
	if nw.Name != "chain" || nw.DBUPerMicron != 1000 {
		t.Errorf("network header: %s, %g", nw.Name, nw.DBUPerMicron)
	}
	if len(nw.Libraries()) != 1 {
		t.Fatalf("library count = %d", len(nw.Libraries()))
	}
	u1 := nw.FindInstance("u1")
	if u1 == nil || u1.Cell.Name != "INV1" || !u1.Placed {
		t.Fatalf("u1 = %+v", u1)
	}
	u2 := nw.FindInstance("u2")
	if u2.Location.X != 500000 {
		t.Errorf("u2 at %+v", u2.Location)
	}
	n1 := nw.FindNet("n1")
	if n1 == nil || len(n1.Drivers()) != 1 || len(n1.Loads()) != 1 {
		t.Fatalf("n1 shape wrong")
	}
	if n1.Drivers()[0].PathName() != "u1/Z" {
		t.Errorf("n1 driver = %s", n1.Drivers()[0].PathName())
	}
	// Top port connected.
	n0 := nw.FindNet("n0")
	if len(n0.Drivers()) != 1 || n0.Drivers()[0].TopName != "in1" {
		t.Error("top port not driving n0")
	}

	cons := design.Constraints
	if limit, ok := cons.DesignMaxSlew(); !ok || limit != 1.5e-10 {
		t.Errorf("design max slew = %g, %v", limit, ok)
	}
	u1z := u1.FindPin("Z")
	if !u1z.MaxSlewExists || math.Abs(u1z.MaxSlew-1.2e-10) > 1e-20 {
		t.Errorf("u1/Z max slew = %g, %v", u1z.MaxSlew, u1z.MaxSlewExists)
	}
}

func TestBuildErrors(t *testing.T) {
	lib, err := liberty.Parse([]byte(libDoc))
	if err != nil {
		t.Fatal(err)
	}
	libs := []*liberty.Library{lib}
	tests := []struct {
		name string
		file File
	}{
		{"no dbu", File{Name: "d"}},
		{"unknown cell", File{Name: "d", DBUPerMicron: 1000,
			Instances: []InstanceDef{{Name: "u1", Cell: "NOPE"}}}},
		{"unknown pin", File{Name: "d", DBUPerMicron: 1000,
			Nets: []NetDef{{Name: "n1", Pins: []string{"ghost/A"}}}}},
		{"duplicate net", File{Name: "d", DBUPerMicron: 1000,
			Nets: []NetDef{{Name: "n1"}, {Name: "n1"}}}},
	}
	for _, tt := range tests {
		if _, err := Build(&tt.file, libs); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestSplitPinName(t *testing.T) {
	tests := []struct {
		in         string
		inst, port string
		ok         bool
	}{
		{"u1/A", "u1", "A", true},
		{"core/u1/A", "core/u1", "A", true},
		{"in1", "", "", false},
		{"/A", "", "", false},
		{"u1/", "", "", false},
	}
	for _, tt := range tests {
		inst, port, ok := splitPinName(tt.in)
		if inst != tt.inst || port != tt.port || ok != tt.ok {
			t.Errorf("splitPinName(%q) = %q, %q, %v", tt.in, inst, port, ok)
		}
	}
}
