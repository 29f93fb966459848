// Command resizer optimizes a placed gate-level design: it resizes cells
// to their characterized target load and inserts buffers on nets violating
// capacitance or slew limits.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/abk-openroad/Resizer/internal/parasitics"
	"github.com/abk-openroad/Resizer/internal/project"
	"github.com/abk-openroad/Resizer/internal/resizer"
	"github.com/abk-openroad/Resizer/internal/timing"
	"github.com/abk-openroad/Resizer/internal/version"
)

func main() {
	designPath := flag.String("design", "", "Path to design file (.rszproj)")
	bufferName := flag.String("buffer", "", "Buffer cell used for repairs")
	resize := flag.Bool("resize", true, "Resize instances to their target load")
	repairMaxCap := flag.Bool("repair_max_cap", false, "Rebuffer max-capacitance violations")
	repairMaxSlew := flag.Bool("repair_max_slew", false, "Rebuffer max-slew violations")
	wireRes := flag.Float64("wire_res", 0, "Wire resistance, ohms/meter")
	wireCap := flag.Float64("wire_cap", 0, "Wire capacitance, farads/meter")
	cornerName := flag.String("corner", "default", "Analysis corner name")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *designPath == "" {
		fmt.Println("Usage: resizer -design <path> -wire_res <ohms/m> -wire_cap <F/m> [-buffer <cell>] [flags]")
		os.Exit(1)
	}

	design, err := project.Load(*designPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load design: %v\n", err)
		os.Exit(1)
	}

	paras := parasitics.NewStore()
	graph := timing.NewGraph(design.Network, paras, design.Constraints)
	rsz := resizer.New(design.Network, graph, paras, os.Stdout)

	opts := resizer.Options{
		Resize:          *resize,
		RepairMaxCap:    *repairMaxCap,
		RepairMaxSlew:   *repairMaxSlew,
		WireResPerMeter: *wireRes,
		WireCapPerMeter: *wireCap,
		Corner:          &timing.Corner{Name: *cornerName},
	}
	if *bufferName != "" {
		for _, lib := range design.Network.Libraries() {
			if cell := lib.FindCell(*bufferName); cell != nil {
				opts.BufferCell = cell
				break
			}
		}
		if opts.BufferCell == nil {
			fmt.Fprintf(os.Stderr, "Unknown buffer cell %q\n", *bufferName)
			os.Exit(1)
		}
	}

	if err := rsz.Run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Resizer failed: %v\n", err)
		os.Exit(1)
	}
}
