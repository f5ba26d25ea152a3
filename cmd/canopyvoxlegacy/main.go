// Command canopyvoxlegacy is the single-process sanity-check tool of
// SPEC_FULL.md §4.12: it runs the whole voxelization pipeline — thinning
// and fine-grid binning — against one input file in one process, with no
// sharding or binning phases, to validate a distance choice before
// committing to a distributed run.
package main

import (
	"fmt"
	"os"

	"github.com/mattj23/canopy-vox/internal/config"
	"github.com/mattj23/canopy-vox/internal/geom"
	"github.com/mattj23/canopy-vox/internal/ioformat"
	"github.com/mattj23/canopy-vox/internal/thinning"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <config.json>\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateLegacy(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "canopyvoxlegacy: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Configuration) error {
	var points []geom.Vector3d
	err := ioformat.ReadTextPoints(cfg.InputFile, func(p geom.Vector3d) error {
		points = append(points, p)
		return nil
	})
	if err != nil {
		return fmt.Errorf("reading %q: %w", cfg.InputFile, err)
	}
	fmt.Printf("loaded %d points from %s\n", len(points), cfg.InputFile)

	survivors := thinning.Thin(points, cfg.ThinningDistance)
	fmt.Printf("%d points survived thinning at distance %g\n", len(survivors), cfg.ThinningDistance)

	vs := cfg.VoxelSpace
	sorter := geom.NewVoxelSorter(vs.Dx, vs.Dy, vs.Dz, vs.X0, vs.Y0, vs.Z0)

	counts := make(map[geom.VoxelAddress]int)
	for _, p := range survivors {
		counts[sorter.Identify(p)]++
	}

	if err := ioformat.WriteSparseVox(cfg.OutputFile, counts); err != nil {
		return fmt.Errorf("writing %q: %w", cfg.OutputFile, err)
	}
	fmt.Printf("wrote %d voxels to %s\n", len(counts), cfg.OutputFile)
	return nil
}
