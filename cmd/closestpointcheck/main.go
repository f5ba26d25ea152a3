// Command closestpointcheck is the pre-step tool of spec §6: given a
// single input file, it prints the minimum pairwise distance among its
// points, a starting point for choosing thinning_distance.
package main

import (
	"fmt"
	"os"

	"github.com/mattj23/canopy-vox/internal/geom"
	"github.com/mattj23/canopy-vox/internal/ioformat"
	"github.com/mattj23/canopy-vox/internal/thinning"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <points-file>\n", os.Args[0])
		os.Exit(1)
	}

	var points []geom.Vector3d
	err := ioformat.ReadTextPoints(os.Args[1], func(p geom.Vector3d) error {
		points = append(points, p)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "closestpointcheck: %v\n", err)
		os.Exit(1)
	}

	distance, ok := thinning.ClosestPairDistance(points)
	if !ok {
		fmt.Fprintln(os.Stderr, "closestpointcheck: need at least two points")
		os.Exit(1)
	}

	fmt.Printf("%g\n", distance)
}
