// Command canopyvoxbench profiles the two hot paths of a canopy-vox
// worker — kd-tree construction and radius-based thinning — against
// synthetic point clouds, adapted from the teacher's cmd/profiler
// battery-table format but swapped onto internal/spatial and
// internal/thinning instead of the 2D Supercluster clustering path.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/mattj23/canopy-vox/internal/geom"
	"github.com/mattj23/canopy-vox/internal/spatial"
	"github.com/mattj23/canopy-vox/internal/thinning"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to file")
	numPoints  = flag.Int("points", 100000, "number of points to generate")
	tolerance  = flag.Float64("tolerance", 0.05, "thinning tolerance to profile")
	testall    = flag.Bool("testall", false, "run the full point-count x tolerance battery")
)

// generatePoints creates n random points in a unit-cube-scaled volume,
// with a deterministic seed so runs are reproducible.
func generatePoints(n int, extent float64) []geom.Vector3d {
	source := rand.NewSource(42)
	r := rand.New(source)

	points := make([]geom.Vector3d, n)
	for i := 0; i < n; i++ {
		points[i] = geom.Vector3d{
			X: r.Float64() * extent,
			Y: r.Float64() * extent,
			Z: r.Float64() * extent,
		}
	}
	return points
}

func runSingleProfile(numPoints int, tolerance float64) {
	fmt.Printf("Profiling with %d points at tolerance %g\n", numPoints, tolerance)

	points := generatePoints(numPoints, 100.0)

	var memBefore, memAfter runtime.MemStats
	runtime.ReadMemStats(&memBefore)

	start := time.Now()
	tree := spatial.Build(points)
	buildDuration := time.Since(start)

	start = time.Now()
	survivors := thinning.Thin(points, tolerance)
	thinDuration := time.Since(start)

	runtime.ReadMemStats(&memAfter)
	allocMB := float64(memAfter.TotalAlloc-memBefore.TotalAlloc) / 1024 / 1024

	fmt.Printf("kd-tree build: %v (%d nodes)\n", buildDuration, len(tree.Points))
	fmt.Printf("thinning:      %v (%d -> %d survivors)\n", thinDuration, numPoints, len(survivors))
	fmt.Printf("memory allocated: %.2f MB\n", allocMB)
}

func runProfileBattery() {
	pointCounts := []int{1000, 10000, 50000, 100000}
	tolerances := []float64{0.01, 0.05, 0.1, 0.5}

	fmt.Println("Running comprehensive profile battery...")
	fmt.Println("=======================================")
	fmt.Printf("%-10s | %-10s | %-14s | %-14s | %-12s | %-10s\n",
		"Points", "Tolerance", "Build", "Thin", "Survivors", "Memory (MB)")
	fmt.Println("------------------------------------------------------------------------")

	for _, n := range pointCounts {
		points := generatePoints(n, 100.0)
		for _, tol := range tolerances {
			var memBefore, memAfter runtime.MemStats
			runtime.ReadMemStats(&memBefore)

			start := time.Now()
			spatial.Build(points)
			buildDuration := time.Since(start)

			start = time.Now()
			survivors := thinning.Thin(points, tol)
			thinDuration := time.Since(start)

			runtime.ReadMemStats(&memAfter)
			memMB := float64(memAfter.TotalAlloc-memBefore.TotalAlloc) / 1024 / 1024

			fmt.Printf("%-10d | %-10g | %-14v | %-14v | %-12d | %-10.2f\n",
				n, tol, buildDuration, thinDuration, len(survivors), memMB)
		}
		fmt.Println("------------------------------------------------------------------------")
	}
}

func main() {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create CPU profile: %v\n", err)
			return
		}
		defer f.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "could not start CPU profile: %v\n", err)
			return
		}
		defer pprof.StopCPUProfile()
	}

	if *testall {
		runProfileBattery()
	} else {
		runSingleProfile(*numPoints, *tolerance)
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
			return
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
		}
	}
}
