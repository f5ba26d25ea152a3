// Command canopystats summarizes a finished .sparsevox file: voxel
// count, total point intensity, the i/j/k bounding box, and a content
// fingerprint. Adapted from the teacher's CalculateMetadataSummary
// (cluster/helpers.go), which folds a cluster slice into aggregate
// stats in one pass — here folding voxel counts instead of cluster
// metrics, with the timestamp/category bookkeeping dropped since
// sparsevox lines carry no metadata to summarize.
package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/mattj23/canopy-vox/internal/ioformat"
)

// Summary is the aggregate canopystats reports for one .sparsevox file.
type Summary struct {
	VoxelCount  int    `json:"voxelCount"`
	TotalPoints int    `json:"totalPoints"`
	MinI, MaxI  int32  `json:"-"`
	MinJ, MaxJ  int32  `json:"-"`
	MinK, MaxK  int32  `json:"-"`
	Fingerprint uint64 `json:"fingerprint"`
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <combined_results.sparsevox>\n", os.Args[0])
		os.Exit(1)
	}

	summary, err := summarize(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "canopystats: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("voxels:      %d\n", summary.VoxelCount)
	fmt.Printf("points:      %d\n", summary.TotalPoints)
	if summary.VoxelCount > 0 {
		fmt.Printf("bounds i:    [%d, %d]\n", summary.MinI, summary.MaxI)
		fmt.Printf("bounds j:    [%d, %d]\n", summary.MinJ, summary.MaxJ)
		fmt.Printf("bounds k:    [%d, %d]\n", summary.MinK, summary.MaxK)
	}
	fmt.Printf("fingerprint: %016x\n", summary.Fingerprint)
}

func summarize(path string) (Summary, error) {
	counts, err := ioformat.ReadSparseVox(path)
	if err != nil {
		return Summary{}, fmt.Errorf("reading %q: %w", path, err)
	}

	summary := Summary{
		MinI: math.MaxInt32, MaxI: math.MinInt32,
		MinJ: math.MaxInt32, MaxJ: math.MinInt32,
		MinK: math.MaxInt32, MaxK: math.MinInt32,
	}

	var buf [20]byte
	digest := xxhash.New()

	// Map iteration order is not guaranteed stable across runs, so the
	// fingerprint XOR-folds each voxel's own hash into the total rather
	// than feeding one running digest — it depends only on content, not
	// on the order counts was iterated in.
	var fingerprint uint64
	for addr, count := range counts {
		summary.VoxelCount++
		summary.TotalPoints += count

		summary.MinI, summary.MaxI = min32(summary.MinI, addr.I), max32(summary.MaxI, addr.I)
		summary.MinJ, summary.MaxJ = min32(summary.MinJ, addr.J), max32(summary.MaxJ, addr.J)
		summary.MinK, summary.MaxK = min32(summary.MinK, addr.K), max32(summary.MaxK, addr.K)

		binary.LittleEndian.PutUint32(buf[0:4], uint32(addr.I))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(addr.J))
		binary.LittleEndian.PutUint32(buf[8:12], uint32(addr.K))
		binary.LittleEndian.PutUint64(buf[12:20], uint64(count))
		digest.Reset()
		digest.Write(buf[:])
		fingerprint ^= digest.Sum64()
	}
	summary.Fingerprint = fingerprint

	if summary.VoxelCount == 0 {
		summary.MinI, summary.MaxI = 0, 0
		summary.MinJ, summary.MaxJ = 0, 0
		summary.MinK, summary.MaxK = 0, 0
	}

	return summary, nil
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
