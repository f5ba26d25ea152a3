// Package pipeline implements the three peer roles of spec §4: the
// Director's phase-barrier state machine, the Reader's streaming
// ingestion/routing, and the Worker's receive/thin/emit loop.
package pipeline

import (
	"fmt"
	"path/filepath"
)

// ScratchPath returns the phase-1 scratch file path for a worker number
// (spec §4.8): "<scratch_dir>/worker<w>.binary".
func ScratchPath(scratchDir string, workerNumber int) string {
	return filepath.Join(scratchDir, fmt.Sprintf("worker%d.binary", workerNumber))
}

// FinalPath returns a worker's phase-2 output file path (spec §4.9):
// "<scratch_dir>/worker<w>_final.sparsevox".
func FinalPath(scratchDir string, workerNumber int) string {
	return filepath.Join(scratchDir, fmt.Sprintf("worker%d_final.sparsevox", workerNumber))
}

// SnapshotPath returns a worker's debug snapshot path for a phase
// (SPEC_FULL.md §4.10): "<scratch_dir>/snapshot-<rank>-phase<N>.gob.zst".
func SnapshotPath(scratchDir string, rank, phase int) string {
	return filepath.Join(scratchDir, fmt.Sprintf("snapshot-%d-phase%d.gob.zst", rank, phase))
}

// CombinedResultsFile is the fixed merged output name (spec §4.9).
const CombinedResultsFile = "combined_results.sparsevox"

// roundRobinAssignment returns the items of all, assigned to owner out of
// ownerCount peers by round robin, used identically for input files (spec
// §4.4) and scratch files (spec §4.4 phase 2).
func roundRobinAssignment(all []string, owner, ownerCount int) []string {
	var assigned []string
	for i, item := range all {
		if i%ownerCount == owner {
			assigned = append(assigned, item)
		}
	}
	return assigned
}
