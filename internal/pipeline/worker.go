package pipeline

import (
	"fmt"
	"log"

	"github.com/mattj23/canopy-vox/internal/config"
	"github.com/mattj23/canopy-vox/internal/directory"
	"github.com/mattj23/canopy-vox/internal/geom"
	"github.com/mattj23/canopy-vox/internal/ioformat"
	"github.com/mattj23/canopy-vox/internal/snapshot"
	"github.com/mattj23/canopy-vox/internal/thinning"
	"github.com/mattj23/canopy-vox/internal/transport"
)

// Worker receives routed points into region buckets, thins them, and
// emits either a phase-1 scratch file or the final voxel intensity file
// (spec §4.5).
type Worker struct {
	cfg          config.Configuration
	dir          directory.Directory
	bus          *transport.Bus
	workerNumber int
}

// NewWorker constructs a Worker for the given worker-number.
func NewWorker(cfg config.Configuration, dir directory.Directory, bus *transport.Bus, workerNumber int) *Worker {
	return &Worker{cfg: cfg, dir: dir, bus: bus, workerNumber: workerNumber}
}

// RunPhase1 receives points under the shifted coarse grid, thins each
// bucket, and writes the survivors to the phase-1 scratch file.
func (w *Worker) RunPhase1() error {
	sorter := geom.NewShiftedSorter(w.cfg.VoxelDistance, w.cfg.BinningDistance)
	region, err := w.receiveUntilStart(sorter)
	if err != nil {
		return err
	}

	w.thinAll(region)

	if w.cfg.DebugSnapshot {
		path := SnapshotPath(w.cfg.ScratchDirectory, w.cfg.Rank, 1)
		if err := snapshot.Save(path, region); err != nil {
			log.Printf("worker %d: failed to write debug snapshot: %v", w.workerNumber, err)
		}
	}

	var survivors []geom.Vector3d
	for _, points := range region {
		survivors = append(survivors, points...)
	}
	scratchPath := ScratchPath(w.cfg.ScratchDirectory, w.workerNumber)
	if err := ioformat.WriteScratch(scratchPath, survivors); err != nil {
		return fmt.Errorf("worker %d: fatal I/O error writing scratch file: %w", w.workerNumber, err)
	}

	return w.bus.SendControl(w.dir.DirectorRank(), transport.WorkerDone)
}

// RunPhase2 receives points under the unshifted coarse grid, thins each
// bucket, builds the fine voxel intensity map, and writes the final
// per-worker sparsevox file.
func (w *Worker) RunPhase2() error {
	sorter := geom.NewUnshiftedSorter(w.cfg.VoxelDistance, w.cfg.BinningDistance)
	region, err := w.receiveUntilStart(sorter)
	if err != nil {
		return err
	}

	w.thinAll(region)

	if w.cfg.DebugSnapshot {
		path := SnapshotPath(w.cfg.ScratchDirectory, w.cfg.Rank, 2)
		if err := snapshot.Save(path, region); err != nil {
			log.Printf("worker %d: failed to write debug snapshot: %v", w.workerNumber, err)
		}
	}

	fineSorter := geom.NewFineSorter(w.cfg.VoxelDistance)
	counts := make(map[geom.VoxelAddress]int)
	for _, points := range region {
		for _, p := range points {
			counts[fineSorter.Identify(p)]++
		}
	}

	finalPath := FinalPath(w.cfg.ScratchDirectory, w.workerNumber)
	if err := ioformat.WriteSparseVox(finalPath, counts); err != nil {
		return fmt.Errorf("worker %d: fatal I/O error writing final file: %w", w.workerNumber, err)
	}

	return w.bus.SendControl(w.dir.DirectorRank(), transport.WorkerDone)
}

// receiveUntilStart implements the shared receive loop of spec §4.5 steps
// 2: probe for messages, bucket bulk points by coarse address, and stop
// on a StartWorking control message from the Director.
func (w *Worker) receiveUntilStart(sorter geom.VoxelSorter) (map[geom.VoxelAddress][]geom.Vector3d, error) {
	region := make(map[geom.VoxelAddress][]geom.Vector3d)
	for {
		msg, err := w.bus.Probe()
		if err != nil {
			return nil, err
		}

		switch msg.Tag {
		case transport.TagControl:
			if msg.Control != transport.StartWorking {
				continue
			}
			return region, nil
		case transport.TagBulk:
			for _, p := range msg.Bulk {
				addr := sorter.Identify(p)
				region[addr] = append(region[addr], p)
			}
		default:
			return nil, fmt.Errorf("worker %d: protocol error: unexpected tag %d from rank %d", w.workerNumber, msg.Tag, msg.Source)
		}
	}
}

// thinAll applies the radius-thinning contract of spec §4.6 to every
// region bucket in place.
func (w *Worker) thinAll(region map[geom.VoxelAddress][]geom.Vector3d) {
	for addr, points := range region {
		region[addr] = thinning.Thin(points, w.cfg.ThinningDistance)
	}
}
