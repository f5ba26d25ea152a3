package pipeline

import (
	"fmt"
	"log"
	"os"

	"github.com/mattj23/canopy-vox/internal/config"
	"github.com/mattj23/canopy-vox/internal/directory"
	"github.com/mattj23/canopy-vox/internal/geom"
	"github.com/mattj23/canopy-vox/internal/ioformat"
	"github.com/mattj23/canopy-vox/internal/transport"
)

// sendThreshold is the fixed send buffer capacity B of spec §4.4.
const sendThreshold = 100

// Reader streams points from its assigned files, routes each to a worker
// by coarse voxel hash, and batches sends per spec §4.4.
type Reader struct {
	cfg          config.Configuration
	dir          directory.Directory
	bus          *transport.Bus
	readerNumber int
}

// NewReader constructs a Reader for the given reader-number.
func NewReader(cfg config.Configuration, dir directory.Directory, bus *transport.Bus, readerNumber int) *Reader {
	return &Reader{cfg: cfg, dir: dir, bus: bus, readerNumber: readerNumber}
}

// RunPhase1 streams the reader's share of input_files through the shifted
// coarse sorter and routes points to workers.
func (r *Reader) RunPhase1() error {
	sorter := geom.NewShiftedSorter(r.cfg.VoxelDistance, r.cfg.BinningDistance)
	files := roundRobinAssignment(r.cfg.InputFiles, r.readerNumber, r.dir.NumReaders())

	buffers := newTransmitBuffers(r.bus, r.dir.NumWorkers(), r.dir)
	for _, path := range files {
		err := ioformat.ReadTextPoints(path, func(p geom.Vector3d) error {
			return buffers.route(sorter, p)
		})
		if err != nil {
			// Per-file I/O error: log and continue with the remaining files
			// (spec §4.4/§7). Parse errors are already handled silently
			// inside ReadTextPoints.
			log.Printf("reader %d: skipping %q: %v", r.readerNumber, path, err)
		}
	}
	if err := buffers.flushAll(); err != nil {
		return err
	}
	return r.bus.SendControl(r.dir.DirectorRank(), transport.ReaderDone)
}

// WaitForStart blocks until the Director sends StartWorking to this
// reader (the StartR2 transition of spec §4.3), gating phase 2 on every
// worker having finished writing phase-1 scratch files.
func (r *Reader) WaitForStart() error {
	for {
		msg, err := r.bus.Probe()
		if err != nil {
			return err
		}
		if msg.Tag != transport.TagControl {
			return fmt.Errorf("reader %d: protocol error: unexpected tag %d while waiting to start", r.readerNumber, msg.Tag)
		}
		if msg.Control == transport.StartWorking {
			return nil
		}
	}
}

// RunPhase2 streams the reader's share of worker scratch files through the
// unshifted coarse sorter, deleting each after it is read.
func (r *Reader) RunPhase2() error {
	sorter := geom.NewUnshiftedSorter(r.cfg.VoxelDistance, r.cfg.BinningDistance)

	scratchFiles := make([]string, r.dir.NumWorkers())
	for w := 0; w < r.dir.NumWorkers(); w++ {
		scratchFiles[w] = ScratchPath(r.cfg.ScratchDirectory, w)
	}
	assigned := roundRobinAssignment(scratchFiles, r.readerNumber, r.dir.NumReaders())

	buffers := newTransmitBuffers(r.bus, r.dir.NumWorkers(), r.dir)
	for _, path := range assigned {
		points, err := ioformat.ReadScratch(path)
		if err != nil {
			log.Printf("reader %d: skipping scratch file %q: %v", r.readerNumber, path, err)
			continue
		}
		for _, p := range points {
			if err := buffers.route(sorter, p); err != nil {
				return err
			}
		}
		if err := os.Remove(path); err != nil {
			log.Printf("reader %d: failed to remove consumed scratch file %q: %v", r.readerNumber, path, err)
		}
	}
	if err := buffers.flushAll(); err != nil {
		return err
	}
	return r.bus.SendControl(r.dir.DirectorRank(), transport.ReaderDone)
}

// transmitBuffers holds one per-worker send buffer, flushed at threshold
// capacity or at end of stream (spec §3, §4.4).
type transmitBuffers struct {
	bus     *transport.Bus
	dir     directory.Directory
	buffers [][]geom.Vector3d
}

func newTransmitBuffers(bus *transport.Bus, numWorkers int, dir directory.Directory) *transmitBuffers {
	return &transmitBuffers{bus: bus, dir: dir, buffers: make([][]geom.Vector3d, numWorkers)}
}

func (t *transmitBuffers) route(sorter geom.VoxelSorter, p geom.Vector3d) error {
	addr := sorter.Identify(p)
	worker := int(addr.Hash() % uint64(len(t.buffers)))

	t.buffers[worker] = append(t.buffers[worker], p)
	if len(t.buffers[worker]) >= sendThreshold {
		return t.flush(worker)
	}
	return nil
}

func (t *transmitBuffers) flush(worker int) error {
	if len(t.buffers[worker]) == 0 {
		return nil
	}
	rank := t.dir.WorkerRank(worker)
	if err := t.bus.SendBulk(rank, t.buffers[worker]); err != nil {
		return fmt.Errorf("reader: failed to send batch to worker %d: %w", worker, err)
	}
	t.buffers[worker] = t.buffers[worker][:0]
	return nil
}

func (t *transmitBuffers) flushAll() error {
	for w := range t.buffers {
		if err := t.flush(w); err != nil {
			return err
		}
	}
	return nil
}
