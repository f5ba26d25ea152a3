package pipeline

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/mattj23/canopy-vox/internal/config"
	"github.com/mattj23/canopy-vox/internal/directory"
	"github.com/mattj23/canopy-vox/internal/ioformat"
	"github.com/mattj23/canopy-vox/internal/transport"
)

// Director runs the phase-barrier state machine of spec §4.3:
// WaitR1 -> StartW1 -> WaitW1 -> StartR2 -> WaitR2 -> StartW2 -> WaitW2 ->
// Merge -> Done.
type Director struct {
	cfg config.Configuration
	dir directory.Directory
	bus *transport.Bus

	mu    sync.Mutex
	phase string
}

// NewDirector constructs a Director ready to run the barrier state machine.
func NewDirector(cfg config.Configuration, dir directory.Directory, bus *transport.Bus) *Director {
	return &Director{cfg: cfg, dir: dir, bus: bus, phase: "WaitR1"}
}

// Run drives the full state machine to completion, merging worker output
// into combined_results.sparsevox on success.
func (d *Director) Run() error {
	if d.cfg.StatusAddr != "" {
		go d.serveStatus()
	}

	if err := d.waitFor(directory.RoleReader, transport.ReaderDone); err != nil {
		return fmt.Errorf("director: phase 1 reader barrier: %w", err)
	}
	if err := d.startRole(directory.RoleWorker); err != nil {
		return fmt.Errorf("director: starting workers for phase 1: %w", err)
	}
	if err := d.waitFor(directory.RoleWorker, transport.WorkerDone); err != nil {
		return fmt.Errorf("director: phase 1 worker barrier: %w", err)
	}

	if err := d.startRole(directory.RoleReader); err != nil {
		return fmt.Errorf("director: starting readers for phase 2: %w", err)
	}
	if err := d.waitFor(directory.RoleReader, transport.ReaderDone); err != nil {
		return fmt.Errorf("director: phase 2 reader barrier: %w", err)
	}
	if err := d.startRole(directory.RoleWorker); err != nil {
		return fmt.Errorf("director: starting workers for phase 2: %w", err)
	}
	if err := d.waitFor(directory.RoleWorker, transport.WorkerDone); err != nil {
		return fmt.Errorf("director: phase 2 worker barrier: %w", err)
	}

	d.setPhase("Merge")
	if err := d.merge(); err != nil {
		return fmt.Errorf("director: merge: %w", err)
	}
	d.setPhase("Done")
	return nil
}

func (d *Director) setPhase(p string) {
	d.mu.Lock()
	d.phase = p
	d.mu.Unlock()
}

// waitFor implements spec §4.3's WaitFor: probe any peer on any tag until
// every peer of role has reported expected. Control codes other than
// expected are ignored — they are always preceded by the expected code
// from the same role in this protocol, so their absence, not their
// presence, is the only error mode.
func (d *Director) waitFor(role directory.Role, expected transport.ControlCode) error {
	var count int
	switch role {
	case directory.RoleReader:
		count = d.dir.NumReaders()
	case directory.RoleWorker:
		count = d.dir.NumWorkers()
	default:
		return fmt.Errorf("director: cannot wait for role %s", role)
	}

	d.mu.Lock()
	d.phase = "Wait" + roleLetter(role)
	d.mu.Unlock()

	seen := make([]bool, count)
	remaining := count
	for remaining > 0 {
		msg, err := d.bus.Probe()
		if err != nil {
			return err
		}
		if msg.Tag != transport.TagControl {
			return fmt.Errorf("director: protocol error: expected a control message from rank %d, got tag %d", msg.Source, msg.Tag)
		}
		if msg.Control != expected {
			continue
		}

		var number int
		switch role {
		case directory.RoleReader:
			number = d.dir.ReaderNumber(msg.Source)
		case directory.RoleWorker:
			number = d.dir.WorkerNumber(msg.Source)
		}
		if number < 0 || number >= count || seen[number] {
			continue
		}
		seen[number] = true
		remaining--
	}
	return nil
}

// startRole sends StartWorking to every peer of role.
func (d *Director) startRole(role directory.Role) error {
	var count int
	var rankOf func(int) int
	switch role {
	case directory.RoleReader:
		count = d.dir.NumReaders()
		rankOf = d.dir.ReaderRank
	case directory.RoleWorker:
		count = d.dir.NumWorkers()
		rankOf = d.dir.WorkerRank
	default:
		return fmt.Errorf("director: cannot start role %s", role)
	}

	d.mu.Lock()
	d.phase = "Start" + roleLetter(role)
	d.mu.Unlock()

	for i := 0; i < count; i++ {
		if err := d.bus.SendControl(rankOf(i), transport.StartWorking); err != nil {
			return err
		}
	}
	return nil
}

// merge concatenates every worker's final file, in worker-number order,
// into combined_results.sparsevox, and deletes the sources (spec §4.9).
func (d *Director) merge() error {
	paths := make([]string, d.dir.NumWorkers())
	for w := 0; w < d.dir.NumWorkers(); w++ {
		paths[w] = FinalPath(d.cfg.ScratchDirectory, w)
	}
	return ioformat.MergeSparseVox(paths, CombinedResultsFile)
}

func roleLetter(r directory.Role) string {
	switch r {
	case directory.RoleReader:
		return "R"
	case directory.RoleWorker:
		return "W"
	default:
		return "?"
	}
}

// serveStatus runs the optional read-only status endpoint (SPEC_FULL.md
// §2 expansion) using the teacher's gin dependency.
func (d *Director) serveStatus() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/status", func(c *gin.Context) {
		d.mu.Lock()
		phase := d.phase
		d.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"phase": phase})
	})
	_ = r.Run(d.cfg.StatusAddr)
}
