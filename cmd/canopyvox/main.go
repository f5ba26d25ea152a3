// Command canopyvox is the binary every director, reader, and worker
// rank runs (spec §2, §6): a single positional JSON configuration file
// determines its rank and, through the process directory, its role.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mattj23/canopy-vox/internal/config"
	"github.com/mattj23/canopy-vox/internal/directory"
	"github.com/mattj23/canopy-vox/internal/pipeline"
	"github.com/mattj23/canopy-vox/internal/transport"
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
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	dir, err := directory.New(cfg.WorldSize(), len(cfg.InputFiles))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	role := dir.RoleOf(cfg.Rank)

	// Non-director peers delay briefly so the director's banner prints
	// first. Cosmetic only, per spec §5's startup race note.
	if role != directory.RoleDirector {
		time.Sleep(2 * time.Second)
	}

	bus, err := transport.NewBus(cfg.Rank, cfg.Peers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "canopyvox: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	if err := run(cfg, dir, bus, role); err != nil {
		fmt.Fprintf(os.Stderr, "canopyvox: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Configuration, dir directory.Directory, bus *transport.Bus, role directory.Role) error {
	switch role {
	case directory.RoleDirector:
		fmt.Printf("=== canopy-vox director: %d readers, %d workers ===\n", dir.NumReaders(), dir.NumWorkers())
		return pipeline.NewDirector(cfg, dir, bus).Run()

	case directory.RoleReader:
		readerNumber := dir.ReaderNumber(cfg.Rank)
		r := pipeline.NewReader(cfg, dir, bus, readerNumber)
		if err := r.RunPhase1(); err != nil {
			return fmt.Errorf("reader %d: phase 1: %w", readerNumber, err)
		}
		if err := r.WaitForStart(); err != nil {
			return fmt.Errorf("reader %d: waiting for phase 2: %w", readerNumber, err)
		}
		if err := r.RunPhase2(); err != nil {
			return fmt.Errorf("reader %d: phase 2: %w", readerNumber, err)
		}
		return nil

	case directory.RoleWorker:
		workerNumber := dir.WorkerNumber(cfg.Rank)
		w := pipeline.NewWorker(cfg, dir, bus, workerNumber)
		if err := w.RunPhase1(); err != nil {
			return fmt.Errorf("worker %d: phase 1: %w", workerNumber, err)
		}
		if err := w.RunPhase2(); err != nil {
			return fmt.Errorf("worker %d: phase 2: %w", workerNumber, err)
		}
		return nil

	default:
		return fmt.Errorf("unknown role for rank %d", cfg.Rank)
	}
}
