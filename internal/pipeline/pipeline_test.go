package pipeline

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mattj23/canopy-vox/internal/config"
	"github.com/mattj23/canopy-vox/internal/directory"
	"github.com/mattj23/canopy-vox/internal/ioformat"
	"github.com/mattj23/canopy-vox/internal/transport"
)

// TestEndToEndSmallRun reproduces spec §8 scenario 6: one reader, two
// workers, two input points that hash to different workers under the
// phase-1 shifted grid, and a merged output with one voxel per point.
func TestEndToEndSmallRun(t *testing.T) {
	scratchDir := t.TempDir()
	workDir := t.TempDir()

	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(workDir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	defer os.Chdir(origWD)

	inputPath := filepath.Join(scratchDir, "input.xyz")
	body := "0.5 0.5 0.5\n11.5 10.5 10.5\n"
	if err := os.WriteFile(inputPath, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write input fixture: %v", err)
	}

	peers := []string{
		"127.0.0.1:19501",
		"127.0.0.1:19502",
		"127.0.0.1:19503",
		"127.0.0.1:19504",
	}

	dir, err := directory.New(len(peers), 1)
	if err != nil {
		t.Fatalf("directory.New failed: %v", err)
	}
	if dir.NumReaders() != 1 || dir.NumWorkers() != 2 {
		t.Fatalf("unexpected role split: readers=%d workers=%d", dir.NumReaders(), dir.NumWorkers())
	}

	baseCfg := config.Configuration{
		InputFiles:       []string{inputPath},
		ScratchDirectory: scratchDir,
		VoxelDistance:    1,
		BinningDistance:  1,
		ThinningDistance: 0.1,
		Peers:            peers,
	}

	buses := make([]*transport.Bus, len(peers))
	for rank := range peers {
		cfg := baseCfg
		cfg.Rank = rank
		bus, err := transport.NewBus(rank, peers)
		if err != nil {
			t.Fatalf("NewBus(%d) failed: %v", rank, err)
		}
		buses[rank] = bus
		defer bus.Close()
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)

	// Director (rank 0)
	wg.Add(1)
	go func() {
		defer wg.Done()
		directorCfg := baseCfg
		directorCfg.Rank = 0
		d := NewDirector(directorCfg, dir, buses[0])
		if err := d.Run(); err != nil {
			errs <- err
		}
	}()

	// Reader (rank 1, reader-number 0)
	wg.Add(1)
	go func() {
		defer wg.Done()
		readerCfg := baseCfg
		readerCfg.Rank = dir.ReaderRank(0)
		r := NewReader(readerCfg, dir, buses[dir.ReaderRank(0)], 0)
		if err := r.RunPhase1(); err != nil {
			errs <- err
			return
		}
		if err := r.WaitForStart(); err != nil {
			errs <- err
			return
		}
		if err := r.RunPhase2(); err != nil {
			errs <- err
		}
	}()

	// Workers (ranks 2,3, worker-numbers 0,1)
	for wNum := 0; wNum < dir.NumWorkers(); wNum++ {
		wNum := wNum
		wg.Add(1)
		go func() {
			defer wg.Done()
			rank := dir.WorkerRank(wNum)
			workerCfg := baseCfg
			workerCfg.Rank = rank
			w := NewWorker(workerCfg, dir, buses[rank], wNum)
			if err := w.RunPhase1(); err != nil {
				errs <- err
				return
			}
			if err := w.RunPhase2(); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("pipeline error: %v", err)
	}

	got, err := ioformat.ReadSparseVox(CombinedResultsFile)
	if err != nil {
		t.Fatalf("failed to read merged output: %v", err)
	}

	want := map[string]int{
		"0,0,0":    1,
		"11,10,10": 1,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d voxels, want %d: %v", len(got), len(want), got)
	}
	for addr, count := range got {
		key := addr.String()
		wantCount, ok := want[key]
		if !ok {
			t.Errorf("unexpected voxel %s in merged output", key)
			continue
		}
		if count != wantCount {
			t.Errorf("voxel %s count = %d, want %d", key, count, wantCount)
		}
	}
}
