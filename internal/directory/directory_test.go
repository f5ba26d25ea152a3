package directory

import "testing"

func TestRoleAssignment(t *testing.T) {
	// world size 9, many input files: readers = floor(9/4) = 2, workers = 9-1-2 = 6
	d, err := New(9, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.NumReaders() != 2 {
		t.Errorf("NumReaders() = %d, want 2", d.NumReaders())
	}
	if d.NumWorkers() != 6 {
		t.Errorf("NumWorkers() = %d, want 6", d.NumWorkers())
	}
	if d.RoleOf(0) != RoleDirector {
		t.Errorf("rank 0 should be director")
	}
	if d.RoleOf(1) != RoleReader || d.RoleOf(2) != RoleReader {
		t.Errorf("ranks 1-2 should be readers")
	}
	for rank := 3; rank < 9; rank++ {
		if d.RoleOf(rank) != RoleWorker {
			t.Errorf("rank %d should be worker", rank)
		}
	}
}

func TestReaderCountClampedByInputFiles(t *testing.T) {
	// world size 40 would give 10 readers, but only 3 input files exist.
	d, err := New(40, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.NumReaders() != 3 {
		t.Errorf("NumReaders() = %d, want 3 (clamped by input file count)", d.NumReaders())
	}
}

func TestReaderCountFloorAtLeastOne(t *testing.T) {
	// world size 3 would give floor(3/4) = 0 readers, clamped up to 1;
	// that still leaves one worker rank (3-1-1 = 1).
	d, err := New(3, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.NumReaders() != 1 {
		t.Errorf("NumReaders() = %d, want 1", d.NumReaders())
	}
	if d.NumWorkers() != 1 {
		t.Errorf("NumWorkers() = %d, want 1", d.NumWorkers())
	}
}

func TestNoWorkersIsConfigurationError(t *testing.T) {
	_, err := New(2, 100)
	if err == nil {
		t.Fatalf("expected a configuration error when no worker ranks remain")
	}
}

func TestRankRoundTrip(t *testing.T) {
	d, err := New(9, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for r := 0; r < d.NumReaders(); r++ {
		rank := d.ReaderRank(r)
		if got := d.ReaderNumber(rank); got != r {
			t.Errorf("ReaderNumber(ReaderRank(%d)) = %d, want %d", r, got, r)
		}
	}
	for w := 0; w < d.NumWorkers(); w++ {
		rank := d.WorkerRank(w)
		if got := d.WorkerNumber(rank); got != w {
			t.Errorf("WorkerNumber(WorkerRank(%d)) = %d, want %d", w, got, w)
		}
	}
}
