package geom

import "testing"

func TestIdentifySimple(t *testing.T) {
	sorter := NewVoxelSorter(1, 2, 3, 0, 0, 0)

	cases := []struct {
		p    Vector3d
		want VoxelAddress
	}{
		{Vector3d{0, 0, 0}, VoxelAddress{0, 0, 0}},
		{Vector3d{0.5, 1.5, 2.5}, VoxelAddress{0, 0, 0}},
		{Vector3d{1.5, 2.5, 3.5}, VoxelAddress{1, 1, 1}},
	}

	for _, c := range cases {
		got := sorter.Identify(c.p)
		if got != c.want {
			t.Errorf("Identify(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestIdentifyShiftedNegative(t *testing.T) {
	sorter := NewVoxelSorter(1, 1, 1, 0.5, -1.5, -2.0)

	cases := []struct {
		p    Vector3d
		want VoxelAddress
	}{
		{Vector3d{0, 0, 0}, VoxelAddress{-1, 1, 2}},
		{Vector3d{-3.2, 4.1, -4.2}, VoxelAddress{-4, 5, -3}},
	}

	for _, c := range cases {
		got := sorter.Identify(c.p)
		if got != c.want {
			t.Errorf("Identify(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}

// A point exactly on a bin face belongs to the higher-indexed bin.
func TestIdentifyBoundary(t *testing.T) {
	sorter := NewVoxelSorter(2, 2, 2, 0, 0, 0)
	got := sorter.Identify(Vector3d{4, 0, 0})
	want := VoxelAddress{2, 0, 0}
	if got != want {
		t.Errorf("boundary Identify = %v, want %v", got, want)
	}
}

func TestHashDeterminism(t *testing.T) {
	a := VoxelAddress{1, 2, 3}
	b := VoxelAddress{1, 2, 3}
	if a.Hash() != b.Hash() {
		t.Fatalf("equal addresses hashed differently")
	}

	variants := []VoxelAddress{
		{2, 2, 3},
		{1, 3, 3},
		{1, 2, 4},
	}
	for _, v := range variants {
		if v.Hash() == a.Hash() {
			t.Errorf("changing one component of %v did not change the hash", v)
		}
	}
}

func TestIntensityIncrement(t *testing.T) {
	sorter := NewVoxelSorter(1, 1, 1, 0, 0, 0)
	points := []Vector3d{
		{0, 0, 0}, {1, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 1, 0}, {0, 1, 0},
	}

	counts := make(map[VoxelAddress]int)
	for _, p := range points {
		counts[sorter.Identify(p)]++
	}

	want := map[VoxelAddress]int{
		{0, 0, 0}: 1,
		{1, 0, 0}: 2,
		{0, 1, 0}: 3,
	}
	for addr, n := range want {
		if counts[addr] != n {
			t.Errorf("counts[%v] = %d, want %d", addr, counts[addr], n)
		}
	}
}

func TestCoarseGridSpacing(t *testing.T) {
	cases := []struct {
		voxel, binning, want float64
	}{
		{1, 1, 1},
		{0.5, 1, 1},
		{0.3, 1, 1.2},
	}
	for _, c := range cases {
		got := CoarseGridSpacing(c.voxel, c.binning)
		if got != c.want {
			t.Errorf("CoarseGridSpacing(%v,%v) = %v, want %v", c.voxel, c.binning, got, c.want)
		}
	}
}
