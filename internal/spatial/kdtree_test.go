package spatial

import (
	"math/rand"
	"testing"

	"github.com/mattj23/canopy-vox/internal/geom"
)

func TestRadiusSearchFindsSelfAndNeighbors(t *testing.T) {
	points := []geom.Vector3d{
		{0, 0, 0},
		{1.5, 0, 0},
		{0, 1.5, 0},
		{0, 0, 1.5},
		{-10, 0, 0},
		{0, 10, 0},
		{0, 0, 10},
	}
	tree := Build(points)

	radius := 1.51
	got := tree.RadiusSearch(points[0], radius*radius, nil)

	found := make(map[int32]bool)
	for _, idx := range got {
		found[idx] = true
	}
	for _, want := range []int32{0, 1, 2, 3} {
		if !found[want] {
			t.Errorf("expected index %d within radius of origin, got %v", want, got)
		}
	}
	for _, unwanted := range []int32{4, 5, 6} {
		if found[unwanted] {
			t.Errorf("index %d should not be within radius of origin", unwanted)
		}
	}
}

func TestRadiusSearchEmptyTree(t *testing.T) {
	tree := Build(nil)
	got := tree.RadiusSearch(geom.Vector3d{}, 10, nil)
	if len(got) != 0 {
		t.Errorf("expected no results from an empty tree, got %v", got)
	}
}

func TestNearestNeighborMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	points := make([]geom.Vector3d, 200)
	for i := range points {
		points[i] = geom.Vector3d{X: r.Float64() * 100, Y: r.Float64() * 100, Z: r.Float64() * 100}
	}
	tree := Build(points)

	for i, p := range points {
		gotIdx, gotDist, found := tree.NearestNeighbor(p, int32(i))
		if !found {
			t.Fatalf("expected a nearest neighbor for point %d", i)
		}

		bestIdx := -1
		bestDist := -1.0
		for j, q := range points {
			if j == i {
				continue
			}
			d := p.DistanceSquared(q)
			if bestIdx == -1 || d < bestDist {
				bestIdx = j
				bestDist = d
			}
		}

		if gotDist != bestDist {
			t.Errorf("point %d: tree nearest dist %v, brute force %v (tree idx %d, brute idx %d)",
				i, gotDist, bestDist, gotIdx, bestIdx)
		}
	}
}
