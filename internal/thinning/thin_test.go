package thinning

import (
	"testing"

	"github.com/mattj23/canopy-vox/internal/geom"
)

func scenarioPoints() []geom.Vector3d {
	return []geom.Vector3d{
		{0, 0, 0},
		{1.5, 0, 0},
		{0, 1.5, 0},
		{0, 0, 1.5},
		{-10, 0, 0},
		{0, 10, 0},
		{0, 0, 10},
		{2, 0, 0},
		{0, 2, 0},
		{0, 0, 2},
	}
}

func TestClosestPairDistanceScenario(t *testing.T) {
	d, ok := ClosestPairDistance(scenarioPoints())
	if !ok {
		t.Fatal("expected a closest pair distance")
	}
	if d < 1.49 || d > 1.51 {
		t.Errorf("closest pair distance = %v, want ~1.5", d)
	}
}

func TestThinSubsumption(t *testing.T) {
	survivors := Thin(scenarioPoints(), 1.51)

	want := map[geom.Vector3d]bool{
		{0, 0, 0}:   true,
		{-10, 0, 0}: true,
		{0, 10, 0}:  true,
		{0, 0, 10}:  true,
		{2, 0, 0}:   true,
		{0, 2, 0}:   true,
		{0, 0, 2}:   true,
	}

	if len(survivors) != len(want) {
		t.Fatalf("got %d survivors, want %d: %v", len(survivors), len(want), survivors)
	}
	for _, s := range survivors {
		if !want[s] {
			t.Errorf("unexpected survivor %v", s)
		}
	}
}

func TestThinPreservesOrder(t *testing.T) {
	points := []geom.Vector3d{{0, 0, 0}, {100, 0, 0}, {200, 0, 0}, {300, 0, 0}}
	survivors := Thin(points, 0.1)
	if len(survivors) != len(points) {
		t.Fatalf("expected no removals at tiny tolerance, got %v", survivors)
	}
	for i, p := range points {
		if survivors[i] != p {
			t.Errorf("order not preserved: survivors[%d] = %v, want %v", i, survivors[i], p)
		}
	}
}

func TestThinAtClosestPairToleranceRemovesNothing(t *testing.T) {
	points := scenarioPoints()
	tau, ok := ClosestPairDistance(points)
	if !ok {
		t.Fatal("expected a closest pair distance")
	}
	survivors := Thin(points, tau)
	if len(survivors) != len(points) {
		t.Errorf("thinning at exactly the closest-pair distance should remove nothing, got %d of %d", len(survivors), len(points))
	}
}

func TestThinEmpty(t *testing.T) {
	if got := Thin(nil, 1); got != nil {
		t.Errorf("Thin(nil) = %v, want nil", got)
	}
}
