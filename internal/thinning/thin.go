// Package thinning implements the radius-based point thinning contract of
// canopy-vox: a point initiates at most one radius query, and every
// neighbor that query returns is marked removed, even if that neighbor was
// itself queried earlier. Order-dependent by design — see Thin.
package thinning

import (
	"math"

	"github.com/mattj23/canopy-vox/internal/geom"
	"github.com/mattj23/canopy-vox/internal/spatial"
)

// Thin removes near-duplicate points from points so that surviving points
// are pairwise at least tolerance apart (to the extent the kd-tree radius
// query finds every true neighbor). The result is a subsequence of points
// in their original order: P' = Thin(P, tau) satisfies, for any two
// survivors a != b, ||a-b|| >= tau, and every removed point has some
// survivor within tau.
//
// Algorithm (order matters, and must be reproduced exactly):
//  1. Build a kd-tree over the input points.
//  2. Walk points in input order. Skip any index already marked removed.
//  3. Otherwise, run a radius query at radius tau^2 (squared distance).
//     Every returned index other than the query point itself is marked
//     removed — regardless of whether it was already removed, or was
//     itself a prior query center. A point removed by query i is still
//     present in the tree and can still be returned by later queries, but
//     it never initiates a query of its own.
//  4. The result is points restricted to the indices never marked removed,
//     preserving input order.
func Thin(points []geom.Vector3d, tolerance float64) []geom.Vector3d {
	if len(points) == 0 {
		return nil
	}

	tree := spatial.Build(points)
	removed := make([]bool, len(points))
	radiusSq := tolerance * tolerance

	var neighbors []int32
	for i, p := range points {
		if removed[i] {
			continue
		}
		neighbors = tree.RadiusSearch(p, radiusSq, neighbors[:0])
		for _, j := range neighbors {
			// Strict less-than: a point exactly tolerance away is not a
			// duplicate. This matters at the boundary where tolerance is
			// itself the closest-pair distance, which must remove nothing.
			if int(j) != i && points[j].DistanceSquared(p) < radiusSq {
				removed[j] = true
			}
		}
	}

	survivors := make([]geom.Vector3d, 0, len(points))
	for i, p := range points {
		if !removed[i] {
			survivors = append(survivors, p)
		}
	}
	return survivors
}

// ClosestPairDistance returns the minimum pairwise distance among points.
// It is the offline tool used to pick a thinning_distance (see
// cmd/closestpointcheck): ok is false when fewer than two points are given.
func ClosestPairDistance(points []geom.Vector3d) (distance float64, ok bool) {
	if len(points) < 2 {
		return 0, false
	}

	tree := spatial.Build(points)
	best := -1.0
	for i, p := range points {
		_, distSq, found := tree.NearestNeighbor(p, int32(i))
		if !found {
			continue
		}
		if best < 0 || distSq < best {
			best = distSq
		}
	}
	if best < 0 {
		return 0, false
	}
	return math.Sqrt(best), true
}
