// Package spatial implements the 3-D kd-tree the pipeline uses for radius
// and nearest-neighbor queries during thinning. It is adapted from the
// teacher repository's 2-D clustering kd-tree (KDNode/KDTree in
// cluster/cluster.go): the node layout (point index plus left/right child
// indices into a flat slice, split axis cycling with depth) carries over,
// generalized from two axes to three. Unlike the teacher's tree, which
// built a KDTree but then queried neighbors with a brute-force O(n^2) scan
// in clusterPoints, this one actually walks the tree for both query kinds.
package spatial

import (
	"math"
	"sort"

	"github.com/mattj23/canopy-vox/internal/geom"
)

const noChild = int32(-1)

type node struct {
	idx   int32 // index into Tree.Points
	left  int32
	right int32
	axis  uint8
}

// Tree is a balanced, immutable-after-build 3-D kd-tree over a point set.
type Tree struct {
	Points []geom.Vector3d
	nodes  []node
}

// Build constructs a balanced kd-tree over points. The input slice is not
// modified; Tree.Points holds point values in their original order, and
// tree node indices reference positions within it.
func Build(points []geom.Vector3d) *Tree {
	t := &Tree{Points: points}
	if len(points) == 0 {
		return t
	}

	order := make([]int32, len(points))
	for i := range order {
		order[i] = int32(i)
	}

	t.nodes = make([]node, 0, len(points))
	t.build(order, 0)
	return t
}

// build partitions idxs around the median along the depth's axis and
// returns the index of the subtree root it created, or noChild for an
// empty slice. Node fields are written by index after both children are
// built, rather than through a pointer held across the recursive calls,
// since appending to t.nodes during recursion can reallocate the backing
// array and strand an earlier pointer.
func (t *Tree) build(idxs []int32, depth int) int32 {
	if len(idxs) == 0 {
		return noChild
	}

	axis := depth % 3
	points := t.Points
	sort.Slice(idxs, func(a, b int) bool {
		return points[idxs[a]].Axis(axis) < points[idxs[b]].Axis(axis)
	})

	mid := len(idxs) / 2
	nodeIdx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{idx: idxs[mid], axis: uint8(axis)})

	left := t.build(idxs[:mid], depth+1)
	right := t.build(idxs[mid+1:], depth+1)
	t.nodes[nodeIdx].left = left
	t.nodes[nodeIdx].right = right

	return nodeIdx
}

// RadiusSearch appends to out the indices (into Tree.Points) of every point
// within radiusSq (squared distance) of query, in no particular order. The
// query point's own index, if it is itself a member of the tree, is
// included when it falls within radius — callers that need to exclude the
// query index themselves (as the thinning loop does) must filter it out.
func (t *Tree) RadiusSearch(query geom.Vector3d, radiusSq float64, out []int32) []int32 {
	if len(t.nodes) == 0 {
		return out
	}
	return t.radiusSearch(0, query, radiusSq, out)
}

func (t *Tree) radiusSearch(nodeIdx int32, query geom.Vector3d, radiusSq float64, out []int32) []int32 {
	if nodeIdx == noChild {
		return out
	}
	n := t.nodes[nodeIdx]
	p := t.Points[n.idx]

	if p.DistanceSquared(query) <= radiusSq {
		out = append(out, n.idx)
	}

	diff := query.Axis(int(n.axis)) - p.Axis(int(n.axis))
	near, far := n.left, n.right
	if diff >= 0 {
		near, far = n.right, n.left
	}

	out = t.radiusSearch(near, query, radiusSq, out)
	if diff*diff <= radiusSq {
		out = t.radiusSearch(far, query, radiusSq, out)
	}
	return out
}

// NearestNeighbor returns the index of, and squared distance to, the
// closest point to query other than excludeIdx (pass -1 to consider every
// point). found is false only when the tree is empty or every point is
// excluded.
func (t *Tree) NearestNeighbor(query geom.Vector3d, excludeIdx int32) (idx int32, distSq float64, found bool) {
	if len(t.nodes) == 0 {
		return -1, 0, false
	}
	best := int32(-1)
	bestDist := math.Inf(1)
	t.nearest(0, query, excludeIdx, &best, &bestDist)
	if best < 0 {
		return -1, 0, false
	}
	return best, bestDist, true
}

func (t *Tree) nearest(nodeIdx int32, query geom.Vector3d, excludeIdx int32, best *int32, bestDist *float64) {
	if nodeIdx == noChild {
		return
	}
	n := t.nodes[nodeIdx]
	p := t.Points[n.idx]

	if n.idx != excludeIdx {
		if d := p.DistanceSquared(query); d < *bestDist {
			*bestDist = d
			*best = n.idx
		}
	}

	diff := query.Axis(int(n.axis)) - p.Axis(int(n.axis))
	near, far := n.left, n.right
	if diff >= 0 {
		near, far = n.right, n.left
	}

	t.nearest(near, query, excludeIdx, best, bestDist)
	if diff*diff < *bestDist {
		t.nearest(far, query, excludeIdx, best, bestDist)
	}
}
