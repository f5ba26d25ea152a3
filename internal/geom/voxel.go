package geom

import (
	"fmt"
	"math"
)

// VoxelAddress is the (i, j, k) index of a voxel in a discretized grid.
// Equality and Hash are purely component-wise and must produce identical
// bit patterns on every peer — worker routing depends on it.
type VoxelAddress struct {
	I, J, K int32
}

// String renders a VoxelAddress as "i,j,k", the prefix of a sparsevox line.
func (a VoxelAddress) String() string {
	return fmt.Sprintf("%d,%d,%d", a.I, a.J, a.K)
}

// Hash matches the reference hash function exactly:
//
//	h = i
//	h = h*37 + j
//	h = h*37 + k
//
// evaluated in unsigned machine-word arithmetic. Any peer computing this
// for the same address must get the same value, since it determines which
// worker a point is routed to.
func (a VoxelAddress) Hash() uint64 {
	h := uint64(uint32(a.I))
	h = h*37 + uint64(uint32(a.J))
	h = h*37 + uint64(uint32(a.K))
	return h
}

// LocatedPoint pairs a point with the voxel address a VoxelSorter assigned it.
type LocatedPoint struct {
	Location Vector3d
	Address  VoxelAddress
}

// VoxelSorter maps points to voxel addresses given a grid spacing and origin.
// A fresh VoxelSorter is constructed per phase rather than mutated in place.
type VoxelSorter struct {
	dx, dy, dz float64
	x0, y0, z0 float64
}

// NewVoxelSorter builds a sorter for the grid with spacing (dx,dy,dz) and
// origin (x0,y0,z0). All spacings must be strictly positive.
func NewVoxelSorter(dx, dy, dz, x0, y0, z0 float64) VoxelSorter {
	return VoxelSorter{dx: dx, dy: dy, dz: dz, x0: x0, y0: y0, z0: z0}
}

// Identify computes the voxel address of a point. A point exactly on a bin
// face belongs to the higher-indexed bin on that axis, because floor at an
// exact multiple returns that multiple.
func (s VoxelSorter) Identify(p Vector3d) VoxelAddress {
	return VoxelAddress{
		I: int32(math.Floor((p.X - s.x0) / s.dx)),
		J: int32(math.Floor((p.Y - s.y0) / s.dy)),
		K: int32(math.Floor((p.Z - s.z0) / s.dz)),
	}
}

// IdentifyPoint returns both the point and its address, as a LocatedPoint.
func (s VoxelSorter) IdentifyPoint(p Vector3d) LocatedPoint {
	return LocatedPoint{Location: p, Address: s.Identify(p)}
}

// CoarseGridSpacing computes dv = voxelDistance * m, where m is the smallest
// positive integer such that voxelDistance*m >= binningDistance. This is the
// spacing of the worker-side region grid used for thinning (§4.7).
func CoarseGridSpacing(voxelDistance, binningDistance float64) float64 {
	m := 1
	for voxelDistance*float64(m) < binningDistance {
		m++
	}
	return voxelDistance * float64(m)
}

// NewShiftedSorter builds the phase-1 coarse region sorter, whose origin is
// offset by half a cell along every axis.
func NewShiftedSorter(voxelDistance, binningDistance float64) VoxelSorter {
	dv := CoarseGridSpacing(voxelDistance, binningDistance)
	half := dv / 2.0
	return NewVoxelSorter(dv, dv, dv, half, half, half)
}

// NewUnshiftedSorter builds the phase-2 coarse region sorter, with origin at zero.
func NewUnshiftedSorter(voxelDistance, binningDistance float64) VoxelSorter {
	dv := CoarseGridSpacing(voxelDistance, binningDistance)
	return NewVoxelSorter(dv, dv, dv, 0, 0, 0)
}

// NewFineSorter builds the final voxel-intensity grid sorter.
func NewFineSorter(voxelDistance float64) VoxelSorter {
	return NewVoxelSorter(voxelDistance, voxelDistance, voxelDistance, 0, 0, 0)
}
