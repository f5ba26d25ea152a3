// Package snapshot implements the debug_snapshot expansion (SPEC_FULL.md
// §4.10): a compressed, postmortem-only dump of a worker's region map.
// Layering (bufio + zstd + a length-prefixed encoding) mirrors the
// teacher's SaveCompressed/LoadCompressedSupercluster in
// cluster/storage.go, applied to voxel regions instead of cluster trees.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/mattj23/canopy-vox/internal/geom"
)

// Region is one gob-encodable entry of a worker's region map.
type Region struct {
	Address geom.VoxelAddress
	Points  []geom.Vector3d
}

// Save writes regions, keyed by their VoxelAddress, to path as gob
// records compressed with zstd's best-compression level. Snapshot writes
// are a debug aid: callers should log and continue on error rather than
// treat it as fatal (spec §7 expansion).
func Save(path string, regions map[geom.VoxelAddress][]geom.Vector3d) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: failed to create file: %w", err)
	}
	defer file.Close()

	bufWriter := bufio.NewWriterSize(file, 1024*1024)
	enc, err := zstd.NewWriter(bufWriter, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("snapshot: failed to create zstd writer: %w", err)
	}

	gobEnc := gob.NewEncoder(enc)
	if err := gobEnc.Encode(int32(len(regions))); err != nil {
		return fmt.Errorf("snapshot: failed to encode region count: %w", err)
	}
	for addr, points := range regions {
		if err := gobEnc.Encode(Region{Address: addr, Points: points}); err != nil {
			return fmt.Errorf("snapshot: failed to encode region %v: %w", addr, err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("snapshot: failed to close zstd encoder: %w", err)
	}
	if err := bufWriter.Flush(); err != nil {
		return fmt.Errorf("snapshot: failed to flush buffer: %w", err)
	}
	return nil
}

// Load reads back a snapshot written by Save.
func Load(path string) (map[geom.VoxelAddress][]geom.Vector3d, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: failed to open file: %w", err)
	}
	defer file.Close()

	dec, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("snapshot: failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	gobDec := gob.NewDecoder(dec)
	var count int32
	if err := gobDec.Decode(&count); err != nil {
		return nil, fmt.Errorf("snapshot: failed to decode region count: %w", err)
	}

	regions := make(map[geom.VoxelAddress][]geom.Vector3d, count)
	for i := int32(0); i < count; i++ {
		var r Region
		if err := gobDec.Decode(&r); err != nil {
			return nil, fmt.Errorf("snapshot: failed to decode region %d: %w", i, err)
		}
		regions[r.Address] = r.Points
	}
	return regions, nil
}
