package ioformat

import (
	"fmt"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/mattj23/canopy-vox/internal/geom"
)

// scratchRecordSize is the width of one (x,y,z) little-endian float64
// triple in the binary scratch format (spec §4.8).
const scratchRecordSize = 24

// WriteScratch writes points to path as the header-less binary format of
// spec §4.8, memory-mapping the destination file the way the teacher's
// MMapWriter does for its own binary format (cluster/mmap.go).
func WriteScratch(path string, points []geom.Vector3d) error {
	size := int64(len(points)) * scratchRecordSize
	if size == 0 {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("ioformat: fatal I/O error creating %q: %w", path, err)
		}
		return f.Close()
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("ioformat: fatal I/O error creating %q: %w", path, err)
	}
	defer f.Close()

	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("ioformat: fatal I/O error sizing %q: %w", path, err)
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("ioformat: fatal I/O error mapping %q: %w", path, err)
	}
	defer data.Unmap()

	offset := 0
	for _, p := range points {
		putFloat64(data, offset, p.X)
		putFloat64(data, offset+8, p.Y)
		putFloat64(data, offset+16, p.Z)
		offset += scratchRecordSize
	}

	return data.Flush()
}

// ReadScratch reads back the triples WriteScratch produced. A file whose
// size is not a multiple of 24 bytes is a Protocol error (spec §7).
func ReadScratch(path string) ([]geom.Vector3d, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ioformat: per-file I/O error: cannot open %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("ioformat: cannot stat %q: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, nil
	}
	if info.Size()%scratchRecordSize != 0 {
		return nil, fmt.Errorf("ioformat: protocol error: %q size %d is not a multiple of %d", path, info.Size(), scratchRecordSize)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("ioformat: fatal I/O error mapping %q: %w", path, err)
	}
	defer data.Unmap()

	n := int(info.Size() / scratchRecordSize)
	points := make([]geom.Vector3d, n)
	offset := 0
	for i := 0; i < n; i++ {
		points[i] = geom.Vector3d{
			X: getFloat64(data, offset),
			Y: getFloat64(data, offset+8),
			Z: getFloat64(data, offset+16),
		}
		offset += scratchRecordSize
	}
	return points, nil
}

func putFloat64(data mmap.MMap, offset int, v float64) {
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		data[offset+i] = byte(bits >> (8 * uint(i)))
	}
}

func getFloat64(data mmap.MMap, offset int) float64 {
	var bits uint64
	for i := 0; i < 8; i++ {
		bits |= uint64(data[offset+i]) << (8 * uint(i))
	}
	return math.Float64frombits(bits)
}
