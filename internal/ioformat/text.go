// Package ioformat implements canopy-vox's on-disk formats: the
// whitespace-delimited input point files (spec §6), the header-less binary
// scratch format (spec §4.8), and the sparsevox text output (spec §4.9).
package ioformat

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattj23/canopy-vox/internal/geom"
)

// ReadTextPoints streams points from a whitespace-delimited text file,
// calling fn once per parsed point. Lines with fewer than three tokens or
// unparsable numeric tokens are silently skipped (spec §6, §7). The file
// is read line-by-line rather than loaded into memory, per the streaming
// requirement of spec §9.
func ReadTextPoints(path string, fn func(geom.Vector3d) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ioformat: per-file I/O error: cannot open %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Points files can be large; grow the scanner's buffer past the
	// default 64KiB line limit rather than fail on a long line.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		x, errX := strconv.ParseFloat(fields[0], 64)
		y, errY := strconv.ParseFloat(fields[1], 64)
		z, errZ := strconv.ParseFloat(fields[2], 64)
		if errX != nil || errY != nil || errZ != nil {
			continue
		}
		if err := fn(geom.Vector3d{X: x, Y: y, Z: z}); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ioformat: error reading %q: %w", path, err)
	}
	return nil
}

// WriteSparseVox writes the final per-worker voxel file of spec §4.9: one
// "i,j,k,count" line per entry. Line order matches map iteration order,
// which spec §4.9 says is unspecified.
func WriteSparseVox(path string, counts map[geom.VoxelAddress]int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ioformat: fatal I/O error creating %q: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for addr, count := range counts {
		if _, err := fmt.Fprintf(w, "%d,%d,%d,%d\n", addr.I, addr.J, addr.K, count); err != nil {
			return fmt.Errorf("ioformat: fatal I/O error writing %q: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("ioformat: fatal I/O error flushing %q: %w", path, err)
	}
	return nil
}

// ReadSparseVox parses a sparsevox file (either a per-worker final file or
// the merged combined_results.sparsevox) into a voxel->count map.
func ReadSparseVox(path string) (map[geom.VoxelAddress]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ioformat: cannot open %q: %w", path, err)
	}
	defer f.Close()

	counts := make(map[geom.VoxelAddress]int)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), ",")
		if len(parts) != 4 {
			continue
		}
		i, errI := strconv.ParseInt(parts[0], 10, 32)
		j, errJ := strconv.ParseInt(parts[1], 10, 32)
		k, errK := strconv.ParseInt(parts[2], 10, 32)
		count, errC := strconv.Atoi(parts[3])
		if errI != nil || errJ != nil || errK != nil || errC != nil {
			continue
		}
		counts[geom.VoxelAddress{I: int32(i), J: int32(j), K: int32(k)}] += count
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ioformat: error reading %q: %w", path, err)
	}
	return counts, nil
}

// MergeSparseVox concatenates paths, in order, into outPath (spec §4.9's
// combined_results.sparsevox), then removes each source file. Any I/O
// failure during merge is fatal, per spec §4.3.
func MergeSparseVox(paths []string, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("ioformat: fatal I/O error creating %q: %w", outPath, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	for _, p := range paths {
		if err := appendFile(w, p); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("ioformat: fatal I/O error flushing %q: %w", outPath, err)
	}

	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("ioformat: fatal I/O error removing %q: %w", p, err)
		}
	}
	return nil
}

func appendFile(w *bufio.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ioformat: fatal I/O error opening %q for merge: %w", path, err)
	}
	defer f.Close()

	if _, err := w.ReadFrom(f); err != nil {
		return fmt.Errorf("ioformat: fatal I/O error merging %q: %w", path, err)
	}
	return nil
}
