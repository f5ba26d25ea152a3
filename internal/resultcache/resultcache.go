// Package resultcache is the run-id -> voxel-set cache behind
// cmd/canopyvoxapi (SPEC_FULL.md §4.11), adapted from the teacher's
// ClusterRunner (runner/runner.go): a bounded, LRU-evicted map of loaded
// results, guarded by a single RWMutex, with an inactivity sweep goroutine.
package resultcache

import (
	"fmt"
	"sync"
	"time"

	"github.com/mattj23/canopy-vox/internal/geom"
	"github.com/mattj23/canopy-vox/internal/ioformat"
)

// Run is one loaded .sparsevox result, indexed by voxel address.
type Run struct {
	Voxels map[geom.VoxelAddress]int
}

// Cache is an LRU-bounded map of run id -> loaded Run.
type Cache struct {
	mu           sync.RWMutex
	runs         map[string]*Run
	lastAccessed map[string]time.Time
	maxRuns      int
	inactiveTTL  time.Duration

	stop chan struct{}
}

// New returns a Cache holding at most maxRuns entries, evicting the least
// recently used one on overflow, and sweeping runs untouched for
// inactiveTTL every sweepInterval.
func New(maxRuns int, inactiveTTL, sweepInterval time.Duration) *Cache {
	c := &Cache{
		runs:         make(map[string]*Run),
		lastAccessed: make(map[string]time.Time),
		maxRuns:      maxRuns,
		inactiveTTL:  inactiveTTL,
		stop:         make(chan struct{}),
	}
	go c.sweepLoop(sweepInterval)
	return c
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var stale []string
	for id, last := range c.lastAccessed {
		if now.Sub(last) > c.inactiveTTL {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(c.runs, id)
		delete(c.lastAccessed, id)
	}
}

// Close stops the sweep goroutine.
func (c *Cache) Close() {
	close(c.stop)
}

// Load reads a .sparsevox file from path and caches it under id, evicting
// the least recently used run first if the cache is already full.
func (c *Cache) Load(id, path string) (*Run, error) {
	voxels, err := ioformat.ReadSparseVox(path)
	if err != nil {
		return nil, fmt.Errorf("resultcache: failed to load %q: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.runs[id]; !exists && len(c.runs) >= c.maxRuns {
		c.evictOldestLocked()
	}

	run := &Run{Voxels: voxels}
	c.runs[id] = run
	c.lastAccessed[id] = time.Now()
	return run, nil
}

func (c *Cache) evictOldestLocked() {
	var oldestID string
	var oldestTime time.Time
	first := true
	for id, t := range c.lastAccessed {
		if first || t.Before(oldestTime) {
			oldestID, oldestTime = id, t
			first = false
		}
	}
	if oldestID != "" {
		delete(c.runs, oldestID)
		delete(c.lastAccessed, oldestID)
	}
}

// Get returns the cached run for id, touching its access time.
func (c *Cache) Get(id string) (*Run, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	run, ok := c.runs[id]
	if ok {
		c.lastAccessed[id] = time.Now()
	}
	return run, ok
}

// RunSummary is a lightweight listing entry (adapted from the teacher's
// CalculateMetadataSummary, applied to voxel totals instead of clusters).
type RunSummary struct {
	ID          string `json:"id"`
	VoxelCount  int    `json:"voxelCount"`
	TotalPoints int    `json:"totalPoints"`
}

// List returns a summary of every cached run.
func (c *Cache) List() []RunSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summaries := make([]RunSummary, 0, len(c.runs))
	for id, run := range c.runs {
		total := 0
		for _, count := range run.Voxels {
			total += count
		}
		summaries = append(summaries, RunSummary{ID: id, VoxelCount: len(run.Voxels), TotalPoints: total})
	}
	return summaries
}

// QueryBox returns every voxel of run whose address falls within the
// given inclusive bounding box.
func (r *Run) QueryBox(imin, imax, jmin, jmax, kmin, kmax int32) []VoxelCount {
	var out []VoxelCount
	for addr, count := range r.Voxels {
		if addr.I < imin || addr.I > imax {
			continue
		}
		if addr.J < jmin || addr.J > jmax {
			continue
		}
		if addr.K < kmin || addr.K > kmax {
			continue
		}
		out = append(out, VoxelCount{Address: addr, Count: count})
	}
	return out
}

// VoxelCount is one JSON-serializable query result entry.
type VoxelCount struct {
	Address geom.VoxelAddress `json:"address"`
	Count   int               `json:"count"`
}
