// Package config loads and validates the JSON configuration file every
// canopy-vox peer reads from its single positional CLI argument (spec §6).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// VoxelSpace mirrors the legacy single-process tool's voxel_space object
// (spec §6, SPEC_FULL.md §4.12): a literal VoxelSorter in JSON form.
type VoxelSpace struct {
	Dx float64 `json:"dx"`
	Dy float64 `json:"dy"`
	Dz float64 `json:"dz"`
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	Z0 float64 `json:"z0"`
}

// Configuration is the typed settings record every peer loads once before
// any phase runs (spec §3/§6, SPEC_FULL.md §3 expansion).
type Configuration struct {
	InputFiles        []string `json:"input_files"`
	ScratchDirectory   string  `json:"scratch_directory"`
	OutputDirectory    string  `json:"output_directory"`
	VoxelDistance      float64 `json:"voxel_distance"`
	BinningDistance    float64 `json:"binning_distance"`
	ThinningDistance   float64 `json:"thinning_distance"`
	Debug              bool    `json:"debug"`

	// (expansion) fields carrying what an MPI launcher would otherwise
	// supply automatically — see SPEC_FULL.md §3.
	Rank          int      `json:"rank"`
	Peers         []string `json:"peers"`
	StatusAddr    string   `json:"status_addr,omitempty"`
	DebugSnapshot bool     `json:"debug_snapshot,omitempty"`

	// Legacy single-process tool keys (SPEC_FULL.md §4.12).
	InputFile  string      `json:"input_file,omitempty"`
	OutputFile string      `json:"output_file,omitempty"`
	VoxelSpace *VoxelSpace `json:"voxel_space,omitempty"`
}

// Load reads and parses the configuration file at path. It does not validate
// the result; callers run Validate or ValidateLegacy on it.
func Load(path string) (Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, fmt.Errorf("configuration error: cannot read %q: %w", path, err)
	}

	var cfg Configuration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Configuration{}, fmt.Errorf("configuration error: invalid JSON in %q: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the core pipeline's required keys (spec §6/§7). Legacy
// keys are validated separately by ValidateLegacy, since the two tools
// never run against the same configuration.
func (c Configuration) Validate() error {
	var problems []string

	if len(c.InputFiles) == 0 {
		problems = append(problems, "input_files must be a non-empty array")
	}
	if strings.TrimSpace(c.ScratchDirectory) == "" {
		problems = append(problems, "scratch_directory is required")
	}
	if c.VoxelDistance <= 0 {
		problems = append(problems, "voxel_distance must be > 0")
	}
	if c.BinningDistance < c.VoxelDistance {
		problems = append(problems, "binning_distance must be >= voxel_distance")
	}
	if c.ThinningDistance <= 0 {
		problems = append(problems, "thinning_distance must be > 0")
	}
	if c.BinningDistance < c.ThinningDistance {
		problems = append(problems, "binning_distance must be >= thinning_distance")
	}
	if c.Rank < 0 || c.Rank >= len(c.Peers) {
		problems = append(problems, fmt.Sprintf("rank %d is out of range for %d peers", c.Rank, len(c.Peers)))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration error: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateLegacy checks the keys cmd/canopyvoxlegacy requires.
func (c Configuration) ValidateLegacy() error {
	var problems []string

	if strings.TrimSpace(c.InputFile) == "" {
		problems = append(problems, "input_file is required")
	}
	if strings.TrimSpace(c.OutputFile) == "" {
		problems = append(problems, "output_file is required")
	}
	if c.VoxelSpace == nil {
		problems = append(problems, "voxel_space is required")
	} else if c.VoxelSpace.Dx <= 0 || c.VoxelSpace.Dy <= 0 || c.VoxelSpace.Dz <= 0 {
		problems = append(problems, "voxel_space dx, dy, dz must all be > 0")
	}
	if c.ThinningDistance <= 0 {
		problems = append(problems, "thinning_distance must be > 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration error: %s", strings.Join(problems, "; "))
	}
	return nil
}

// WorldSize is the number of peers in this run, derived from len(Peers).
func (c Configuration) WorldSize() int {
	return len(c.Peers)
}
