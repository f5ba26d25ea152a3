package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Configuration {
	return Configuration{
		InputFiles:       []string{"a.xyz", "b.xyz"},
		ScratchDirectory: "/tmp/scratch/",
		VoxelDistance:    1,
		BinningDistance:  1,
		ThinningDistance: 0.1,
		Rank:             0,
		Peers:            []string{"localhost:9000", "localhost:9001"},
	}
}

func TestValidateAccepsGoodConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected valid config to pass, got %v", err)
	}
}

func TestValidateRejectsEmptyInputFiles(t *testing.T) {
	c := validConfig()
	c.InputFiles = nil
	if err := c.Validate(); err == nil {
		t.Error("expected an error for empty input_files")
	}
}

func TestValidateRejectsBinningBelowVoxel(t *testing.T) {
	c := validConfig()
	c.VoxelDistance = 2
	c.BinningDistance = 1
	if err := c.Validate(); err == nil {
		t.Error("expected an error when binning_distance < voxel_distance")
	}
}

func TestValidateRejectsBinningBelowThinning(t *testing.T) {
	c := validConfig()
	c.ThinningDistance = 5
	if err := c.Validate(); err == nil {
		t.Error("expected an error when binning_distance < thinning_distance")
	}
}

func TestValidateRejectsRankOutOfRange(t *testing.T) {
	c := validConfig()
	c.Rank = 5
	if err := c.Validate(); err == nil {
		t.Error("expected an error for an out-of-range rank")
	}
}

func TestLoadParsesJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"input_files": ["a.xyz"],
		"scratch_directory": "/tmp/scratch/",
		"voxel_distance": 1.0,
		"binning_distance": 1.0,
		"thinning_distance": 0.1,
		"rank": 1,
		"peers": ["h1:9000", "h1:9001"]
	}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Rank != 1 || len(cfg.Peers) != 2 {
		t.Errorf("unexpected parsed config: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected parsed config to validate, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.json"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestValidateLegacy(t *testing.T) {
	c := Configuration{
		InputFile:        "in.xyz",
		OutputFile:       "out.sparsevox",
		ThinningDistance: 0.1,
		VoxelSpace:       &VoxelSpace{Dx: 1, Dy: 1, Dz: 1},
	}
	if err := c.ValidateLegacy(); err != nil {
		t.Errorf("expected valid legacy config to pass, got %v", err)
	}

	c.VoxelSpace = nil
	if err := c.ValidateLegacy(); err == nil {
		t.Error("expected an error when voxel_space is missing")
	}
}
