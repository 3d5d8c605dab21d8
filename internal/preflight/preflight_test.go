package preflight_test

import (
	"path/filepath"
	"testing"

	"fetchmill/internal/preflight"
	"fetchmill/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := preflight.CheckDirectoryAccess("dir", dir); !result.Passed {
		t.Fatalf("expected pass for %s, got %+v", dir, result)
	}
	missing := filepath.Join(dir, "missing")
	if result := preflight.CheckDirectoryAccess("dir", missing); result.Passed {
		t.Fatalf("expected failure for absent directory, got %+v", result)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := preflight.CheckFreeSpace("space", dir, 0); !result.Passed {
		t.Fatalf("expected pass with no minimum, got %+v", result)
	}
	// No filesystem has an exabyte to spare.
	if result := preflight.CheckFreeSpace("space", dir, 1<<40); result.Passed {
		t.Fatalf("expected failure for absurd minimum, got %+v", result)
	}
}

func TestRunAllCoversDirectoryAndBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Tasks.MinFreeScratchMB = 0
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	results := preflight.RunAll(cfg)
	if len(results) < 3 {
		t.Fatalf("expected directory, space and binary checks, got %d results", len(results))
	}
	if !results[0].Passed {
		t.Fatalf("scratch directory check failed: %+v", results[0])
	}

	failed := preflight.Failed(results)
	for _, result := range failed {
		if result.Name == "Scratch directory" || result.Name == "Scratch free space" {
			t.Fatalf("unexpected failure: %+v", result)
		}
	}
}
