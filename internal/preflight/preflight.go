// Package preflight runs startup checks before the daemon accepts work:
// external binaries resolvable, scratch directory usable, enough free space.
package preflight

import (
	"fmt"

	"golang.org/x/sys/unix"

	"fetchmill/internal/config"
	"fetchmill/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
		CheckFreeSpace("Scratch free space", cfg.Paths.ScratchDir, cfg.Tasks.MinFreeScratchMB),
	}
	for _, status := range deps.CheckBinaries(deps.Required(cfg)) {
		detail := status.Detail
		if status.Available {
			detail = status.Command
		}
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available || status.Optional,
			Detail: detail,
		})
	}
	return results
}

// Failed returns the failing results from a preflight run.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// CheckDirectoryAccess verifies the directory exists and is read/write/list
// accessible.
func CheckDirectoryAccess(name, path string) Result {
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minFreeMB
// megabytes available to unprivileged writers.
func CheckFreeSpace(name, path string, minFreeMB int64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	freeMB := int64(stat.Bavail) * stat.Bsize / (1 << 20)
	if minFreeMB > 0 && freeMB < minFreeMB {
		return Result{Name: name, Detail: fmt.Sprintf("%d MB free, %d MB required", freeMB, minFreeMB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MB free", freeMB)}
}
