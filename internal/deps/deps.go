// Package deps reports the availability of the external binaries the daemon
// shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"fetchmill/internal/config"
)

// Requirement names one external binary and why it is needed.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the resolution result for one requirement.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// Required lists the binaries for the configured tool set. The converter is
// mandatory; ffmpeg is what the converter shells out to for merging separate
// streams and extracting audio, so its absence degrades rather than blocks.
func Required(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Converter",
			Command:     cfg.Tools.ConverterBinary,
			Description: "Downloads and converts source media",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpegBinary,
			Description: "Merges separate streams and extracts audio",
			Optional:    true,
		},
	}
}

// CheckBinaries resolves each requirement on PATH and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{Requirement: req}
		status.Command = strings.TrimSpace(req.Command)
		switch {
		case status.Command == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(status.Command); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", status.Command)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of unavailable non-optional binaries.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
