package task

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a conversion task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusPaused,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// transitions is the authoritative edge table. Cancellation is a destructive
// removal, not a status, and therefore does not appear here.
var transitions = map[Status][]Status{
	StatusPending: {StatusRunning},
	StatusRunning: {StatusPaused, StatusCompleted, StatusFailed},
	StatusPaused:  {StatusRunning, StatusFailed},
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status accepts no further mutation.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether the edge from → to is in the lifecycle table.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Strategy identifies how a task's progress is driven.
type Strategy string

const (
	// StrategySimulated advances progress with a local timer when the
	// external tool gives no incremental signal.
	StrategySimulated Strategy = "simulated"
	// StrategyReal reports coarse phases from an actual tool invocation.
	StrategyReal Strategy = "real"
)

// Pausable reports whether the strategy honors pause and resume. Only the
// simulated driver can stop and restart its tick; the real invocation runs
// the external tool to completion or cancellation.
func (s Strategy) Pausable() bool {
	return s == StrategySimulated
}

// Source identifies the media a task converts. It is copied by value into the
// task at creation and never mutated afterwards.
type Source struct {
	ID              string
	Title           string
	DurationSeconds int64
}

// Output captures the requested quality and container for a task.
type Output struct {
	Quality          string
	Container        string
	AudioBitrateKbps int
}

// Progress holds the derived progress counters for a task. Percentage and
// ETASeconds are computed by the progress package; no other component derives
// them ad hoc.
type Progress struct {
	Percentage      float64
	DownloadedBytes int64
	TotalBytes      int64
	BytesPerSecond  float64
	ETASeconds      int64
}

// Task is one in-flight or finished conversion request. Values handed out by
// the registry are snapshots; mutating one has no effect on the authoritative
// state.
type Task struct {
	ID        string
	Source    Source
	Output    Output
	Strategy  Strategy
	Status    Status
	Progress  Progress
	Phase     string
	Reason    string
	CreatedAt time.Time
	PausedAt  *time.Time
	EndedAt   *time.Time

	// WorkToken namespaces every scratch file of this task's invocation.
	WorkToken string
	// ResultPath points at the produced file once the task completes. It is
	// internal state and never serialized to clients.
	ResultPath string
}
