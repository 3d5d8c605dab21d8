package daemon

import (
	"time"

	"fetchmill/internal/task"
)

// SubmitRequest is the POST /api/tasks body.
type SubmitRequest struct {
	SourceID        string `json:"source_id"`
	SourceURL       string `json:"source_url"`
	Title           string `json:"title"`
	DurationSeconds int64  `json:"duration_seconds"`

	Quality            string   `json:"quality"`
	AudioBitrateKbps   int      `json:"audio_bitrate_kbps,omitempty"`
	Available          *bool    `json:"available,omitempty"`
	AvailableQualities []string `json:"available_qualities,omitempty"`

	Strategy           string `json:"strategy,omitempty"`
	TotalBytesEstimate int64  `json:"total_bytes_estimate,omitempty"`
}

// ProgressPayload mirrors a task's derived progress counters.
type ProgressPayload struct {
	Percentage      float64 `json:"percentage"`
	DownloadedBytes int64   `json:"downloaded_bytes"`
	TotalBytes      int64   `json:"total_bytes"`
	BytesPerSecond  float64 `json:"bytes_per_second"`
	ETASeconds      int64   `json:"eta_seconds"`
}

// TaskPayload is the wire form of a task snapshot.
type TaskPayload struct {
	ID        string          `json:"id"`
	SourceID  string          `json:"source_id"`
	Title     string          `json:"title"`
	Quality   string          `json:"quality"`
	Container string          `json:"container"`
	Strategy  string          `json:"strategy"`
	Status    string          `json:"status"`
	Phase     string          `json:"phase,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Progress  ProgressPayload `json:"progress"`
	CreatedAt time.Time       `json:"created_at"`
	PausedAt  *time.Time      `json:"paused_at,omitempty"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task TaskPayload `json:"task"`
}

// TaskListResponse wraps the task listing.
type TaskListResponse struct {
	Tasks []TaskPayload `json:"tasks"`
}

// DependencyPayload reports one external binary's availability.
type DependencyPayload struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// StatusResponse is the GET /api/status body.
type StatusResponse struct {
	Running       bool                `json:"running"`
	PID           int                 `json:"pid"`
	LockFilePath  string              `json:"lock_file_path"`
	HistoryDBPath string              `json:"history_db_path,omitempty"`
	TaskCounts    map[string]int      `json:"task_counts"`
	Dependencies  []DependencyPayload `json:"dependencies"`
}

// HistoryPayload is one archived task row.
type HistoryPayload struct {
	TaskID          string    `json:"task_id"`
	SourceID        string    `json:"source_id"`
	Title           string    `json:"title"`
	Quality         string    `json:"quality"`
	Container       string    `json:"container"`
	Strategy        string    `json:"strategy"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
	DownloadedBytes int64     `json:"downloaded_bytes"`
	TotalBytes      int64     `json:"total_bytes"`
	CreatedAt       time.Time `json:"created_at"`
	EndedAt         time.Time `json:"ended_at"`
}

// HistoryResponse wraps the archive listing.
type HistoryResponse struct {
	Entries []HistoryPayload `json:"entries"`
}

func fromTask(t task.Task) TaskPayload {
	return TaskPayload{
		ID:        t.ID,
		SourceID:  t.Source.ID,
		Title:     t.Source.Title,
		Quality:   t.Output.Quality,
		Container: t.Output.Container,
		Strategy:  string(t.Strategy),
		Status:    string(t.Status),
		Phase:     t.Phase,
		Reason:    t.Reason,
		Progress: ProgressPayload{
			Percentage:      t.Progress.Percentage,
			DownloadedBytes: t.Progress.DownloadedBytes,
			TotalBytes:      t.Progress.TotalBytes,
			BytesPerSecond:  t.Progress.BytesPerSecond,
			ETASeconds:      t.Progress.ETASeconds,
		},
		CreatedAt: t.CreatedAt,
		PausedAt:  t.PausedAt,
		EndedAt:   t.EndedAt,
	}
}
