package task

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fetchmill/internal/progress"
)

var (
	ErrNotFound          = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid task transition")
)

// Registry is the in-memory source of truth for task lifecycle. It owns the
// authoritative Task values; callers only ever receive copies. Access is
// serialized per task id, with a coarse lock guarding only the id table.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu     sync.Mutex
	task   Task
	driver *Driver
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Create registers a new task in pending state with zeroed progress. It
// always succeeds; ids are never reused.
func (r *Registry) Create(source Source, output Output, strategy Strategy, totalBytesEstimate int64) Task {
	now := time.Now().UTC()
	t := Task{
		ID:        uuid.NewString(),
		Source:    source,
		Output:    output,
		Strategy:  strategy,
		Status:    StatusPending,
		CreatedAt: now,
		WorkToken: "wk-" + uuid.NewString(),
	}
	if totalBytesEstimate > 0 {
		t.Progress.TotalBytes = totalBytesEstimate
	}

	r.mu.Lock()
	r.entries[t.ID] = &entry{task: t}
	r.mu.Unlock()
	return t
}

// Get returns a snapshot of the task. Absence is a valid miss, not an error.
func (r *Registry) Get(id string) (Task, bool) {
	e := r.lookup(id)
	if e == nil {
		return Task{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task, true
}

// List returns snapshots of all tasks ordered by creation time.
func (r *Registry) List() []Task {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	tasks := make([]Task, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		tasks = append(tasks, e.task)
		e.mu.Unlock()
	}
	sortTasks(tasks)
	return tasks
}

// Transition moves a task along a lifecycle edge. On success it applies the
// optional mutator, clears the driver binding, and returns the previously
// bound driver (already cancelled) so the caller can join it. Transitions
// into running leave binding to the caller via BindDriver.
func (r *Registry) Transition(id string, to Status, apply func(*Task)) (Task, *Driver, error) {
	e := r.lookup(id)
	if e == nil {
		return Task{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	from := e.task.Status
	if !CanTransition(from, to) {
		return Task{}, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	now := time.Now().UTC()
	e.task.Status = to
	switch to {
	case StatusPaused:
		e.task.PausedAt = &now
		e.task.Progress.BytesPerSecond = 0
		e.task.Progress.ETASeconds = 0
	case StatusRunning:
		e.task.PausedAt = nil
	case StatusCompleted:
		e.task.EndedAt = &now
		e.task.Progress.Percentage = 100
		if e.task.Progress.TotalBytes > 0 {
			e.task.Progress.DownloadedBytes = e.task.Progress.TotalBytes
		}
		e.task.Progress.BytesPerSecond = 0
		e.task.Progress.ETASeconds = 0
	case StatusFailed:
		e.task.EndedAt = &now
		e.task.Progress.BytesPerSecond = 0
		e.task.Progress.ETASeconds = 0
	}
	if apply != nil {
		apply(&e.task)
	}

	detached := e.driver
	e.driver = nil
	detached.Cancel()
	return e.task, detached, nil
}

// UpdateProgress advances the byte counters of a running task and recomputes
// the derived fields. Updates against non-running tasks are rejected so a
// stale driver can never move a paused or finished task.
func (r *Registry) UpdateProgress(id string, downloadedBytes int64, bytesPerSecond float64) (Task, error) {
	e := r.lookup(id)
	if e == nil {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.task.Status != StatusRunning {
		return Task{}, fmt.Errorf("%w: progress update in %s", ErrInvalidTransition, e.task.Status)
	}

	total := e.task.Progress.TotalBytes
	if total > 0 && downloadedBytes > total {
		downloadedBytes = total
	}
	e.task.Progress.DownloadedBytes = downloadedBytes
	e.task.Progress.BytesPerSecond = bytesPerSecond
	e.task.Progress.Percentage = progress.Percentage(downloadedBytes, total)
	e.task.Progress.ETASeconds = progress.ETA(progress.Remaining(downloadedBytes, total), bytesPerSecond)
	return e.task, nil
}

// SetPhase records the coarse phase label of a running task.
func (r *Registry) SetPhase(id, phase string) error {
	e := r.lookup(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.task.Status.IsTerminal() {
		return fmt.Errorf("%w: phase update in %s", ErrInvalidTransition, e.task.Status)
	}
	e.task.Phase = phase
	return nil
}

// BindDriver attaches the single background driver allowed to mutate the
// task. Binding fails if another driver is still attached.
func (r *Registry) BindDriver(id string, d *Driver) error {
	e := r.lookup(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.driver != nil {
		return fmt.Errorf("%w: driver already bound", ErrInvalidTransition)
	}
	e.driver = d
	return nil
}

// DetachDriver cancels and returns the bound driver without a status change.
// Used by cancellation, which must join the driver before removing the entry.
func (r *Registry) DetachDriver(id string) *Driver {
	e := r.lookup(id)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	detached := e.driver
	e.driver = nil
	detached.Cancel()
	return detached
}

// Remove deletes a task. Removing an absent id is a no-op so racing cancel
// and cleanup calls tolerate each other.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// SweepTerminal removes completed and failed tasks whose terminal transition
// is older than the retention window and returns their snapshots.
func (r *Registry) SweepTerminal(retention time.Duration) []Task {
	cutoff := time.Now().UTC().Add(-retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	var swept []Task
	for id, e := range r.entries {
		e.mu.Lock()
		terminal := e.task.Status.IsTerminal() && e.task.EndedAt != nil && e.task.EndedAt.Before(cutoff)
		if terminal {
			swept = append(swept, e.task)
		}
		e.mu.Unlock()
		if terminal {
			delete(r.entries, id)
		}
	}
	sortTasks(swept)
	return swept
}

// Len reports the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) lookup(id string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id]
}

func sortTasks(tasks []Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}
