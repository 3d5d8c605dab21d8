package history_test

import (
	"context"
	"testing"
	"time"

	"fetchmill/internal/config"
	"fetchmill/internal/history"
	"fetchmill/internal/task"
)

func newStore(t *testing.T) *history.Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.ScratchDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	store, err := history.Open(&cfg)
	if err != nil {
		t.Fatalf("history.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func finishedTask(id string, status task.Status, endedAt time.Time) task.Task {
	created := endedAt.Add(-time.Minute)
	return task.Task{
		ID:        id,
		Source:    task.Source{ID: "vid-" + id, Title: "Title " + id},
		Output:    task.Output{Quality: "720p", Container: "mp4"},
		Strategy:  task.StrategySimulated,
		Status:    status,
		Reason:    "",
		Progress:  task.Progress{DownloadedBytes: 1024, TotalBytes: 1024, Percentage: 100},
		CreatedAt: created,
		EndedAt:   &endedAt,
	}
}

func TestRecordAndList(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := finishedTask("a", task.StatusCompleted, now.Add(-2*time.Hour))
	second := finishedTask("b", task.StatusFailed, now.Add(-time.Hour))
	second.Reason = "conversion process failure"

	if err := store.Record(ctx, first); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Record(ctx, second); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest ending first.
	if entries[0].TaskID != "b" || entries[1].TaskID != "a" {
		t.Fatalf("unexpected order: %s, %s", entries[0].TaskID, entries[1].TaskID)
	}
	if entries[0].Status != string(task.StatusFailed) || entries[0].Reason == "" {
		t.Fatalf("failed entry not archived faithfully: %+v", entries[0])
	}
	if entries[1].DownloadedBytes != 1024 || entries[1].TotalBytes != 1024 {
		t.Fatalf("byte counters lost: %+v", entries[1])
	}
}

func TestRecordRejectsNonTerminal(t *testing.T) {
	store := newStore(t)
	running := finishedTask("r", task.StatusRunning, time.Now().UTC())
	if err := store.Record(context.Background(), running); err == nil {
		t.Fatal("expected error for non-terminal status")
	}
}

func TestRecordIsIdempotentPerTask(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	entry := finishedTask("dup", task.StatusCompleted, time.Now().UTC())

	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("first Record failed: %v", err)
	}
	entry.Progress.DownloadedBytes = 2048
	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("second Record failed: %v", err)
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected single row after re-record, got %d", len(entries))
	}
	if entries[0].DownloadedBytes != 2048 {
		t.Fatalf("re-record did not replace counters: %+v", entries[0])
	}
}

func TestListHonorsLimit(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for i, id := range []string{"one", "two", "three"} {
		entry := finishedTask(id, task.StatusCompleted, now.Add(time.Duration(i)*time.Minute))
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].TaskID != "three" {
		t.Fatalf("expected newest first, got %s", entries[0].TaskID)
	}
}

func TestStats(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	if err := store.Record(ctx, finishedTask("ok", task.StatusCompleted, now)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Record(ctx, finishedTask("bad", task.StatusFailed, now)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[string(task.StatusCompleted)] != 1 || stats[string(task.StatusFailed)] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestPrune(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := finishedTask("old", task.StatusCompleted, now.Add(-72*time.Hour))
	fresh := finishedTask("fresh", task.StatusCompleted, now.Add(-time.Hour))
	if err := store.Record(ctx, old); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Record(ctx, fresh); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	removed, err := store.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned row, got %d", removed)
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].TaskID != "fresh" {
		t.Fatalf("expected only fresh entry, got %+v", entries)
	}

	removed, err = store.Prune(ctx, 0)
	if err != nil || removed != 0 {
		t.Fatalf("zero retention must be a no-op, got %d, %v", removed, err)
	}
}
