package progress_test

import (
	"testing"
	"time"

	"fetchmill/internal/progress"
)

func TestPercentageBounds(t *testing.T) {
	cases := []struct {
		name       string
		downloaded int64
		total      int64
		want       float64
	}{
		{"zero", 0, 1000, 0},
		{"half", 500, 1000, 50},
		{"done", 1000, 1000, 100},
		{"overshoot clamps", 1500, 1000, 100},
		{"negative clamps", -10, 1000, 0},
		{"unknown total", 500, 0, 0},
		{"negative total", 500, -1, 0},
		{"rounds to two places", 1, 3, 33.33},
	}
	for _, tc := range cases {
		if got := progress.Percentage(tc.downloaded, tc.total); got != tc.want {
			t.Fatalf("%s: Percentage(%d, %d) = %v, want %v", tc.name, tc.downloaded, tc.total, got, tc.want)
		}
	}
}

func TestPercentageMonotonic(t *testing.T) {
	const total = int64(7777)
	prev := float64(-1)
	for downloaded := int64(0); downloaded <= total; downloaded += 123 {
		pct := progress.Percentage(downloaded, total)
		if pct < prev {
			t.Fatalf("percentage decreased: %v after %v at %d bytes", pct, prev, downloaded)
		}
		if pct < 0 || pct > 100 {
			t.Fatalf("percentage out of range: %v", pct)
		}
		prev = pct
	}
}

func TestETA(t *testing.T) {
	if got := progress.ETA(1000, 100); got != 10 {
		t.Fatalf("ETA(1000, 100) = %d, want 10", got)
	}
	if got := progress.ETA(1001, 100); got != 11 {
		t.Fatalf("expected ceil rounding, got %d", got)
	}
	for _, speed := range []float64{0, -1, -100.5} {
		if got := progress.ETA(5000, speed); got != 0 {
			t.Fatalf("ETA with speed %v should be 0, got %d", speed, got)
		}
	}
	if got := progress.ETA(0, 100); got != 0 {
		t.Fatalf("ETA with nothing remaining should be 0, got %d", got)
	}
}

func TestRemaining(t *testing.T) {
	if got := progress.Remaining(400, 1000); got != 600 {
		t.Fatalf("Remaining(400, 1000) = %d, want 600", got)
	}
	if got := progress.Remaining(1200, 1000); got != 0 {
		t.Fatalf("overshoot should clamp to 0, got %d", got)
	}
	if got := progress.Remaining(10, 0); got != 0 {
		t.Fatalf("unknown total should report 0 remaining, got %d", got)
	}
}

func TestSpeedWindow(t *testing.T) {
	w := progress.NewSpeedWindow(5 * time.Second)
	if got := w.BytesPerSecond(); got != 0 {
		t.Fatalf("empty window should report 0, got %v", got)
	}

	base := time.Now()
	w.Observe(base, 0)
	w.Observe(base.Add(2*time.Second), 2000)
	if got := w.BytesPerSecond(); got != 1000 {
		t.Fatalf("expected 1000 B/s, got %v", got)
	}

	// Samples older than the span fall out of the computation.
	w.Observe(base.Add(10*time.Second), 4000)
	if got := w.BytesPerSecond(); got >= 1000 {
		t.Fatalf("stale samples should be trimmed, got %v", got)
	}
}
