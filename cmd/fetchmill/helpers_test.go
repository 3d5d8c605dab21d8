package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatETA(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{0, "-"},
		{-5, "-"},
		{42, "42s"},
		{90, "1m30s"},
		{3661, "1h01m"},
	}
	for _, tc := range cases {
		if got := formatETA(tc.seconds); got != tc.want {
			t.Fatalf("formatETA(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	if got := formatSpeed(0); got != "-" {
		t.Fatalf("expected dash for zero speed, got %q", got)
	}
	if got := formatSpeed(1024); !strings.HasSuffix(got, "/s") {
		t.Fatalf("expected rate suffix, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncate("a very long title indeed", 10); got != "a very ..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]column{{name: "ID"}, {name: "Size", rightAlign: true}},
		[][]string{{"abc", "12"}, {"def"}},
	)
	if !strings.Contains(out, "abc") || !strings.Contains(out, "ID") {
		t.Fatalf("table missing content:\n%s", out)
	}
	// The Size column is right aligned, so the short value sits against the
	// right edge of its cell.
	if !strings.Contains(out, "  12 ") {
		t.Fatalf("expected right-aligned Size cell:\n%s", out)
	}
	if renderTable(nil, nil) != "" {
		t.Fatal("expected empty output without columns")
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmd := newConfigInitCommand()
	cmd.SetArgs([]string{"--path", target})
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config at %s: %v", target, err)
	}

	// A second run without --overwrite refuses to clobber.
	cmd = newConfigInitCommand()
	cmd.SetArgs([]string{"--path", target})
	cmd.SetOut(&buf)
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestDispositionFilename(t *testing.T) {
	if got := dispositionFilename(`attachment; filename="My File.mp4"`); got != "My File.mp4" {
		t.Fatalf("unexpected filename %q", got)
	}
	if got := dispositionFilename(""); got != "" {
		t.Fatalf("expected empty filename, got %q", got)
	}
}
