package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"fetchmill/internal/fileutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestListByPrefix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tok-a.mp4"), "a")
	writeFile(t, filepath.Join(dir, "tok-b.part"), "b")
	writeFile(t, filepath.Join(dir, "other-c.mp4"), "c")
	if err := os.Mkdir(filepath.Join(dir, "tok-dir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	matches, err := fileutil.ListByPrefix(dir, "tok-")
	if err != nil {
		t.Fatalf("ListByPrefix failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %v", matches)
	}
}

func TestListByPrefixMissingDir(t *testing.T) {
	matches, err := fileutil.ListByPrefix(filepath.Join(t.TempDir(), "absent"), "tok-")
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %v", matches)
	}
}

func TestRemoveByPrefixKeepsListed(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "tok-keep.mp4")
	writeFile(t, keep, "keep")
	writeFile(t, filepath.Join(dir, "tok-drop.part"), "drop")
	writeFile(t, filepath.Join(dir, "unrelated.txt"), "x")

	if err := fileutil.RemoveByPrefix(dir, "tok-", keep); err != nil {
		t.Fatalf("RemoveByPrefix failed: %v", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("kept file removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tok-drop.part")); !os.IsNotExist(err) {
		t.Fatal("expected tok-drop.part removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "unrelated.txt")); err != nil {
		t.Fatalf("unrelated file touched: %v", err)
	}
}
