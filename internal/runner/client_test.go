package runner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fetchmill/internal/fileutil"
	"fetchmill/internal/format"
	"fetchmill/internal/logging"
	"fetchmill/internal/runner"
)

// stubExecutor mimics the external tool by materializing files in the scratch
// directory before reporting the configured result.
type stubExecutor struct {
	files map[string]string
	lines []string
	err   error
	block bool

	gotBinary string
	gotArgs   []string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	s.gotBinary = binary
	s.gotArgs = args
	dir := scratchFromArgs(args)
	for name, content := range s.files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	if onOutput != nil {
		lines := s.lines
		if len(lines) == 0 {
			lines = []string{"[download] simulated tool output"}
		}
		for _, line := range lines {
			onOutput(line)
		}
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

// scratchFromArgs pulls the scratch directory out of the -o template.
func scratchFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			return filepath.Dir(args[i+1])
		}
	}
	return ""
}

func videoDirective(t *testing.T) format.Directive {
	t.Helper()
	directive, err := format.Select(format.Request{Quality: format.Quality720p})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	return directive
}

func newClient(t *testing.T, scratch string, exec runner.Executor, opts ...runner.Option) *runner.Client {
	t.Helper()
	opts = append([]runner.Option{runner.WithExecutor(exec)}, opts...)
	client, err := runner.New("yt-dlp", scratch, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("runner.New failed: %v", err)
	}
	return client
}

func TestConvertDiscoversOutputByPrefix(t *testing.T) {
	scratch := t.TempDir()
	exec := &stubExecutor{files: map[string]string{
		"tok1-My Video.mp4":  "final-final-final",
		"tok1-My Video.part": "partial",
		"other-file.mp4":     "unrelated",
	}}
	client := newClient(t, scratch, exec)

	result, err := client.Convert(context.Background(), "https://example.com/v/1", videoDirective(t), "tok1")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if filepath.Base(result.Path) != "tok1-My Video.mp4" {
		t.Fatalf("unexpected output %q", result.Path)
	}
	if result.Size == 0 {
		t.Fatal("expected output size recorded")
	}

	// Intermediates with the token prefix are gone, the output and
	// unrelated files survive.
	remaining, err := fileutil.ListByPrefix(scratch, "tok1")
	if err != nil {
		t.Fatalf("ListByPrefix failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0] != result.Path {
		t.Fatalf("expected only the output to remain, got %v", remaining)
	}
	if _, err := os.Stat(filepath.Join(scratch, "other-file.mp4")); err != nil {
		t.Fatalf("unrelated file touched: %v", err)
	}
}

func TestConvertPassesDirectiveToTool(t *testing.T) {
	scratch := t.TempDir()
	exec := &stubExecutor{files: map[string]string{"tok2-a.mp4": "x"}}
	client := newClient(t, scratch, exec)

	if _, err := client.Convert(context.Background(), "https://example.com/v/2", videoDirective(t), "tok2"); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if exec.gotBinary != "yt-dlp" {
		t.Fatalf("unexpected binary %q", exec.gotBinary)
	}
	joined := ""
	for _, arg := range exec.gotArgs {
		joined += arg + " "
	}
	for _, want := range []string{"best[height<=720]", "--merge-output-format", "tok2-"} {
		if !containsArg(exec.gotArgs, want) {
			t.Fatalf("expected args to carry %q, got %q", want, joined)
		}
	}
}

func TestConvertAudioArgs(t *testing.T) {
	scratch := t.TempDir()
	exec := &stubExecutor{files: map[string]string{"tok3-a.mp3": "x"}}
	client := newClient(t, scratch, exec)

	directive, err := format.Select(format.Request{Quality: format.QualityAudio})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if _, err := client.Convert(context.Background(), "https://example.com/v/3", directive, "tok3"); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	for _, want := range []string{"-x", "--audio-format", "192K"} {
		if !containsArg(exec.gotArgs, want) {
			t.Fatalf("expected audio args to carry %q, got %v", want, exec.gotArgs)
		}
	}
}

func TestConvertFailureCleansToken(t *testing.T) {
	scratch := t.TempDir()
	exec := &stubExecutor{
		files: map[string]string{"tok4-broken.mp4.part": "partial"},
		err:   errors.New("exit status 1"),
	}
	client := newClient(t, scratch, exec)

	_, err := client.Convert(context.Background(), "https://example.com/v/4", videoDirective(t), "tok4")
	if !errors.Is(err, runner.ErrProcessFailure) {
		t.Fatalf("expected ErrProcessFailure, got %v", err)
	}
	assertTokenAbsent(t, scratch, "tok4")
}

func TestConvertFailureNotesDroppedOutput(t *testing.T) {
	scratch := t.TempDir()
	exec := &stubExecutor{
		lines: []string{"line one", "line two", "line three"},
		err:   errors.New("exit status 1"),
	}
	client := newClient(t, scratch, exec, runner.WithMaxCapture(10))

	_, err := client.Convert(context.Background(), "https://example.com/v/9", videoDirective(t), "tok9")
	if !errors.Is(err, runner.ErrProcessFailure) {
		t.Fatalf("expected ErrProcessFailure, got %v", err)
	}
	// Only the first line fits the capture bound; the tail says so.
	if !strings.Contains(err.Error(), "line one") || !strings.Contains(err.Error(), "(+2 lines dropped)") {
		t.Fatalf("expected dropped-line note in %q", err)
	}
}

func TestConvertNoOutputIsProcessFailure(t *testing.T) {
	scratch := t.TempDir()
	exec := &stubExecutor{files: map[string]string{"tok5-only.part": "partial"}}
	client := newClient(t, scratch, exec)

	_, err := client.Convert(context.Background(), "https://example.com/v/5", videoDirective(t), "tok5")
	if !errors.Is(err, runner.ErrProcessFailure) {
		t.Fatalf("expected ErrProcessFailure for missing output, got %v", err)
	}
	assertTokenAbsent(t, scratch, "tok5")
}

func TestConvertTimeout(t *testing.T) {
	scratch := t.TempDir()
	exec := &stubExecutor{
		files: map[string]string{"tok6-stuck.mp4.part": "partial"},
		block: true,
	}
	client := newClient(t, scratch, exec, runner.WithTimeout(20*time.Millisecond))

	_, err := client.Convert(context.Background(), "https://example.com/v/6", videoDirective(t), "tok6")
	if !errors.Is(err, runner.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	assertTokenAbsent(t, scratch, "tok6")
}

func TestConvertCancellation(t *testing.T) {
	scratch := t.TempDir()
	exec := &stubExecutor{
		files: map[string]string{"tok7-stuck.mp4.part": "partial"},
		block: true,
	}
	client := newClient(t, scratch, exec)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Convert(ctx, "https://example.com/v/7", videoDirective(t), "tok7")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	assertTokenAbsent(t, scratch, "tok7")
}

func TestCleanupRemovesAllTokenFiles(t *testing.T) {
	scratch := t.TempDir()
	client := newClient(t, scratch, &stubExecutor{})
	for _, name := range []string{"tok8-a.mp4", "tok8-b.part"} {
		if err := os.WriteFile(filepath.Join(scratch, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	client.Cleanup("tok8")
	assertTokenAbsent(t, scratch, "tok8")
}

func containsArg(args []string, want string) bool {
	for _, arg := range args {
		if strings.Contains(arg, want) {
			return true
		}
	}
	return false
}

func assertTokenAbsent(t *testing.T, scratch, token string) {
	t.Helper()
	remaining, err := fileutil.ListByPrefix(scratch, token)
	if err != nil {
		t.Fatalf("ListByPrefix failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no %s files, got %v", token, remaining)
	}
}
