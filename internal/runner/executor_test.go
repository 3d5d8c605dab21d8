package runner

import (
	"context"
	"strings"
	"testing"
)

func TestCommandExecutorCapturesBothStreams(t *testing.T) {
	var lines []string
	exec := commandExecutor{}
	err := exec.Run(context.Background(), "sh", []string{"-c", "echo out; echo err 1>&2"}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "out") || !strings.Contains(joined, "err") {
		t.Fatalf("expected both streams captured, got %q", joined)
	}
}

func TestCommandExecutorOversizedLine(t *testing.T) {
	// A single line past the scanner's token bound aborts the run; the child
	// must be killed and reaped rather than left behind. The overshoot stays
	// below the pipe capacity so the writer is never blocked.
	exec := commandExecutor{}
	err := exec.Run(context.Background(), "sh",
		[]string{"-c", `head -c 1081344 /dev/zero | tr '\0' a`},
		func(string) {})
	if err == nil || !strings.Contains(err.Error(), "scan output") {
		t.Fatalf("expected scan error, got %v", err)
	}
}

func TestCommandExecutorExitFailure(t *testing.T) {
	exec := commandExecutor{}
	err := exec.Run(context.Background(), "sh", []string{"-c", "exit 3"}, func(string) {})
	if err == nil || !strings.Contains(err.Error(), "wait command") {
		t.Fatalf("expected wait error for non-zero exit, got %v", err)
	}
}
