package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fetchmill/internal/fileutil"
	"fetchmill/internal/format"
	"fetchmill/internal/logging"
)

var (
	// ErrProcessFailure marks a non-zero tool exit or an invocation that
	// produced no discoverable output file.
	ErrProcessFailure = errors.New("conversion process failure")
	// ErrTimeout marks an invocation that exceeded the wall-clock budget.
	ErrTimeout = errors.New("conversion timed out")
)

const (
	// DefaultTimeout bounds one external tool invocation.
	DefaultTimeout = 300 * time.Second
	// DefaultMaxCapture bounds the tool output retained for diagnostics.
	DefaultMaxCapture = 50 << 20
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithTimeout overrides the wall-clock budget per invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxCapture overrides the captured-output bound.
func WithMaxCapture(limit int64) Option {
	return func(c *Client) {
		if limit > 0 {
			c.maxCapture = limit
		}
	}
}

// Client wraps external conversion tool invocations. One Convert call runs
// one conversion for one work token.
type Client struct {
	binary     string
	scratchDir string
	timeout    time.Duration
	maxCapture int64
	exec       Executor
	logger     *slog.Logger
}

// Result describes the single file a successful conversion produced.
type Result struct {
	Path string
	Size int64
}

// New constructs a runner client for the given tool binary and scratch
// directory.
func New(binary, scratchDir string, logger *slog.Logger, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("conversion binary required")
	}
	scratchDir = strings.TrimSpace(scratchDir)
	if scratchDir == "" {
		return nil, errors.New("scratch directory required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &Client{
		binary:     binary,
		scratchDir: scratchDir,
		timeout:    DefaultTimeout,
		maxCapture: DefaultMaxCapture,
		exec:       commandExecutor{},
		logger:     logger.With(logging.String("component", "runner")),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Convert runs the external tool for one source/directive pair. Every file the
// invocation creates is namespaced by workToken; on any failure all of them
// are removed, on success only the discovered output survives. The caller owns
// the returned file and is responsible for deleting it once consumed.
func (c *Client) Convert(ctx context.Context, sourceURL string, directive format.Directive, workToken string) (Result, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return Result{}, fmt.Errorf("%w: source url required", ErrProcessFailure)
	}
	if strings.TrimSpace(workToken) == "" {
		return Result{}, fmt.Errorf("%w: work token required", ErrProcessFailure)
	}
	if err := os.MkdirAll(c.scratchDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("prepare scratch directory: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	capture := newCaptureBuffer(c.maxCapture)
	args := c.buildArgs(sourceURL, directive, workToken)

	runErr := c.exec.Run(runCtx, c.binary, args, capture.Append)
	if runErr != nil {
		c.cleanup(workToken)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
		}
		if errors.Is(runCtx.Err(), context.Canceled) {
			return Result{}, runCtx.Err()
		}
		return Result{}, fmt.Errorf("%w: %v: %s", ErrProcessFailure, runErr, capture.Tail())
	}

	output, err := c.discoverOutput(workToken)
	if err != nil {
		c.cleanup(workToken)
		return Result{}, err
	}

	// Intermediates with the token prefix are dropped now; the output file
	// itself is removed by the caller after being consumed.
	if err := fileutil.RemoveByPrefix(c.scratchDir, workToken, output.Path); err != nil {
		c.logger.Warn("scratch intermediate cleanup failed",
			logging.String("work_token", workToken), logging.Error(err))
	}
	return output, nil
}

// Cleanup removes every scratch file belonging to the work token. Failures
// are logged and swallowed; the conversion result is the primary outcome.
func (c *Client) Cleanup(workToken string) {
	c.cleanup(workToken)
}

func (c *Client) cleanup(workToken string) {
	if strings.TrimSpace(workToken) == "" {
		return
	}
	if err := fileutil.RemoveByPrefix(c.scratchDir, workToken); err != nil {
		c.logger.Warn("scratch cleanup failed",
			logging.String("work_token", workToken), logging.Error(err))
	}
}

// buildArgs assembles the tool invocation. The output template carries the
// work token prefix so discovery and cleanup can match by name regardless of
// the extension the tool picks.
func (c *Client) buildArgs(sourceURL string, directive format.Directive, workToken string) []string {
	template := filepath.Join(c.scratchDir, workToken+"-%(title)s.%(ext)s")
	args := []string{
		"-f", directive.FormatExpr(),
		"-o", template,
		"--no-playlist",
		"--newline",
	}
	if directive.Quality == format.QualityAudio {
		args = append(args,
			"-x",
			"--audio-format", directive.Container,
			"--audio-quality", fmt.Sprintf("%dK", directive.AudioBitrateKbps),
		)
	} else {
		args = append(args, "--merge-output-format", directive.Container)
	}
	return append(args, sourceURL)
}

// discoverOutput locates the produced file by work-token prefix. The tool
// picks its own final name and extension, so an exact path can never be
// assumed; partial artifacts are skipped and the largest candidate wins.
func (c *Client) discoverOutput(workToken string) (Result, error) {
	matches, err := fileutil.ListByPrefix(c.scratchDir, workToken)
	if err != nil {
		return Result{}, fmt.Errorf("inspect conversion outputs: %w", err)
	}

	var best Result
	for _, path := range matches {
		if isPartialArtifact(path) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if best.Path == "" || info.Size() > best.Size {
			best = Result{Path: path, Size: info.Size()}
		}
	}
	if best.Path == "" {
		return Result{}, fmt.Errorf("%w: no output file for token %s", ErrProcessFailure, workToken)
	}
	return best, nil
}

var partialSuffixes = []string{".part", ".ytdl", ".temp", ".tmp"}

func isPartialArtifact(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
