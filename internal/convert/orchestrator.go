package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"fetchmill/internal/config"
	"fetchmill/internal/format"
	"fetchmill/internal/logging"
	"fetchmill/internal/runner"
	"fetchmill/internal/task"
)

// Archiver records terminal tasks as they are swept out of the registry.
type Archiver interface {
	Record(ctx context.Context, t task.Task) error
}

// Request carries a resolved source reference plus the chosen output option.
// Availability is decided by the metadata collaborator before the request
// reaches the orchestrator; an unavailable option is rejected before any work.
type Request struct {
	SourceID        string
	SourceURL       string
	Title           string
	DurationSeconds int64

	Quality            string
	AudioBitrateKbps   int
	Available          bool
	AvailableQualities []string

	Strategy           task.Strategy
	TotalBytesEstimate int64
}

// Orchestrator is the public entry point for conversion tasks.
type Orchestrator struct {
	cfg      *config.Config
	registry *task.Registry
	runner   *runner.Client
	archiver Archiver
	logger   *slog.Logger
}

// New constructs an orchestrator. The archiver may be nil when no history
// store is configured.
func New(cfg *config.Config, registry *task.Registry, runnerClient *runner.Client, archiver Archiver, logger *slog.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if registry == nil {
		return nil, errors.New("registry required")
	}
	if runnerClient == nil {
		return nil, errors.New("runner client required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		runner:   runnerClient,
		archiver: archiver,
		logger:   logger.With(logging.String("component", "orchestrator")),
	}, nil
}

// Start validates the request, registers a task, and launches its driver. The
// returned snapshot is already in running state.
func (o *Orchestrator) Start(req Request) (task.Task, error) {
	if strings.TrimSpace(req.SourceID) == "" {
		return task.Task{}, fmt.Errorf("%w: source id required", format.ErrInvalidRequest)
	}
	if !req.Available {
		return task.Task{}, fmt.Errorf("%w: option %q not offered for this source", format.ErrQualityUnavailable, req.Quality)
	}

	quality, ok := format.ParseQuality(req.Quality)
	if !ok {
		return task.Task{}, fmt.Errorf("%w: unknown quality %q", format.ErrInvalidRequest, req.Quality)
	}
	available := make([]format.Quality, 0, len(req.AvailableQualities))
	for _, label := range req.AvailableQualities {
		if parsed, ok := format.ParseQuality(label); ok {
			available = append(available, parsed)
		}
	}
	directive, err := format.Select(format.Request{
		Quality:            quality,
		AudioBitrateKbps:   req.AudioBitrateKbps,
		AvailableQualities: available,
	})
	if err != nil {
		return task.Task{}, err
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = task.StrategySimulated
	}
	if strategy == task.StrategyReal && strings.TrimSpace(req.SourceURL) == "" {
		return task.Task{}, fmt.Errorf("%w: source url required for conversion", format.ErrInvalidRequest)
	}

	source := task.Source{ID: req.SourceID, Title: req.Title, DurationSeconds: req.DurationSeconds}
	output := task.Output{
		Quality:          string(directive.Quality),
		Container:        directive.Container,
		AudioBitrateKbps: directive.AudioBitrateKbps,
	}

	created := o.registry.Create(source, output, strategy, o.estimateTotal(req))
	running, _, err := o.registry.Transition(created.ID, task.StatusRunning, func(t *task.Task) {
		if strategy == task.StrategyReal {
			// The preparing milestone holds until the driver hands the
			// source to the external tool.
			t.Phase = PhasePreparing
		}
	})
	if err != nil {
		o.registry.Remove(created.ID)
		return task.Task{}, err
	}

	switch strategy {
	case task.StrategyReal:
		err = o.startReal(running, directive, req.SourceURL)
	default:
		err = o.startSimulated(running)
	}
	if err != nil {
		o.registry.Remove(created.ID)
		return task.Task{}, err
	}

	o.logger.Info("task started",
		logging.String(logging.FieldTaskID, running.ID),
		logging.String("source_id", req.SourceID),
		logging.String("quality", string(directive.Quality)),
		logging.String("strategy", string(strategy)))
	return running, nil
}

// Get returns a task snapshot.
func (o *Orchestrator) Get(id string) (task.Task, error) {
	snapshot, ok := o.registry.Get(id)
	if !ok {
		return task.Task{}, fmt.Errorf("%w: %s", task.ErrNotFound, id)
	}
	return snapshot, nil
}

// List returns snapshots of all registered tasks ordered by creation time.
func (o *Orchestrator) List() []task.Task {
	return o.registry.List()
}

// Pause stops a simulated task's ticker without losing accumulated bytes.
// Real-strategy tasks do not honor pause; the external tool runs to
// completion or cancellation.
func (o *Orchestrator) Pause(id string) (task.Task, error) {
	snapshot, ok := o.registry.Get(id)
	if !ok {
		return task.Task{}, fmt.Errorf("%w: %s", task.ErrNotFound, id)
	}
	if !snapshot.Strategy.Pausable() {
		return task.Task{}, fmt.Errorf("%w: %s strategy does not support pause", task.ErrInvalidTransition, snapshot.Strategy)
	}
	paused, driver, err := o.registry.Transition(id, task.StatusPaused, nil)
	if err != nil {
		return task.Task{}, err
	}
	driver.Wait()
	o.logger.Info("task paused", logging.String(logging.FieldTaskID, id))
	return paused, nil
}

// Resume restarts the ticker of a paused simulated task.
func (o *Orchestrator) Resume(id string) (task.Task, error) {
	snapshot, ok := o.registry.Get(id)
	if !ok {
		return task.Task{}, fmt.Errorf("%w: %s", task.ErrNotFound, id)
	}
	if !snapshot.Strategy.Pausable() {
		return task.Task{}, fmt.Errorf("%w: %s strategy does not support resume", task.ErrInvalidTransition, snapshot.Strategy)
	}
	resumed, driver, err := o.registry.Transition(id, task.StatusRunning, nil)
	if err != nil {
		return task.Task{}, err
	}
	driver.Wait()
	if err := o.startSimulated(resumed); err != nil {
		return task.Task{}, err
	}
	o.logger.Info("task resumed", logging.String(logging.FieldTaskID, id))
	return resumed, nil
}

// Cancel destroys a task from any non-terminal state: the driver is cancelled
// and joined, the external process (if any) is terminated through context
// cancellation, every scratch file is removed, and only then is the registry
// entry deleted.
func (o *Orchestrator) Cancel(id string) error {
	snapshot, ok := o.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", task.ErrNotFound, id)
	}
	if snapshot.Status.IsTerminal() {
		return fmt.Errorf("%w: cancel in %s", task.ErrInvalidTransition, snapshot.Status)
	}

	driver := o.registry.DetachDriver(id)
	driver.Wait()
	o.runner.Cleanup(snapshot.WorkToken)
	o.registry.Remove(id)
	o.logger.Info("task cancelled", logging.String(logging.FieldTaskID, id))
	return nil
}

// ResultInfo describes the stream returned by OpenResult.
type ResultInfo struct {
	Filename    string
	ContentType string
	Size        int64
}

// OpenResult returns the produced file of a completed task as a byte stream.
// Closing the stream deletes the backing file; the result can be fetched at
// most once.
func (o *Orchestrator) OpenResult(id string) (io.ReadCloser, ResultInfo, error) {
	snapshot, ok := o.registry.Get(id)
	if !ok {
		return nil, ResultInfo{}, fmt.Errorf("%w: %s", task.ErrNotFound, id)
	}
	if snapshot.Status != task.StatusCompleted {
		return nil, ResultInfo{}, fmt.Errorf("%w: result unavailable in %s", task.ErrInvalidTransition, snapshot.Status)
	}
	if snapshot.ResultPath == "" {
		return nil, ResultInfo{}, fmt.Errorf("%w: task %s produced no file", task.ErrNotFound, id)
	}

	file, err := os.Open(snapshot.ResultPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// The file was already consumed by an earlier fetch.
			return nil, ResultInfo{}, fmt.Errorf("%w: result for task %s already retrieved", task.ErrNotFound, id)
		}
		return nil, ResultInfo{}, fmt.Errorf("open result: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, ResultInfo{}, fmt.Errorf("stat result: %w", err)
	}

	directive := format.Directive{Quality: format.Quality(snapshot.Output.Quality), Container: snapshot.Output.Container}
	info := ResultInfo{
		Filename:    Filename(snapshot.Source.Title, directive.Extension()),
		ContentType: directive.ContentType(),
		Size:        stat.Size(),
	}
	stream := &deleteOnClose{file: file, path: snapshot.ResultPath, logger: o.logger}
	return stream, info, nil
}

// RunSweeper periodically removes terminal tasks past the retention window,
// archives them, and deletes any scratch files they left behind. Blocks until
// the context is done.
func (o *Orchestrator) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.SweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs one retention sweep pass.
func (o *Orchestrator) SweepOnce(ctx context.Context) {
	swept := o.registry.SweepTerminal(o.cfg.TaskRetention())
	for _, t := range swept {
		o.runner.Cleanup(t.WorkToken)
		if o.archiver != nil {
			if err := o.archiver.Record(ctx, t); err != nil {
				o.logger.Warn("history archive failed",
					logging.String(logging.FieldTaskID, t.ID), logging.Error(err))
			}
		}
		o.logger.Info("task swept",
			logging.String(logging.FieldTaskID, t.ID),
			logging.String("status", string(t.Status)))
	}
}

func (o *Orchestrator) estimateTotal(req Request) int64 {
	if req.TotalBytesEstimate > 0 {
		return req.TotalBytesEstimate
	}
	base := o.cfg.Tasks.BaseSpeedBytes
	if req.DurationSeconds > 0 && base > 0 {
		return req.DurationSeconds * base
	}
	return defaultTotalBytes
}

const defaultTotalBytes = 16 << 20

// deleteOnClose removes the backing file once the stream is closed. Removal
// failures are logged and swallowed; the stream already served its bytes.
type deleteOnClose struct {
	file   *os.File
	path   string
	logger *slog.Logger
}

func (d *deleteOnClose) Read(p []byte) (int, error) {
	return d.file.Read(p)
}

func (d *deleteOnClose) Close() error {
	err := d.file.Close()
	if removeErr := os.Remove(d.path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		d.logger.Warn("result file removal failed", logging.String("path", d.path), logging.Error(removeErr))
	}
	return err
}
