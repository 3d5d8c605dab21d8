package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"fetchmill/internal/config"
	"fetchmill/internal/convert"
	"fetchmill/internal/deps"
	"fetchmill/internal/history"
	"fetchmill/internal/logging"
)

// Daemon coordinates the orchestrator, sweeper, and API server, and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	orchestrator *convert.Orchestrator
	archive      *history.Store

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	LockFilePath  string
	HistoryDBPath string
	TaskCounts    map[string]int
	Dependencies  []deps.Status
}

// New constructs a daemon. The history store may be nil when archiving is
// disabled.
func New(cfg *config.Config, orchestrator *convert.Orchestrator, archive *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || orchestrator == nil {
		return nil, errors.New("daemon requires config and orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "fetchmilld.lock")
	d := &Daemon{
		cfg:          cfg,
		logger:       logger.With(logging.String("component", "daemon")),
		orchestrator: orchestrator,
		archive:      archive,
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches the sweeper and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fetchmill daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.orchestrator.RunSweeper(runCtx)
	if d.archive != nil && d.cfg.History.Enabled {
		go d.runHistoryPruner(runCtx)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("fetchmill daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background work and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("fetchmill daemon stopped")
}

// Close stops the daemon and closes the history store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.archive.Close()
}

// Addr returns the API listen address once started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	counts := make(map[string]int)
	for _, t := range d.orchestrator.List() {
		counts[string(t.Status)]++
	}
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		LockFilePath:  d.lockPath,
		HistoryDBPath: d.archive.Path(),
		TaskCounts:    counts,
		Dependencies:  deps.CheckBinaries(deps.Required(d.cfg)),
	}
}

// runHistoryPruner drops archived rows past the configured retention on the
// same cadence as the registry sweep.
func (d *Daemon) runHistoryPruner(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.SweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := d.archive.Prune(ctx, d.cfg.HistoryRetention())
			if err != nil {
				d.logger.Warn("history prune failed", logging.Error(err))
				continue
			}
			if removed > 0 {
				d.logger.Info("history pruned", logging.Int64("removed", removed))
			}
		}
	}
}
