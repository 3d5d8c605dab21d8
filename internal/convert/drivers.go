package convert

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"fetchmill/internal/format"
	"fetchmill/internal/logging"
	"fetchmill/internal/progress"
	"fetchmill/internal/runner"
	"fetchmill/internal/task"
)

// Coarse phase labels reported by the real driver. The external tool gives no
// byte-level signal, so milestones replace a smooth percentage.
const (
	PhasePreparing    = "preparing"
	PhaseTransferring = "transferring"
	PhaseComplete     = "complete"
)

// startSimulated binds a ticking driver that advances the byte counters by a
// bounded randomized increment each interval. The driver checks status through
// UpdateProgress on every tick and self-terminates as soon as the task leaves
// running or is removed.
func (o *Orchestrator) startSimulated(t task.Task) error {
	ctx, cancel := context.WithCancel(context.Background())
	driver := task.NewDriver(cancel)
	if err := o.registry.BindDriver(t.ID, driver); err != nil {
		cancel()
		return err
	}

	interval := o.cfg.TickInterval()
	base := o.cfg.Tasks.BaseSpeedBytes
	if base <= 0 {
		base = 512 << 10
	}

	go func() {
		defer driver.Finish()

		downloaded := t.Progress.DownloadedBytes
		window := progress.NewSpeedWindow(0)
		window.Observe(time.Now(), downloaded)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				// Between base/2 and 3*base/2 per tick, scaled to the
				// interval, so speed hovers around the configured base.
				perTick := base * int64(interval) / int64(time.Second)
				if perTick <= 0 {
					perTick = 1
				}
				downloaded += perTick/2 + rand.Int64N(perTick+1)
				window.Observe(now, downloaded)

				updated, err := o.registry.UpdateProgress(t.ID, downloaded, window.BytesPerSecond())
				if err != nil {
					return
				}
				if updated.Progress.TotalBytes > 0 && updated.Progress.DownloadedBytes >= updated.Progress.TotalBytes {
					if _, _, err := o.registry.Transition(t.ID, task.StatusCompleted, nil); err == nil {
						o.logger.Info("simulated task completed",
							logging.String(logging.FieldTaskID, t.ID))
					}
					return
				}
			}
		}
	}()
	return nil
}

// startReal binds a supervised driver that runs the external tool off the
// request path. Cancellation propagates through the context into process
// termination; the runner guarantees scratch cleanup on every exit.
func (o *Orchestrator) startReal(t task.Task, directive format.Directive, sourceURL string) error {
	ctx, cancel := context.WithCancel(context.Background())
	driver := task.NewDriver(cancel)
	if err := o.registry.BindDriver(t.ID, driver); err != nil {
		cancel()
		return err
	}

	go func() {
		defer driver.Finish()

		_ = o.registry.SetPhase(t.ID, PhaseTransferring)
		result, err := o.runner.Convert(ctx, sourceURL, directive, t.WorkToken)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				// Cancellation owns the lifecycle from here; the entry is
				// being removed by the caller.
				return
			}
			reason := failureReason(err)
			if _, _, terr := o.registry.Transition(t.ID, task.StatusFailed, func(failed *task.Task) {
				failed.Reason = reason
			}); terr == nil {
				o.logger.Error("conversion failed",
					logging.String(logging.FieldTaskID, t.ID), logging.Error(err))
			}
			return
		}

		_, _, err = o.registry.Transition(t.ID, task.StatusCompleted, func(done *task.Task) {
			done.ResultPath = result.Path
			done.Phase = PhaseComplete
			done.Progress.TotalBytes = result.Size
			done.Progress.DownloadedBytes = result.Size
		})
		if err != nil {
			// The task was cancelled while the tool was finishing; the file
			// must not outlive the entry.
			o.runner.Cleanup(t.WorkToken)
			return
		}
		o.logger.Info("conversion completed",
			logging.String(logging.FieldTaskID, t.ID),
			logging.String("path", result.Path),
			logging.Int64("size", result.Size))
	}()
	return nil
}

// failureReason maps a runner error onto the task's terminal failure reason.
func failureReason(err error) string {
	switch {
	case errors.Is(err, runner.ErrTimeout):
		return fmt.Sprintf("timeout: %v", err)
	case errors.Is(err, runner.ErrProcessFailure):
		return fmt.Sprintf("process failure: %v", err)
	default:
		return err.Error()
	}
}
