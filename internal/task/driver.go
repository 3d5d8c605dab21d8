package task

import "context"

// Driver is the handle for the single background goroutine allowed to mutate
// a task. The registry enforces at most one bound driver per task; rebinding
// requires the previous driver to be cancelled and joined first.
type Driver struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDriver wraps a cancellation function for a driver goroutine. The
// goroutine must call Finish on every exit path.
func NewDriver(cancel context.CancelFunc) *Driver {
	return &Driver{cancel: cancel, done: make(chan struct{})}
}

// Cancel requests the driver goroutine to stop. Safe to call repeatedly.
func (d *Driver) Cancel() {
	if d == nil || d.cancel == nil {
		return
	}
	d.cancel()
}

// Finish marks the driver goroutine as exited. Must be called exactly once,
// typically via defer at the top of the goroutine.
func (d *Driver) Finish() {
	if d == nil {
		return
	}
	close(d.done)
}

// Wait blocks until the driver goroutine has exited. Joining before registry
// removal is what rules out a stale tick resurrecting a removed task.
func (d *Driver) Wait() {
	if d == nil {
		return
	}
	<-d.done
}
