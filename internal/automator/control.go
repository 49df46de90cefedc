// File: internal/automator/control.go

// Package automator drives the on-page click loops: sending friend requests
// from a suggestions surface and cancelling previously sent ones. All DOM
// access goes through narrow interfaces so the loops can run against a live
// browser tab or against fixtures in tests.
package automator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
)

// ErrStopped is returned by a run that was ended through Control.Stop.
// Work done before the stop is still reported by the caller.
var ErrStopped = errors.New("automator: run stopped")

// pausePollInterval is how often a paused run re-checks its state.
const pausePollInterval = 200 * time.Millisecond

// Control is the shared pause/resume/stop handle for a long-running loop.
// All methods are safe for concurrent use; the loop itself calls checkpoint
// between actions.
type Control struct {
	mu     sync.Mutex
	phase  schemas.RunPhase
	stopCh chan struct{}
}

// NewControl returns a Control in the running state.
func NewControl() *Control {
	return &Control{phase: schemas.PhaseRunning, stopCh: make(chan struct{})}
}

// Pause suspends the loop at its next checkpoint. Pausing an already paused
// or stopped run is a no-op.
func (c *Control) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == schemas.PhaseRunning {
		c.phase = schemas.PhasePaused
	}
}

// Resume lifts a pause. Resuming a run that is not paused is a no-op.
func (c *Control) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == schemas.PhasePaused {
		c.phase = schemas.PhaseRunning
	}
}

// Stop ends the run at its next checkpoint. Stop wins over Pause: a paused
// run unblocks and exits. Stopping twice is a no-op.
func (c *Control) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == schemas.PhaseStopping {
		return
	}
	c.phase = schemas.PhaseStopping
	close(c.stopCh)
}

// Phase returns the current lifecycle phase.
func (c *Control) Phase() schemas.RunPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// checkpoint blocks while the run is paused and reports whether it should
// keep going. It returns ErrStopped after Stop and the context error after
// cancellation.
func (c *Control) checkpoint(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return ErrStopped
		default:
		}

		if c.Phase() != schemas.PhasePaused {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return ErrStopped
		case <-time.After(pausePollInterval):
		}
	}
}

// sleep waits for d unless the run is stopped or the context ends first.
func (c *Control) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopCh:
		return ErrStopped
	case <-time.After(d):
		return nil
	}
}
