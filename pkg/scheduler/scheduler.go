// Package scheduler registers recurring and one-shot tasks that can be cancelled
// when the owning component is torn down.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handle cancels a scheduled task. Cancel is idempotent.
type Handle interface {
	Cancel()
}

// Scheduler schedules tasks on a clock.
type Scheduler interface {
	// Every runs fn every d until the returned handle is cancelled.
	Every(d time.Duration, fn func()) Handle
	// After runs fn once after d unless cancelled first.
	After(d time.Duration, fn func()) Handle
}

// Ticker is a Scheduler backed by time.Ticker goroutines.
type Ticker struct {
	logger *zap.Logger
}

// NewTicker creates a wall-clock scheduler.
func NewTicker(logger *zap.Logger) *Ticker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ticker{logger: logger}
}

// Every starts a ticker loop for fn.
func (t *Ticker) Every(d time.Duration, fn func()) Handle {
	task := newTask()
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-task.ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	t.logger.Debug("scheduled recurring task", zap.Duration("interval", d))
	return task
}

// After starts a one-shot timer for fn.
func (t *Ticker) After(d time.Duration, fn func()) Handle {
	task := newTask()
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-task.ctx.Done():
		case <-timer.C:
			fn()
		}
	}()
	return task
}

type task struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func newTask() *task {
	ctx, cancel := context.WithCancel(context.Background())
	return &task{ctx: ctx, cancel: cancel}
}

// Cancel stops the task. It does not wait for an fn already running, so it is
// safe to call from inside fn.
func (t *task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel == nil {
		return
	}
	t.cancel()
	t.cancel = nil
}
