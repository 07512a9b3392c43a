package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by Advance instead of wall time. Tasks fire
// synchronously on the goroutine calling Advance.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks map[int]*manualTask
}

type manualTask struct {
	id     int
	next   time.Duration
	period time.Duration // zero for one-shot tasks
	fn     func()
	owner  *Manual
}

// ManualEpoch is the wall time a Manual clock reports before any Advance.
var ManualEpoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewManual creates a manual scheduler at elapsed time zero.
func NewManual() *Manual {
	return &Manual{tasks: make(map[int]*manualTask)}
}

// Every registers a recurring task.
func (m *Manual) Every(d time.Duration, fn func()) Handle {
	return m.add(d, d, fn)
}

// After registers a one-shot task.
func (m *Manual) After(d time.Duration, fn func()) Handle {
	return m.add(d, 0, fn)
}

func (m *Manual) add(d, period time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{id: m.seq, next: m.now + d, period: period, fn: fn, owner: m}
	m.tasks[t.id] = t
	return t
}

// Pending returns the number of registered tasks that have not been cancelled or completed.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Now returns ManualEpoch plus the time advanced so far. Inside a task it
// reports the task's due time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ManualEpoch.Add(m.now)
}

// Advance moves the clock forward by d and runs every task that falls due, in due order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		due := m.dueLocked(target)
		if due == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = due.next
		if due.period > 0 {
			due.next += due.period
		} else {
			delete(m.tasks, due.id)
		}
		fn := due.fn
		m.mu.Unlock()
		fn()
	}
}

func (m *Manual) dueLocked(target time.Duration) *manualTask {
	var due []*manualTask
	for _, t := range m.tasks {
		if t.next <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].next == due[j].next {
			return due[i].id < due[j].id
		}
		return due[i].next < due[j].next
	})
	return due[0]
}

func (t *manualTask) Cancel() {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	delete(t.owner.tasks, t.id)
}
