package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManualEvery(t *testing.T) {
	m := NewManual()
	var n int
	h := m.Every(30*time.Second, func() { n++ })

	m.Advance(29 * time.Second)
	if n != 0 {
		t.Fatalf("fired early: %d", n)
	}
	m.Advance(time.Second)
	if n != 1 {
		t.Fatalf("n = %d, want 1", n)
	}
	m.Advance(95 * time.Second)
	if n != 4 {
		t.Fatalf("n = %d, want 4", n)
	}

	h.Cancel()
	m.Advance(time.Hour)
	if n != 4 {
		t.Errorf("fired after cancel: %d", n)
	}
	if m.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", m.Pending())
	}
}

func TestManualAfter(t *testing.T) {
	m := NewManual()
	var order []string
	m.After(2*time.Second, func() { order = append(order, "b") })
	m.After(time.Second, func() { order = append(order, "a") })
	cancelled := m.After(time.Second, func() { order = append(order, "x") })
	cancelled.Cancel()

	m.Advance(5 * time.Second)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("order = %v, want [a b]", order)
	}
	if m.Pending() != 0 {
		t.Errorf("one-shot tasks still pending: %d", m.Pending())
	}
}

func TestManualCancelFromCallback(t *testing.T) {
	m := NewManual()
	var n int
	var h Handle
	h = m.Every(time.Second, func() {
		n++
		h.Cancel()
	})
	m.Advance(10 * time.Second)
	if n != 1 {
		t.Errorf("n = %d, want 1", n)
	}
}

func TestTickerEveryAndCancel(t *testing.T) {
	s := NewTicker(nil)
	var n atomic.Int32
	h := s.Every(5*time.Millisecond, func() { n.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for n.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Cancel()
	h.Cancel()
	if n.Load() < 2 {
		t.Fatalf("ticker fired %d times", n.Load())
	}
	time.Sleep(20 * time.Millisecond)
	after := n.Load()
	time.Sleep(30 * time.Millisecond)
	if n.Load() != after {
		t.Errorf("ticker kept firing after cancel")
	}
}

func TestTickerAfterCancelled(t *testing.T) {
	s := NewTicker(nil)
	var fired atomic.Bool
	h := s.After(20*time.Millisecond, func() { fired.Store(true) })
	h.Cancel()
	time.Sleep(50 * time.Millisecond)
	if fired.Load() {
		t.Error("cancelled one-shot fired")
	}
}

func TestManualNow(t *testing.T) {
	m := NewManual()
	if !m.Now().Equal(ManualEpoch) {
		t.Fatalf("Now = %v", m.Now())
	}
	var seen time.Time
	m.After(10*time.Second, func() { seen = m.Now() })
	m.Advance(time.Minute)
	if want := ManualEpoch.Add(10 * time.Second); !seen.Equal(want) {
		t.Errorf("Now inside task = %v, want %v", seen, want)
	}
	if want := ManualEpoch.Add(time.Minute); !m.Now().Equal(want) {
		t.Errorf("Now = %v, want %v", m.Now(), want)
	}
}
