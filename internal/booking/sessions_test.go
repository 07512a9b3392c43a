package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ramsoftware/website-backend/pkg/kvstore"
	"github.com/ramsoftware/website-backend/pkg/scheduler"
)

type sessionFixture struct {
	sessions *Sessions
	sched    *scheduler.Manual
	opened   map[string]int
}

func newSessionFixture(opts SessionOptions) *sessionFixture {
	f := &sessionFixture{sched: scheduler.NewManual(), opened: make(map[string]int)}
	store := kvstore.NewMemory()
	opts.Scheduler = f.sched
	opts.Now = f.sched.Now
	f.sessions = NewSessions(func(ctx context.Context, clientID string) *Wizard {
		f.opened[clientID]++
		return New(ctx, Options{
			Drafts:    kvstore.NewScoped(store, clientID),
			Scheduler: f.sched,
			Now:       fixedNow,
		})
	}, opts, nil)
	return f
}

func TestSessionsEvictIdle(t *testing.T) {
	f := newSessionFixture(SessionOptions{IdleTimeout: 10 * time.Minute})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.sessions.Get(ctx, fmt.Sprintf("client-%d", i))
	}
	if err := f.sessions.Get(ctx, "client-0").Set(FieldFullName, "Ada Lovelace"); err != nil {
		t.Fatal(err)
	}
	// one sweep plus one autosave per form
	if got := f.sched.Pending(); got != 4 {
		t.Fatalf("Pending = %d, want 4", got)
	}

	f.sched.Advance(6 * time.Minute)
	f.sessions.Get(ctx, "client-1")
	f.sched.Advance(6 * time.Minute)
	if got := f.sessions.Len(); got != 1 {
		t.Fatalf("Len = %d after idle sweep, want 1", got)
	}
	if got := f.sched.Pending(); got != 2 {
		t.Errorf("Pending = %d, want 2", got)
	}

	f.sched.Advance(20 * time.Minute)
	if got := f.sessions.Len(); got != 0 {
		t.Fatalf("Len = %d, want 0", got)
	}
	if got := f.sched.Pending(); got != 1 {
		t.Errorf("autosave still scheduled for evicted forms: Pending = %d", got)
	}

	// Eviction saved the draft, so the form comes back.
	if got := f.sessions.Get(ctx, "client-0").Get(FieldFullName); got != "Ada Lovelace" {
		t.Errorf("restored fullName = %q", got)
	}
	if f.opened["client-0"] != 2 {
		t.Errorf("client-0 opened %d times", f.opened["client-0"])
	}

	f.sessions.CloseAll(ctx)
	if got := f.sched.Pending(); got != 0 {
		t.Errorf("Pending after CloseAll = %d", got)
	}
}

func TestSessionsCapClosesLeastRecentlyUsed(t *testing.T) {
	f := newSessionFixture(SessionOptions{MaxOpen: 2})
	ctx := context.Background()

	a := f.sessions.Get(ctx, "a")
	f.sched.Advance(time.Second)
	f.sessions.Get(ctx, "b")
	f.sched.Advance(time.Second)
	f.sessions.Get(ctx, "a")
	f.sched.Advance(time.Second)
	f.sessions.Get(ctx, "c")

	if got := f.sessions.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
	if f.sessions.Get(ctx, "a") != a {
		t.Error("recently used form was closed")
	}
	if f.sessions.Get(ctx, "b"); f.opened["b"] != 2 {
		t.Errorf("least recently used form kept open: opened %d", f.opened["b"])
	}
	// no sweep without an idle timeout; one autosave per open form
	if got := f.sched.Pending(); got != 2 {
		t.Errorf("Pending = %d, want 2", got)
	}
}
