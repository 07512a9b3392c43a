package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ramsoftware/website-backend/pkg/scheduler"
)

const closeTimeout = 5 * time.Second

// Factory builds the wizard for a client, restoring that client's draft.
type Factory func(ctx context.Context, clientID string) *Wizard

// SessionOptions bounds the open forms. Closing a form saves its draft, so
// a visitor who returns later gets the form back from the draft store.
type SessionOptions struct {
	// IdleTimeout closes forms not touched for this long. Zero disables it.
	IdleTimeout time.Duration
	// MaxOpen caps the open forms; the least recently used one is closed
	// to make room. Zero means no cap.
	MaxOpen int
	// Scheduler drives the idle sweep. Nil disables it.
	Scheduler scheduler.Scheduler
	// SweepEvery defaults to half of IdleTimeout.
	SweepEvery time.Duration
	Now        func() time.Time
}

type session struct {
	wizard   *Wizard
	lastSeen time.Time
}

// Sessions holds one open wizard per client (thread-safe).
type Sessions struct {
	mu      sync.Mutex
	open    map[string]*session
	factory Factory
	opts    SessionOptions
	sweeper scheduler.Handle
	logger  *zap.Logger
}

// NewSessions creates an empty registry and starts the idle sweep.
func NewSessions(factory Factory, opts SessionOptions, logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = opts.IdleTimeout / 2
	}
	s := &Sessions{open: make(map[string]*session), factory: factory, opts: opts, logger: logger}
	if opts.Scheduler != nil && opts.IdleTimeout > 0 {
		s.sweeper = opts.Scheduler.Every(opts.SweepEvery, s.sweep)
	}
	return s
}

// Get returns the client's wizard, opening it on first use.
func (s *Sessions) Get(ctx context.Context, clientID string) *Wizard {
	s.mu.Lock()
	now := s.opts.Now()
	if sess := s.open[clientID]; sess != nil {
		sess.lastSeen = now
		s.mu.Unlock()
		return sess.wizard
	}

	var evicted map[string]*Wizard
	if s.opts.MaxOpen > 0 && len(s.open) >= s.opts.MaxOpen {
		evicted = s.evictLocked(s.lruLocked(len(s.open) - s.opts.MaxOpen + 1))
	}
	w := s.factory(ctx, clientID)
	s.open[clientID] = &session{wizard: w, lastSeen: now}
	s.mu.Unlock()

	s.logger.Debug("booking session opened", zap.String("client_id", clientID))
	s.closeAll(evicted, "capacity")
	return w
}

// lruLocked returns the n least recently used client ids.
func (s *Sessions) lruLocked(n int) []string {
	ids := make([]string, 0, len(s.open))
	for id := range s.open {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.open[ids[i]].lastSeen.Before(s.open[ids[j]].lastSeen)
	})
	if n > len(ids) {
		n = len(ids)
	}
	return ids[:n]
}

func (s *Sessions) evictLocked(ids []string) map[string]*Wizard {
	out := make(map[string]*Wizard, len(ids))
	for _, id := range ids {
		out[id] = s.open[id].wizard
		delete(s.open, id)
	}
	return out
}

func (s *Sessions) sweep() {
	s.mu.Lock()
	cutoff := s.opts.Now().Add(-s.opts.IdleTimeout)
	var idle []string
	for id, sess := range s.open {
		if !sess.lastSeen.After(cutoff) {
			idle = append(idle, id)
		}
	}
	evicted := s.evictLocked(idle)
	s.mu.Unlock()
	s.closeAll(evicted, "idle")
}

func (s *Sessions) closeAll(wizards map[string]*Wizard, reason string) {
	for id, w := range wizards {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := w.Close(ctx); err != nil {
			s.logger.Warn("close booking session", zap.String("client_id", id), zap.Error(err))
		}
		cancel()
		s.logger.Debug("booking session evicted", zap.String("client_id", id), zap.String("reason", reason))
	}
}

// Close tears down the client's wizard: a final save, then autosave stops.
func (s *Sessions) Close(ctx context.Context, clientID string) error {
	s.mu.Lock()
	sess := s.open[clientID]
	delete(s.open, clientID)
	s.mu.Unlock()
	if sess == nil {
		return nil
	}
	s.logger.Debug("booking session closed", zap.String("client_id", clientID))
	return sess.wizard.Close(ctx)
}

// CloseAll stops the idle sweep and tears down every open wizard.
func (s *Sessions) CloseAll(ctx context.Context) {
	if s.sweeper != nil {
		s.sweeper.Cancel()
	}
	s.mu.Lock()
	open := s.open
	s.open = make(map[string]*session)
	s.mu.Unlock()
	for id, sess := range open {
		if err := sess.wizard.Close(ctx); err != nil {
			s.logger.Warn("close booking session", zap.String("client_id", id), zap.Error(err))
		}
	}
}

// Len returns the number of open wizards.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}
