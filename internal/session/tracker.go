// Package session tracks per-session processing phase for the gateway and
// reports transitions, run attempts, and stuck sessions on the diagnostic
// bus.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/messixukejia/openclaw/internal/config"
	"github.com/messixukejia/openclaw/internal/diag"
	"github.com/messixukejia/openclaw/internal/logging"
)

type state struct {
	id       string
	phase    diag.Phase
	since    time.Time
	depth    int
	attempts map[string]int
}

// Tracker owns the session phase table. All transitions go through it so the
// emitted session.state events always carry the true previous phase.
type Tracker struct {
	cfg *config.Provider
	bus *diag.Bus
	log zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*state
}

// NewTracker constructs an empty tracker.
func NewTracker(cfg *config.Provider, bus *diag.Bus) *Tracker {
	return &Tracker{
		cfg:      cfg,
		bus:      bus,
		log:      logging.WithComponent("session"),
		sessions: make(map[string]*state),
	}
}

func (t *Tracker) get(key string) *state {
	s, ok := t.sessions[key]
	if !ok {
		s = &state{
			id:       uuid.NewString(),
			phase:    diag.PhaseIdle,
			since:    time.Now(),
			attempts: make(map[string]int),
		}
		t.sessions[key] = s
	}
	return s
}

// Transition moves the session at key into phase. A transition into the
// current phase is a no-op and emits nothing.
func (t *Tracker) Transition(key string, phase diag.Phase, reason string, queueDepth int) {
	t.mu.Lock()
	s := t.get(key)
	if s.phase == phase {
		t.mu.Unlock()
		return
	}
	prev := s.phase
	s.phase = phase
	s.since = time.Now()
	s.depth = queueDepth
	id := s.id
	t.mu.Unlock()

	if diag.Enabled(t.cfg.Current()) {
		t.bus.Emit(&diag.SessionState{
			State:      phase,
			SessionKey: key,
			SessionID:  id,
			PrevState:  prev,
			Reason:     reason,
			QueueDepth: queueDepth,
		})
	}
}

// RecordAttempt notes the start (or restart) of run runID for the session at
// key and emits run.attempt with the attempt count so far.
func (t *Tracker) RecordAttempt(key, runID string) int {
	t.mu.Lock()
	s := t.get(key)
	s.attempts[runID]++
	attempt := s.attempts[runID]
	id := s.id
	t.mu.Unlock()

	if diag.Enabled(t.cfg.Current()) {
		t.bus.Emit(&diag.RunAttempt{
			RunID:      runID,
			Attempt:    attempt,
			SessionKey: key,
			SessionID:  id,
		})
	}
	return attempt
}

// Counts returns how many sessions are processing and waiting.
func (t *Tracker) Counts() (active, waiting int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.sessions {
		switch s.phase {
		case diag.PhaseProcessing:
			active++
		case diag.PhaseWaiting:
			waiting++
		}
	}
	return active, waiting
}

// Snapshot is one session's current phase for the ops API.
type Snapshot struct {
	SessionKey string     `json:"sessionKey"`
	SessionID  string     `json:"sessionId"`
	State      diag.Phase `json:"state"`
	SinceMS    int64      `json:"sinceMs"`
	QueueDepth int        `json:"queueDepth"`
}

// Snapshots lists every tracked session.
func (t *Tracker) Snapshots() []Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Snapshot, 0, len(t.sessions))
	for key, s := range t.sessions {
		out = append(out, Snapshot{
			SessionKey: key,
			SessionID:  s.id,
			State:      s.phase,
			SinceMS:    time.Since(s.since).Milliseconds(),
			QueueDepth: s.depth,
		})
	}
	return out
}

// Sweep emits session.stuck for every session pinned in a non-idle phase
// longer than stuckAfter.
func (t *Tracker) Sweep(stuckAfter time.Duration) {
	if !diag.Enabled(t.cfg.Current()) {
		return
	}
	type stuck struct {
		key   string
		id    string
		phase diag.Phase
		age   time.Duration
		depth int
	}
	var found []stuck
	t.mu.Lock()
	for key, s := range t.sessions {
		if s.phase == diag.PhaseIdle {
			continue
		}
		if age := time.Since(s.since); age >= stuckAfter {
			found = append(found, stuck{key: key, id: s.id, phase: s.phase, age: age, depth: s.depth})
		}
	}
	t.mu.Unlock()

	for _, f := range found {
		t.log.Warn().Str("session_key", f.key).Str("state", string(f.phase)).Dur("age", f.age).Msg("session stuck")
		t.bus.Emit(&diag.SessionStuck{
			State:      f.phase,
			AgeMS:      f.age.Milliseconds(),
			SessionKey: f.key,
			SessionID:  f.id,
			QueueDepth: f.depth,
		})
	}
}

// Run sweeps periodically until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	interval := t.cfg.Current().SweepInterval.Std()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep(t.cfg.Current().StuckAfter.Std())
		}
	}
}
