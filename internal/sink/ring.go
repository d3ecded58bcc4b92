// Package sink provides the bus observers shipped with the daemon: a
// structured-log sink, an in-memory ring of recent events, a prometheus
// exporter, and a SQLite archiver. Each is an independent listener; the bus
// isolates their failures from each other and from producers.
package sink

import (
	"sync"

	"github.com/messixukejia/openclaw/internal/diag"
)

// Ring retains the most recent events for the ops API. Oldest entries are
// overwritten once capacity is reached.
type Ring struct {
	mu   sync.Mutex
	cap  int
	buf  []diag.Event
	next int
	full bool
}

// NewRing creates a ring holding up to capacity events.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 256
	}
	return &Ring{cap: capacity, buf: make([]diag.Event, capacity)}
}

// HandleEvent implements diag.Listener.
func (r *Ring) HandleEvent(ev diag.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = ev
	r.next = (r.next + 1) % r.cap
	if r.next == 0 {
		r.full = true
	}
}

// Recent returns the retained events, oldest first.
func (r *Ring) Recent() []diag.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]diag.Event, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]diag.Event, 0, r.cap)
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}

// Len returns the number of retained events.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return r.cap
	}
	return r.next
}
