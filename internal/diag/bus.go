package diag

import (
	"reflect"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/messixukejia/openclaw/internal/logging"
)

// Listener receives every emitted event. Implementations with a comparable
// dynamic type (pointer receivers, typically) can be registered at most once;
// see Bus.Subscribe.
type Listener interface {
	HandleEvent(Event)
}

// ListenerFunc adapts a plain function to Listener. Func values carry no
// identity, so every ListenerFunc registration is a distinct subscription.
type ListenerFunc func(Event)

// HandleEvent calls f.
func (f ListenerFunc) HandleEvent(ev Event) { f(ev) }

type subscription struct {
	l Listener
}

// Bus is the shared diagnostic event bus. It holds the running sequence
// counter and the registered listeners; all mutation is serialized by an
// internal mutex, and dispatch runs outside the lock over a snapshot so
// listeners may re-enter Emit, Subscribe, or their own unsubscribe.
type Bus struct {
	id  string
	log zerolog.Logger

	mu   sync.Mutex
	seq  uint64
	subs []*subscription
}

// New constructs an empty bus with a random identifier used only for log
// correlation.
func New() *Bus {
	id := uuid.NewString()
	return &Bus{
		id:  id,
		log: logging.WithComponent("diag").With().Str("bus_id", id).Logger(),
	}
}

var (
	defaultOnce sync.Once
	defaultBus  *Bus
)

// Default returns the process-wide bus, constructing it on first use.
// Repeated calls from any package return the same instance. Application
// wiring should prefer an explicitly constructed bus; Default exists for
// code that has no injection path.
func Default() *Bus {
	defaultOnce.Do(func() { defaultBus = New() })
	return defaultBus
}

// ID returns the bus's diagnostic identifier.
func (b *Bus) ID() string { return b.id }

// Subscribe registers a listener and returns its unsubscribe function.
// Registering a comparable listener value that is already registered is a
// no-op: the original unsubscribe is returned and the listener is dispatched
// once per event. The unsubscribe function is idempotent and is a safe no-op
// after Reset. A listener registered mid-dispatch first sees the next event;
// there is no replay.
func (b *Bus) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if sameListener(s.l, l) {
			return b.removeFunc(s)
		}
	}
	s := &subscription{l: l}
	b.subs = append(b.subs, s)
	return b.removeFunc(s)
}

func (b *Bus) removeFunc(target *subscription) func() {
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s == target {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// sameListener reports whether a and b are the identical listener value.
// Uncomparable dynamic types (ListenerFunc, map-backed types) never match,
// so comparing them cannot panic and each registration stays distinct.
func sameListener(a, b Listener) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// ListenerCount returns the number of registered listeners.
func (b *Bus) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Emit enriches ev with the next sequence number and the current wall-clock
// timestamp, then dispatches it synchronously to every listener registered
// at this moment, in registration order. A listener panic is logged and
// swallowed; the remaining listeners still run and Emit always returns
// normally. Subscriptions changed by a listener take effect for subsequent
// emits only.
func (b *Bus) Emit(ev Event) {
	if ev == nil {
		return
	}
	b.mu.Lock()
	b.seq++
	h := ev.header()
	h.Kind = ev.EventKind()
	h.Sequence = b.seq
	h.TimestampMS = time.Now().UnixMilli()
	snapshot := make([]*subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	b.log.Info().
		Str("kind", string(h.Kind)).
		Uint64("seq", h.Sequence).
		Int("listeners", len(snapshot)).
		Msg("diagnostic event")

	for _, s := range snapshot {
		b.dispatch(s.l, ev)
	}
}

func (b *Bus) dispatch(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("kind", string(ev.EventKind())).
				Uint64("seq", ev.Seq()).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("diagnostic listener panicked")
		}
	}()
	l.HandleEvent(ev)
}

// Reset empties the listener set and rewinds the sequence counter so the
// next Emit assigns sequence 1. Intended for test isolation only.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = nil
	b.seq = 0
}
