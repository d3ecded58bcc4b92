// Package queue implements the per-lane bounded message queues feeding the
// gateway's processing workers. Lane activity is reported on the diagnostic
// bus when diagnostics are enabled.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/messixukejia/openclaw/internal/config"
	"github.com/messixukejia/openclaw/internal/diag"
	"github.com/messixukejia/openclaw/internal/logging"
)

// Message is one unit of work carried through a lane.
type Message struct {
	ID         string
	Source     string
	Channel    string
	ChatID     int64
	SessionKey string
	SessionID  string
	Payload    []byte
}

// Result reports how a handler finished with a message.
type Result struct {
	Outcome diag.Outcome
	Reason  string
	Err     error
}

// Handler processes one dequeued message.
type Handler func(ctx context.Context, msg Message) Result

type item struct {
	msg        Message
	enqueuedAt time.Time
}

type lane struct {
	name string
	ch   chan item
}

// Lanes is a set of named bounded queues sharing one handler. Lanes are
// created on first use; each gets its own worker pool.
type Lanes struct {
	cfg     *config.Provider
	bus     *diag.Bus
	handler Handler
	log     zerolog.Logger

	capacity int
	workers  int
	timeout  time.Duration

	mu      sync.Mutex
	lanes   map[string]*lane
	started bool
	ctx     context.Context
	wg      sync.WaitGroup
}

// New constructs the lane set. Capacity and worker count come from config at
// construction time; the diagnostics gate is re-read per operation so it can
// be toggled at runtime.
func New(cfg *config.Provider, bus *diag.Bus, handler Handler, timeout time.Duration) *Lanes {
	c := cfg.Current()
	return &Lanes{
		cfg:      cfg,
		bus:      bus,
		handler:  handler,
		log:      logging.WithComponent("queue"),
		capacity: c.QueueSize,
		workers:  c.WorkerCount,
		timeout:  timeout,
		lanes:    make(map[string]*lane),
	}
}

// Start makes the lane set accept work. Workers for each lane are spawned
// when the lane is first used.
func (l *Lanes) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.started = true
	l.ctx = ctx
}

// Enqueue places msg on the named lane without blocking. Returns false when
// the lane is full or the set has not been started.
func (l *Lanes) Enqueue(laneName string, msg Message) bool {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		l.log.Warn().Str("lane", laneName).Str("message_id", msg.ID).Msg("enqueue before start")
		return false
	}
	ln, ok := l.lanes[laneName]
	if !ok {
		ln = &lane{name: laneName, ch: make(chan item, l.capacity)}
		l.lanes[laneName] = ln
		for i := 0; i < l.workers; i++ {
			l.wg.Add(1)
			go l.worker(l.ctx, ln)
		}
	}
	l.mu.Unlock()

	select {
	case ln.ch <- item{msg: msg, enqueuedAt: time.Now()}:
	default:
		l.log.Warn().Str("lane", laneName).Str("message_id", msg.ID).Msg("lane full, dropping message")
		return false
	}

	if diag.Enabled(l.cfg.Current()) {
		depth := len(ln.ch)
		l.bus.Emit(&diag.LaneEnqueue{Lane: laneName, QueueSize: depth})
		l.bus.Emit(&diag.MessageQueued{
			Source:     msg.Source,
			SessionKey: msg.SessionKey,
			SessionID:  msg.SessionID,
			Channel:    msg.Channel,
			QueueDepth: depth,
		})
	}
	return true
}

// Depth returns the number of queued messages across all lanes.
func (l *Lanes) Depth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, ln := range l.lanes {
		total += len(ln.ch)
	}
	return total
}

// Stop waits for in-flight work to finish or ctx to expire. Queued items
// still in lanes are abandoned; this daemon offers no durable delivery.
func (l *Lanes) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (l *Lanes) worker(ctx context.Context, ln *lane) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-ln.ch:
			l.handle(ctx, ln, it)
		}
	}
}

func (l *Lanes) handle(ctx context.Context, ln *lane, it item) {
	enabled := diag.Enabled(l.cfg.Current())
	if enabled {
		l.bus.Emit(&diag.LaneDequeue{
			Lane:      ln.name,
			QueueSize: len(ln.ch),
			WaitMS:    time.Since(it.enqueuedAt).Milliseconds(),
		})
	}

	start := time.Now()
	res := l.runHandler(ctx, it.msg)
	if enabled {
		ev := &diag.MessageProcessed{
			Channel:    it.msg.Channel,
			Outcome:    res.Outcome,
			MessageID:  it.msg.ID,
			ChatID:     it.msg.ChatID,
			SessionKey: it.msg.SessionKey,
			SessionID:  it.msg.SessionID,
			DurationMS: time.Since(start).Milliseconds(),
			Reason:     res.Reason,
		}
		if res.Err != nil {
			ev.Error = res.Err.Error()
		}
		l.bus.Emit(ev)
	}
	if res.Err != nil {
		l.log.Error().Err(res.Err).Str("lane", ln.name).Str("message_id", it.msg.ID).Msg("message failed")
	}
}

func (l *Lanes) runHandler(ctx context.Context, msg Message) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Str("message_id", msg.ID).Msg("handler panic recovered")
			res = Result{Outcome: diag.OutcomeError, Reason: "handler panic"}
		}
	}()
	hctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.handler(hctx, msg)
}
