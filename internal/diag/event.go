// Package diag implements the process-wide diagnostic event bus: a typed
// publish/subscribe facility that stamps events with a monotonic sequence
// number and a wall-clock timestamp and fans them out synchronously to the
// registered listeners.
package diag

import "time"

// Kind discriminates the event variants.
type Kind string

const (
	KindModelUsage       Kind = "model.usage"
	KindWebhookReceived  Kind = "webhook.received"
	KindWebhookProcessed Kind = "webhook.processed"
	KindWebhookError     Kind = "webhook.error"
	KindMessageQueued    Kind = "message.queued"
	KindMessageProcessed Kind = "message.processed"
	KindSessionState     Kind = "session.state"
	KindSessionStuck     Kind = "session.stuck"
	KindLaneEnqueue      Kind = "queue.lane.enqueue"
	KindLaneDequeue      Kind = "queue.lane.dequeue"
	KindRunAttempt       Kind = "run.attempt"
	KindHeartbeat        Kind = "diagnostic.heartbeat"
)

func (k Kind) String() string { return string(k) }

// Kinds lists every event kind.
func Kinds() []Kind {
	return []Kind{
		KindModelUsage,
		KindWebhookReceived,
		KindWebhookProcessed,
		KindWebhookError,
		KindMessageQueued,
		KindMessageProcessed,
		KindSessionState,
		KindSessionStuck,
		KindLaneEnqueue,
		KindLaneDequeue,
		KindRunAttempt,
		KindHeartbeat,
	}
}

// Header carries the fields the bus assigns at emission time. Producers
// leave it zero; Emit fills it in.
type Header struct {
	Kind        Kind   `json:"kind"`
	Sequence    uint64 `json:"sequence"`
	TimestampMS int64  `json:"timestamp"`
}

// Seq returns the bus-assigned sequence number.
func (h *Header) Seq() uint64 { return h.Sequence }

// Time returns the enrichment timestamp.
func (h *Header) Time() time.Time { return time.UnixMilli(h.TimestampMS) }

// header anchors the Event interface to this package: the variant set is
// closed, so a malformed event is a compile error rather than a runtime one.
func (h *Header) header() *Header { return h }

// Event is one enriched diagnostic event. Only the variants declared in this
// package implement it.
type Event interface {
	EventKind() Kind
	Seq() uint64
	Time() time.Time
	header() *Header
}

// Outcome classifies how a queued message finished.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeError     Outcome = "error"
)

// Phase is a session's processing state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseProcessing Phase = "processing"
	PhaseWaiting    Phase = "waiting"
)

// TokenUsage counts tokens for one model call.
type TokenUsage struct {
	Input      int64 `json:"input"`
	Output     int64 `json:"output"`
	CacheRead  int64 `json:"cacheRead,omitempty"`
	CacheWrite int64 `json:"cacheWrite,omitempty"`
}

// ContextWindow reports context-window occupancy for one model call.
type ContextWindow struct {
	Limit int64 `json:"limit"`
	Used  int64 `json:"used"`
}

// WebhookCounters are the totals reported by a heartbeat.
type WebhookCounters struct {
	Received  int64 `json:"received"`
	Processed int64 `json:"processed"`
	Errors    int64 `json:"errors"`
}

// ModelUsage reports token consumption and cost for one model call.
type ModelUsage struct {
	Header
	Usage      TokenUsage     `json:"usage"`
	SessionKey string         `json:"sessionKey,omitempty"`
	SessionID  string         `json:"sessionId,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Provider   string         `json:"provider,omitempty"`
	Model      string         `json:"model,omitempty"`
	Context    *ContextWindow `json:"context,omitempty"`
	CostUSD    float64        `json:"costUsd,omitempty"`
	DurationMS int64          `json:"durationMs,omitempty"`
}

func (*ModelUsage) EventKind() Kind { return KindModelUsage }

// WebhookReceived marks an inbound webhook update before processing.
type WebhookReceived struct {
	Header
	Channel    string `json:"channel"`
	UpdateType string `json:"updateType,omitempty"`
	ChatID     int64  `json:"chatId,omitempty"`
}

func (*WebhookReceived) EventKind() Kind { return KindWebhookReceived }

// WebhookProcessed marks a webhook update that was handled.
type WebhookProcessed struct {
	Header
	Channel    string `json:"channel"`
	UpdateType string `json:"updateType,omitempty"`
	ChatID     int64  `json:"chatId,omitempty"`
	DurationMS int64  `json:"durationMs,omitempty"`
}

func (*WebhookProcessed) EventKind() Kind { return KindWebhookProcessed }

// WebhookError marks a webhook update that failed.
type WebhookError struct {
	Header
	Channel    string `json:"channel"`
	Error      string `json:"error"`
	UpdateType string `json:"updateType,omitempty"`
	ChatID     int64  `json:"chatId,omitempty"`
}

func (*WebhookError) EventKind() Kind { return KindWebhookError }

// MessageQueued marks a message entering a processing lane.
type MessageQueued struct {
	Header
	Source     string `json:"source"`
	SessionKey string `json:"sessionKey,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	Channel    string `json:"channel,omitempty"`
	QueueDepth int    `json:"queueDepth,omitempty"`
}

func (*MessageQueued) EventKind() Kind { return KindMessageQueued }

// MessageProcessed marks a message leaving a lane with an outcome.
type MessageProcessed struct {
	Header
	Channel    string  `json:"channel"`
	Outcome    Outcome `json:"outcome"`
	MessageID  string  `json:"messageId,omitempty"`
	ChatID     int64   `json:"chatId,omitempty"`
	SessionKey string  `json:"sessionKey,omitempty"`
	SessionID  string  `json:"sessionId,omitempty"`
	DurationMS int64   `json:"durationMs,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func (*MessageProcessed) EventKind() Kind { return KindMessageProcessed }

// SessionState marks a session phase transition.
type SessionState struct {
	Header
	State      Phase  `json:"state"`
	SessionKey string `json:"sessionKey,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	PrevState  Phase  `json:"prevState,omitempty"`
	Reason     string `json:"reason,omitempty"`
	QueueDepth int    `json:"queueDepth,omitempty"`
}

func (*SessionState) EventKind() Kind { return KindSessionState }

// SessionStuck flags a session pinned in a non-idle phase.
type SessionStuck struct {
	Header
	State      Phase  `json:"state"`
	AgeMS      int64  `json:"ageMs"`
	SessionKey string `json:"sessionKey,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	QueueDepth int    `json:"queueDepth,omitempty"`
}

func (*SessionStuck) EventKind() Kind { return KindSessionStuck }

// LaneEnqueue reports a lane's depth after an enqueue.
type LaneEnqueue struct {
	Header
	Lane      string `json:"lane"`
	QueueSize int    `json:"queueSize"`
}

func (*LaneEnqueue) EventKind() Kind { return KindLaneEnqueue }

// LaneDequeue reports a lane's depth after a dequeue and the queued wait.
type LaneDequeue struct {
	Header
	Lane      string `json:"lane"`
	QueueSize int    `json:"queueSize"`
	WaitMS    int64  `json:"waitMs"`
}

func (*LaneDequeue) EventKind() Kind { return KindLaneDequeue }

// RunAttempt marks the start (or restart) of an agent run.
type RunAttempt struct {
	Header
	RunID      string `json:"runId"`
	Attempt    int    `json:"attempt"`
	SessionKey string `json:"sessionKey,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
}

func (*RunAttempt) EventKind() Kind { return KindRunAttempt }

// Heartbeat is the periodic liveness summary.
type Heartbeat struct {
	Header
	Webhooks WebhookCounters `json:"webhooks"`
	Active   int             `json:"active"`
	Waiting  int             `json:"waiting"`
	Queued   int             `json:"queued"`
}

func (*Heartbeat) EventKind() Kind { return KindHeartbeat }
