// Package metrics holds shared operational counters sampled by the
// heartbeat producer.
package metrics

import (
	"sync/atomic"

	"github.com/messixukejia/openclaw/internal/diag"
)

// Webhooks counts webhook updates by disposition.
type Webhooks struct {
	received  atomic.Int64
	processed atomic.Int64
	errors    atomic.Int64
}

// NewWebhooks creates zeroed counters.
func NewWebhooks() *Webhooks {
	return &Webhooks{}
}

func (w *Webhooks) IncReceived()  { w.received.Add(1) }
func (w *Webhooks) IncProcessed() { w.processed.Add(1) }
func (w *Webhooks) IncErrors()    { w.errors.Add(1) }

// Snapshot provides a consistent view of the current totals.
func (w *Webhooks) Snapshot() diag.WebhookCounters {
	return diag.WebhookCounters{
		Received:  w.received.Load(),
		Processed: w.processed.Load(),
		Errors:    w.errors.Load(),
	}
}
