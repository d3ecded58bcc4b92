// Package heartbeat emits periodic diagnostic.heartbeat events summarising
// webhook totals and queue/session occupancy.
package heartbeat

import (
	"context"
	"time"

	"github.com/messixukejia/openclaw/internal/config"
	"github.com/messixukejia/openclaw/internal/diag"
	"github.com/messixukejia/openclaw/internal/metrics"
)

// Beater samples the daemon's gauges on a fixed interval.
type Beater struct {
	cfg      *config.Provider
	bus      *diag.Bus
	webhooks *metrics.Webhooks

	queueDepth    func() int
	sessionCounts func() (active, waiting int)
}

// New constructs a beater. queueDepth and sessionCounts are sampled at each
// beat; nil funcs read as zero.
func New(cfg *config.Provider, bus *diag.Bus, webhooks *metrics.Webhooks, queueDepth func() int, sessionCounts func() (int, int)) *Beater {
	return &Beater{
		cfg:           cfg,
		bus:           bus,
		webhooks:      webhooks,
		queueDepth:    queueDepth,
		sessionCounts: sessionCounts,
	}
}

// Beat emits one heartbeat if diagnostics are enabled.
func (b *Beater) Beat() {
	if !diag.Enabled(b.cfg.Current()) {
		return
	}
	var queued, active, waiting int
	if b.queueDepth != nil {
		queued = b.queueDepth()
	}
	if b.sessionCounts != nil {
		active, waiting = b.sessionCounts()
	}
	b.bus.Emit(&diag.Heartbeat{
		Webhooks: b.webhooks.Snapshot(),
		Active:   active,
		Waiting:  waiting,
		Queued:   queued,
	})
}

// Run beats on the configured interval until ctx is cancelled.
func (b *Beater) Run(ctx context.Context) {
	interval := b.cfg.Current().HeartbeatInterval.Std()
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Beat()
		}
	}
}
