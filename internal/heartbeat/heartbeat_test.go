package heartbeat

import (
	"testing"

	"github.com/messixukejia/openclaw/internal/config"
	"github.com/messixukejia/openclaw/internal/diag"
	"github.com/messixukejia/openclaw/internal/metrics"
)

type capture struct {
	events []diag.Event
}

func (c *capture) HandleEvent(ev diag.Event) { c.events = append(c.events, ev) }

func TestBeatEmitsSummary(t *testing.T) {
	cfg := config.Default()
	cfg.Diagnostics.Enabled = true
	bus := diag.New()
	c := &capture{}
	bus.Subscribe(c)

	wh := metrics.NewWebhooks()
	wh.IncReceived()
	wh.IncReceived()
	wh.IncProcessed()
	wh.IncErrors()

	b := New(config.NewProvider(cfg), bus, wh,
		func() int { return 3 },
		func() (int, int) { return 2, 1 },
	)
	b.Beat()

	if len(c.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(c.events))
	}
	hb := c.events[0].(*diag.Heartbeat)
	if hb.Webhooks.Received != 2 || hb.Webhooks.Processed != 1 || hb.Webhooks.Errors != 1 {
		t.Fatalf("unexpected webhook counters: %+v", hb.Webhooks)
	}
	if hb.Queued != 3 || hb.Active != 2 || hb.Waiting != 1 {
		t.Fatalf("unexpected gauges: %+v", hb)
	}
}

func TestBeatDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Diagnostics.Enabled = false
	bus := diag.New()
	c := &capture{}
	bus.Subscribe(c)

	New(config.NewProvider(cfg), bus, metrics.NewWebhooks(), nil, nil).Beat()
	if len(c.events) != 0 {
		t.Fatalf("expected no events, got %d", len(c.events))
	}
}

func TestBeatNilSamplers(t *testing.T) {
	cfg := config.Default()
	cfg.Diagnostics.Enabled = true
	bus := diag.New()
	c := &capture{}
	bus.Subscribe(c)

	New(config.NewProvider(cfg), bus, metrics.NewWebhooks(), nil, nil).Beat()
	hb := c.events[0].(*diag.Heartbeat)
	if hb.Queued != 0 || hb.Active != 0 || hb.Waiting != 0 {
		t.Fatalf("expected zero gauges, got %+v", hb)
	}
}
