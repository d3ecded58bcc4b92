package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/messixukejia/openclaw/internal/config"
	"github.com/messixukejia/openclaw/internal/diag"
	"github.com/messixukejia/openclaw/internal/session"
	"github.com/messixukejia/openclaw/internal/sink"
	"github.com/messixukejia/openclaw/internal/store"
)

type fixture struct {
	bus    *diag.Bus
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Diagnostics.Enabled = true
	provider := config.NewProvider(cfg)

	bus := diag.New()
	ring := sink.NewRing(16)
	bus.Subscribe(ring)

	st, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	bus.Subscribe(sink.NewArchive(st, bus.ID(), 100))

	tracker := session.NewTracker(provider, bus)
	reg := prometheus.NewRegistry()
	bus.Subscribe(sink.NewProm(reg))

	r := chi.NewRouter()
	NewRouter(provider, bus, ring, st, tracker, func() int { return 0 }, reg).Routes(r)
	return &fixture{bus: bus, router: r}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	if rec := get(t, f.router, "/healthz"); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusReportsBus(t *testing.T) {
	f := newFixture(t)
	rec := get(t, f.router, "/ops/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["diagnostics_enabled"] != true {
		t.Fatalf("diagnostics_enabled = %v", body["diagnostics_enabled"])
	}
	if body["bus_id"] == "" || body["listeners"].(float64) < 3 {
		t.Fatalf("unexpected status: %v", body)
	}
}

func TestRecentReturnsEmittedEvents(t *testing.T) {
	f := newFixture(t)
	f.bus.Emit(&diag.WebhookReceived{Channel: "telegram", ChatID: 7})
	f.bus.Emit(&diag.SessionState{State: diag.PhaseProcessing, SessionKey: "tg:7"})

	rec := get(t, f.router, "/ops/diagnostics/recent")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var events []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0]["kind"] != "webhook.received" || events[0]["sequence"].(float64) != 1 {
		t.Fatalf("unexpected first event: %v", events[0])
	}
}

func TestEventsHistoryFilter(t *testing.T) {
	f := newFixture(t)
	f.bus.Emit(&diag.WebhookReceived{Channel: "telegram"})
	f.bus.Emit(&diag.Heartbeat{})
	f.bus.Emit(&diag.WebhookReceived{Channel: "whatsapp"})

	rec := get(t, f.router, "/ops/diagnostics/events?kind=webhook.received&limit=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rows []store.EventRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Sequence != 3 {
		t.Fatalf("expected newest first, got seq %d", rows[0].Sequence)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.bus.Emit(&diag.WebhookReceived{Channel: "telegram"})

	rec := get(t, f.router, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "openclaw_diag_events_total") {
		t.Fatalf("expected events counter in metrics output")
	}
}
