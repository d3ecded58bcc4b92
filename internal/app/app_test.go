package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/messixukejia/openclaw/internal/config"
	"github.com/messixukejia/openclaw/internal/queue"
)

func newTestApp(t *testing.T, process Processor) *App {
	t.Helper()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "openclaw.db")
	cfg.Diagnostics.Enabled = true
	cfg.WorkerCount = 1
	a, err := New(cfg, "", process)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { a.store.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a.lanes.Start(ctx)
	return a
}

func TestWebhookFlowEndToEnd(t *testing.T) {
	processed := make(chan queue.Message, 1)
	a := newTestApp(t, func(ctx context.Context, msg queue.Message) error {
		processed <- msg
		return nil
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram",
		strings.NewReader(`{"update_type":"message","chat_id":42,"message_id":"m1","text":"hello"}`))
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d: %s", rec.Code, rec.Body.String())
	}

	select {
	case msg := <-processed:
		if msg.SessionKey != "telegram:42" || string(msg.Payload) != "hello" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("message never reached processor")
	}

	// The bus fed the ring sink; the ops API should show the whole trail.
	var events []map[string]any
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec = httptest.NewRecorder()
		a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/diagnostics/recent", nil))
		if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
			t.Fatalf("decode recent: %v", err)
		}
		if hasKind(events, "message.processed") {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	for _, kind := range []string{
		"webhook.received", "queue.lane.enqueue", "message.queued",
		"queue.lane.dequeue", "session.state", "run.attempt",
		"message.processed", "webhook.processed",
	} {
		if !hasKind(events, kind) {
			t.Fatalf("missing %s in recent events: %v", kind, kinds(events))
		}
	}
}

func TestStatusAfterActivity(t *testing.T) {
	a := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(`{"chat_id":7}`))
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/status", nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if body["diagnostics_enabled"] != true {
		t.Fatalf("unexpected status: %v", body)
	}
	if body["listeners"].(float64) != 4 {
		t.Fatalf("expected 4 observers, got %v", body["listeners"])
	}
}

func hasKind(events []map[string]any, kind string) bool {
	for _, ev := range events {
		if ev["kind"] == kind {
			return true
		}
	}
	return false
}

func kinds(events []map[string]any) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i], _ = ev["kind"].(string)
	}
	return out
}
