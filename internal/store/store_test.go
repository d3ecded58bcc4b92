package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndListEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		err := s.InsertEvent(ctx, EventRow{
			BusID:       "bus-1",
			Sequence:    uint64(i),
			Kind:        "webhook.received",
			TimestampMS: int64(1000 * i),
			Payload:     json.RawMessage(`{"channel":"telegram"}`),
		})
		if err != nil {
			t.Fatalf("insert event %d: %v", i, err)
		}
	}
	if err := s.InsertEvent(ctx, EventRow{BusID: "bus-1", Sequence: 4, Kind: "session.state"}); err != nil {
		t.Fatalf("insert event: %v", err)
	}

	all, err := s.ListEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 events, got %d", len(all))
	}
	if all[0].Kind != "session.state" {
		t.Fatalf("expected newest first, got %s", all[0].Kind)
	}

	webhooks, err := s.ListEvents(ctx, "webhook.received", 10)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(webhooks) != 3 {
		t.Fatalf("expected 3 webhook events, got %d", len(webhooks))
	}
	if webhooks[0].Sequence != 3 {
		t.Fatalf("expected sequence 3 first, got %d", webhooks[0].Sequence)
	}
}

func TestPruneRetainsNewest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		if err := s.InsertEvent(ctx, EventRow{BusID: "b", Sequence: uint64(i), Kind: "diagnostic.heartbeat"}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := s.Prune(ctx, 4); err != nil {
		t.Fatalf("prune: %v", err)
	}
	n, err := s.CountEvents(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 retained, got %d", n)
	}
	rows, err := s.ListEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if rows[0].Sequence != 10 || rows[len(rows)-1].Sequence != 7 {
		t.Fatalf("expected sequences 10..7, got %d..%d", rows[0].Sequence, rows[len(rows)-1].Sequence)
	}
}
