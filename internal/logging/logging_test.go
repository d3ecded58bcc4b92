package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

// Configure is process-global and latches on first use, so all assertions
// share one test.
func TestConfigureAndComponentFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test"})

	log := WithComponent("diag")
	log.Info().Str("kind", "webhook.received").Msg("event")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["component"] != "diag" || entry["service"] != "test" {
		t.Fatalf("missing fields: %v", entry)
	}
	if entry["kind"] != "webhook.received" {
		t.Fatalf("missing kind field: %v", entry)
	}

	// A second Configure must be a no-op.
	buf.Reset()
	Configure(Config{Service: "second"})
	base := Base()
	base.Info().Msg("hello")
	entry = map[string]any{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["service"] != "test" {
		t.Fatalf("later Configure must not win, got %v", entry["service"])
	}
}
