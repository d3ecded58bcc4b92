// Package gateway ingests webhook updates from messaging channels, reports
// them on the diagnostic bus, and hands them to the processing lanes.
package gateway

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/messixukejia/openclaw/internal/config"
	"github.com/messixukejia/openclaw/internal/diag"
	"github.com/messixukejia/openclaw/internal/logging"
	"github.com/messixukejia/openclaw/internal/metrics"
	"github.com/messixukejia/openclaw/internal/queue"
)

// secretHeader carries the shared webhook secret.
const secretHeader = "X-Webhook-Secret"

// mainLane is the lane inbound chat messages are queued on.
const mainLane = "main"

// update is the channel-agnostic webhook payload.
type update struct {
	UpdateType string `json:"update_type"`
	ChatID     int64  `json:"chat_id"`
	MessageID  string `json:"message_id"`
	Text       string `json:"text"`
}

// Handler serves POST /webhook/{channel}.
type Handler struct {
	cfg      *config.Provider
	bus      *diag.Bus
	lanes    *queue.Lanes
	webhooks *metrics.Webhooks
	log      zerolog.Logger
}

// NewHandler constructs the webhook handler.
func NewHandler(cfg *config.Provider, bus *diag.Bus, lanes *queue.Lanes, webhooks *metrics.Webhooks) *Handler {
	return &Handler{
		cfg:      cfg,
		bus:      bus,
		lanes:    lanes,
		webhooks: webhooks,
		log:      logging.WithComponent("gateway"),
	}
}

// Routes mounts the handler.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/webhook/{channel}", h.receive)
}

func (h *Handler) receive(w http.ResponseWriter, req *http.Request) {
	channel := chi.URLParam(req, "channel")
	cfg := h.cfg.Current()
	enabled := diag.Enabled(cfg)
	start := time.Now()

	if cfg.WebhookSecret != "" {
		got := req.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.WebhookSecret)) != 1 {
			h.log.Warn().Str("channel", channel).Msg("webhook secret mismatch")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var upd update
	if err := json.NewDecoder(req.Body).Decode(&upd); err != nil {
		h.webhooks.IncErrors()
		if enabled {
			h.bus.Emit(&diag.WebhookError{Channel: channel, Error: err.Error()})
		}
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	h.webhooks.IncReceived()
	if enabled {
		h.bus.Emit(&diag.WebhookReceived{
			Channel:    channel,
			UpdateType: upd.UpdateType,
			ChatID:     upd.ChatID,
		})
	}

	msg := queue.Message{
		ID:         upd.MessageID,
		Source:     channel,
		Channel:    channel,
		ChatID:     upd.ChatID,
		SessionKey: fmt.Sprintf("%s:%d", channel, upd.ChatID),
		Payload:    []byte(upd.Text),
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	if !h.lanes.Enqueue(mainLane, msg) {
		h.webhooks.IncErrors()
		if enabled {
			h.bus.Emit(&diag.WebhookError{
				Channel:    channel,
				Error:      "queue full",
				UpdateType: upd.UpdateType,
				ChatID:     upd.ChatID,
			})
		}
		http.Error(w, "queue full", http.StatusServiceUnavailable)
		return
	}

	h.webhooks.IncProcessed()
	if enabled {
		h.bus.Emit(&diag.WebhookProcessed{
			Channel:    channel,
			UpdateType: upd.UpdateType,
			ChatID:     upd.ChatID,
			DurationMS: time.Since(start).Milliseconds(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}
