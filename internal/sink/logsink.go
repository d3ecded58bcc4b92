package sink

import (
	"github.com/rs/zerolog"

	"github.com/messixukejia/openclaw/internal/diag"
	"github.com/messixukejia/openclaw/internal/logging"
)

// LogSink writes every event as a structured log line.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a sink logging under the given component name.
func NewLogSink(component string) *LogSink {
	if component == "" {
		component = "diag.sink"
	}
	return &LogSink{log: logging.WithComponent(component)}
}

// HandleEvent implements diag.Listener.
func (s *LogSink) HandleEvent(ev diag.Event) {
	e := s.log.Info().
		Str("kind", string(ev.EventKind())).
		Uint64("seq", ev.Seq()).
		Time("emitted_at", ev.Time())

	switch v := ev.(type) {
	case *diag.WebhookError:
		e = e.Str("channel", v.Channel).Str("error", v.Error)
	case *diag.MessageProcessed:
		e = e.Str("channel", v.Channel).Str("outcome", string(v.Outcome))
	case *diag.SessionState:
		e = e.Str("state", string(v.State)).Str("prev_state", string(v.PrevState))
	case *diag.SessionStuck:
		e = e.Str("state", string(v.State)).Int64("age_ms", v.AgeMS)
	case *diag.ModelUsage:
		e = e.Str("model", v.Model).
			Int64("input_tokens", v.Usage.Input).
			Int64("output_tokens", v.Usage.Output).
			Float64("cost_usd", v.CostUSD)
	}
	e.Msg("event")
}
