// Package usage records model token consumption and reports it on the
// diagnostic bus with an estimated USD cost.
package usage

import (
	"time"

	"github.com/messixukejia/openclaw/internal/config"
	"github.com/messixukejia/openclaw/internal/diag"
)

// pricing is USD per million tokens.
type pricing struct {
	input  float64
	output float64
}

var prices = map[string]pricing{
	"claude-opus-4":    {input: 15, output: 75},
	"claude-sonnet-4":  {input: 3, output: 15},
	"claude-haiku-3-5": {input: 0.8, output: 4},
	"gpt-4o":           {input: 2.5, output: 10},
	"gpt-4o-mini":      {input: 0.15, output: 0.6},
}

// EstimateCost returns the USD cost for the given token counts, or 0 for an
// unknown model.
func EstimateCost(model string, input, output int64) float64 {
	p, ok := prices[model]
	if !ok {
		return 0
	}
	return float64(input)/1e6*p.input + float64(output)/1e6*p.output
}

// Sample is one model call's usage as observed by the agent runtime.
type Sample struct {
	Provider   string
	Model      string
	Channel    string
	SessionKey string
	SessionID  string

	Input      int64
	Output     int64
	CacheRead  int64
	CacheWrite int64

	ContextLimit int64
	ContextUsed  int64

	Duration time.Duration
}

// Recorder turns usage samples into model.usage events.
type Recorder struct {
	cfg *config.Provider
	bus *diag.Bus
}

// NewRecorder constructs a recorder.
func NewRecorder(cfg *config.Provider, bus *diag.Bus) *Recorder {
	return &Recorder{cfg: cfg, bus: bus}
}

// Record emits a model.usage event for s when diagnostics are enabled.
// It returns the estimated cost either way.
func (r *Recorder) Record(s Sample) float64 {
	cost := EstimateCost(s.Model, s.Input, s.Output)
	if !diag.Enabled(r.cfg.Current()) {
		return cost
	}

	ev := &diag.ModelUsage{
		Usage: diag.TokenUsage{
			Input:      s.Input,
			Output:     s.Output,
			CacheRead:  s.CacheRead,
			CacheWrite: s.CacheWrite,
		},
		SessionKey: s.SessionKey,
		SessionID:  s.SessionID,
		Channel:    s.Channel,
		Provider:   s.Provider,
		Model:      s.Model,
		CostUSD:    cost,
		DurationMS: s.Duration.Milliseconds(),
	}
	if s.ContextLimit > 0 {
		ev.Context = &diag.ContextWindow{Limit: s.ContextLimit, Used: s.ContextUsed}
	}
	r.bus.Emit(ev)
	return cost
}
