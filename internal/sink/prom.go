package sink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/messixukejia/openclaw/internal/diag"
)

// Prom exports diagnostic events as prometheus metrics.
type Prom struct {
	events        *prometheus.CounterVec
	webhookErrors prometheus.Counter
	msgOutcomes   *prometheus.CounterVec
	laneDepth     *prometheus.GaugeVec
	laneWait      prometheus.Histogram
	activeRuns    prometheus.Gauge
	waitingRuns   prometheus.Gauge
	queuedMsgs    prometheus.Gauge
	usageTokens   *prometheus.CounterVec
	usageCost     prometheus.Counter
}

// NewProm registers the exporter's metrics on reg.
func NewProm(reg prometheus.Registerer) *Prom {
	f := promauto.With(reg)
	return &Prom{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "openclaw_diag_events_total",
			Help: "Diagnostic events emitted, by kind.",
		}, []string{"kind"}),
		webhookErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "openclaw_webhook_errors_total",
			Help: "Webhook updates that failed processing.",
		}),
		msgOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "openclaw_messages_processed_total",
			Help: "Processed messages, by outcome.",
		}, []string{"outcome"}),
		laneDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "openclaw_queue_lane_depth",
			Help: "Current queue depth, by lane.",
		}, []string{"lane"}),
		laneWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "openclaw_queue_wait_seconds",
			Help:    "Time messages spend queued before dequeue.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		activeRuns: f.NewGauge(prometheus.GaugeOpts{
			Name: "openclaw_sessions_active",
			Help: "Sessions currently processing.",
		}),
		waitingRuns: f.NewGauge(prometheus.GaugeOpts{
			Name: "openclaw_sessions_waiting",
			Help: "Sessions currently waiting.",
		}),
		queuedMsgs: f.NewGauge(prometheus.GaugeOpts{
			Name: "openclaw_messages_queued",
			Help: "Messages queued across all lanes.",
		}),
		usageTokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: "openclaw_model_tokens_total",
			Help: "Model tokens consumed, by direction.",
		}, []string{"direction"}),
		usageCost: f.NewCounter(prometheus.CounterOpts{
			Name: "openclaw_model_cost_usd_total",
			Help: "Accumulated model cost in USD.",
		}),
	}
}

// HandleEvent implements diag.Listener.
func (p *Prom) HandleEvent(ev diag.Event) {
	p.events.WithLabelValues(string(ev.EventKind())).Inc()

	switch v := ev.(type) {
	case *diag.WebhookError:
		p.webhookErrors.Inc()
	case *diag.MessageProcessed:
		p.msgOutcomes.WithLabelValues(string(v.Outcome)).Inc()
	case *diag.LaneEnqueue:
		p.laneDepth.WithLabelValues(v.Lane).Set(float64(v.QueueSize))
	case *diag.LaneDequeue:
		p.laneDepth.WithLabelValues(v.Lane).Set(float64(v.QueueSize))
		p.laneWait.Observe(float64(v.WaitMS) / 1000)
	case *diag.Heartbeat:
		p.activeRuns.Set(float64(v.Active))
		p.waitingRuns.Set(float64(v.Waiting))
		p.queuedMsgs.Set(float64(v.Queued))
	case *diag.ModelUsage:
		p.usageTokens.WithLabelValues("input").Add(float64(v.Usage.Input))
		p.usageTokens.WithLabelValues("output").Add(float64(v.Usage.Output))
		p.usageCost.Add(v.CostUSD)
	}
}
