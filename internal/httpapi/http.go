// Package httpapi serves the daemon's operational endpoints: health, status,
// recent and archived diagnostic events, session snapshots, and prometheus
// metrics.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/messixukejia/openclaw/internal/config"
	"github.com/messixukejia/openclaw/internal/diag"
	"github.com/messixukejia/openclaw/internal/logging"
	"github.com/messixukejia/openclaw/internal/session"
	"github.com/messixukejia/openclaw/internal/sink"
	"github.com/messixukejia/openclaw/internal/store"
)

// Router builds the /ops and /webhook HTTP surface.
type Router struct {
	cfg      *config.Provider
	bus      *diag.Bus
	ring     *sink.Ring
	store    *store.Store
	tracker  *session.Tracker
	depth    func() int
	gatherer prometheus.Gatherer
	log      zerolog.Logger
}

// NewRouter constructs the ops router. depth samples total queued messages.
func NewRouter(cfg *config.Provider, bus *diag.Bus, ring *sink.Ring, st *store.Store, tracker *session.Tracker, depth func() int, gatherer prometheus.Gatherer) *Router {
	return &Router{
		cfg:      cfg,
		bus:      bus,
		ring:     ring,
		store:    st,
		tracker:  tracker,
		depth:    depth,
		gatherer: gatherer,
		log:      logging.WithComponent("httpapi"),
	}
}

// Routes mounts every endpoint on r.
func (rt *Router) Routes(r chi.Router) {
	r.Get("/healthz", rt.health)
	r.Get("/ops/status", rt.status)
	r.Get("/ops/diagnostics/recent", rt.recent)
	r.Get("/ops/diagnostics/events", rt.events)
	r.Get("/ops/sessions", rt.sessions)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
}

func (rt *Router) health(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) status(w http.ResponseWriter, req *http.Request) {
	cfg := rt.cfg.Current()
	active, waiting := rt.tracker.Counts()
	rt.respondJSON(w, map[string]any{
		"diagnostics_enabled": diag.Enabled(cfg),
		"bus_id":              rt.bus.ID(),
		"listeners":           rt.bus.ListenerCount(),
		"recent_events":       rt.ring.Len(),
		"queued":              rt.depth(),
		"sessions_active":     active,
		"sessions_waiting":    waiting,
	})
}

func (rt *Router) recent(w http.ResponseWriter, req *http.Request) {
	rt.respondJSON(w, rt.ring.Recent())
}

func (rt *Router) events(w http.ResponseWriter, req *http.Request) {
	kind := req.URL.Query().Get("kind")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	rows, err := rt.store.ListEvents(req.Context(), kind, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []store.EventRow{}
	}
	rt.respondJSON(w, rows)
}

func (rt *Router) sessions(w http.ResponseWriter, req *http.Request) {
	rt.respondJSON(w, rt.tracker.Snapshots())
}

func (rt *Router) respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		rt.log.Error().Err(err).Msg("write json")
	}
}
