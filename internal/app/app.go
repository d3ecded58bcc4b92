// Package app wires the daemon together: one explicitly constructed
// diagnostic bus, the producers that feed it, and the observers that drain
// it.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/messixukejia/openclaw/internal/config"
	"github.com/messixukejia/openclaw/internal/diag"
	"github.com/messixukejia/openclaw/internal/gateway"
	"github.com/messixukejia/openclaw/internal/heartbeat"
	"github.com/messixukejia/openclaw/internal/httpapi"
	"github.com/messixukejia/openclaw/internal/logging"
	"github.com/messixukejia/openclaw/internal/metrics"
	"github.com/messixukejia/openclaw/internal/queue"
	"github.com/messixukejia/openclaw/internal/session"
	"github.com/messixukejia/openclaw/internal/sink"
	"github.com/messixukejia/openclaw/internal/store"
	"github.com/messixukejia/openclaw/internal/usage"
	"github.com/messixukejia/openclaw/internal/watch"
)

// Processor handles one dequeued message, typically by forwarding it to an
// agent runtime. Nil is allowed; messages are then skipped.
type Processor func(ctx context.Context, msg queue.Message) error

// App owns every long-lived component.
type App struct {
	provider *config.Provider
	bus      *diag.Bus
	store    *store.Store
	lanes    *queue.Lanes
	tracker  *session.Tracker
	webhooks *metrics.Webhooks
	beater   *heartbeat.Beater
	watcher  *watch.Watcher
	router   *chi.Mux
	usage    *usage.Recorder
	log      zerolog.Logger

	unsubscribe []func()
}

// New builds the daemon from cfg. configPath, when non-empty, enables hot
// reload of the config file. process may be nil.
func New(cfg config.Config, configPath string, process Processor) (*App, error) {
	provider := config.NewProvider(cfg)
	bus := diag.New()
	log := logging.WithComponent("app")

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	tracker := session.NewTracker(provider, bus)
	webhooks := metrics.NewWebhooks()

	a := &App{
		provider: provider,
		bus:      bus,
		store:    st,
		tracker:  tracker,
		webhooks: webhooks,
		watcher:  watch.New(configPath, provider),
		usage:    usage.NewRecorder(provider, bus),
		log:      log,
	}

	a.lanes = queue.New(provider, bus, a.handler(process), 2*time.Minute)
	a.beater = heartbeat.New(provider, bus, webhooks, a.lanes.Depth, tracker.Counts)

	// Observers. Their unsubscribes are kept for a clean shutdown.
	ring := sink.NewRing(cfg.RecentEvents)
	reg := prometheus.NewRegistry()
	a.unsubscribe = append(a.unsubscribe,
		bus.Subscribe(sink.NewLogSink("diag.sink")),
		bus.Subscribe(ring),
		bus.Subscribe(sink.NewProm(reg)),
		bus.Subscribe(sink.NewArchive(st, bus.ID(), cfg.RetainEvents)),
	)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	gateway.NewHandler(provider, bus, a.lanes, webhooks).Routes(r)
	httpapi.NewRouter(provider, bus, ring, st, tracker, a.lanes.Depth, reg).Routes(r)
	a.router = r

	return a, nil
}

// handler adapts the injected Processor into the lane handler, tracking the
// session phase around each message.
func (a *App) handler(process Processor) queue.Handler {
	return func(ctx context.Context, msg queue.Message) queue.Result {
		a.tracker.Transition(msg.SessionKey, diag.PhaseProcessing, "message", 0)
		a.tracker.RecordAttempt(msg.SessionKey, msg.ID)
		defer a.tracker.Transition(msg.SessionKey, diag.PhaseIdle, "finished", 0)

		if process == nil {
			return queue.Result{Outcome: diag.OutcomeSkipped, Reason: "no processor configured"}
		}
		if err := process(ctx, msg); err != nil {
			return queue.Result{Outcome: diag.OutcomeError, Err: err}
		}
		return queue.Result{Outcome: diag.OutcomeCompleted}
	}
}

// Bus exposes the app's diagnostic bus.
func (a *App) Bus() *diag.Bus { return a.bus }

// Usage exposes the usage recorder for the agent runtime.
func (a *App) Usage() *usage.Recorder { return a.usage }

// Router exposes the HTTP surface for tests.
func (a *App) Router() http.Handler { return a.router }

// Run starts workers, watcher, sweepers, and the HTTP server, blocking until
// ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.lanes.Start(ctx)
	go a.tracker.Run(ctx)
	go a.beater.Run(ctx)
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + a.provider.Current().HTTPPort,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.log.Info().Str("addr", srv.Addr).Str("bus_id", a.bus.ID()).Msg("listening")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.lanes.Stop(drainCtx)
	for _, unsub := range a.unsubscribe {
		unsub()
	}
	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
