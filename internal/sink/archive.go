package sink

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/messixukejia/openclaw/internal/diag"
	"github.com/messixukejia/openclaw/internal/logging"
	"github.com/messixukejia/openclaw/internal/store"
)

// pruneEvery bounds how often the archiver checks retention.
const pruneEvery = 512

// Archive persists every event to the SQLite store, keeping at most retain
// rows. Storage errors are logged and dropped: an observer must never become
// a source of instability for producers.
type Archive struct {
	st     *store.Store
	busID  string
	retain int
	log    zerolog.Logger
	writes atomic.Int64
}

// NewArchive creates an archiver writing events from the bus identified by
// busID.
func NewArchive(st *store.Store, busID string, retain int) *Archive {
	return &Archive{
		st:     st,
		busID:  busID,
		retain: retain,
		log:    logging.WithComponent("diag.archive"),
	}
}

// HandleEvent implements diag.Listener.
func (a *Archive) HandleEvent(ev diag.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		a.log.Error().Err(err).Str("kind", string(ev.EventKind())).Msg("marshal event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := store.EventRow{
		BusID:       a.busID,
		Sequence:    ev.Seq(),
		Kind:        string(ev.EventKind()),
		TimestampMS: ev.Time().UnixMilli(),
		Payload:     payload,
	}
	if err := a.st.InsertEvent(ctx, row); err != nil {
		a.log.Error().Err(err).Uint64("seq", ev.Seq()).Msg("archive event")
		return
	}
	if a.writes.Add(1)%pruneEvery == 0 {
		if err := a.st.Prune(ctx, a.retain); err != nil {
			a.log.Error().Err(err).Msg("prune events")
		}
	}
}
