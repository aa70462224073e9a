package history

import (
	"context"
	"sync"
	"time"

	"github.com/jfmyers9/tuner/internal/transport"
	"github.com/rs/zerolog"
)

type eventKind int

const (
	eventStart eventKind = iota
	eventFinish
	eventError
)

type event struct {
	kind        eventKind
	stationID   string
	stationName string
	message     string
	at          time.Time
}

// Recorder turns transport snapshots into listens.
//
// Observe is cheap and never touches the database, so it can be registered
// directly as a transport observer. Run performs the writes.
type Recorder struct {
	store  *Store
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending []event
	wake    chan struct{}

	// Last observed state, guarded by mu
	onAir     bool
	stationID string
	lastError string

	// Owned by the Run goroutine
	openID int64
	lastID int64
}

// NewRecorder creates a recorder writing to store
func NewRecorder(store *Store, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.With().Str("component", "history").Logger(),
		now:    time.Now,
		wake:   make(chan struct{}, 1),
	}
}

// Observe records the listening transitions implied by s
func (r *Recorder) Observe(s transport.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	onAir := s.OnAir()

	switch {
	case onAir && (!r.onAir || s.Station.ID != r.stationID):
		if r.onAir {
			r.pending = append(r.pending, event{kind: eventFinish, at: now})
		}
		r.pending = append(r.pending, event{
			kind:        eventStart,
			stationID:   s.Station.ID,
			stationName: s.Station.Name,
			at:          now,
		})
	case !onAir && r.onAir:
		r.pending = append(r.pending, event{kind: eventFinish, at: now})
	}
	r.onAir = onAir
	r.stationID = s.Station.ID

	msg := ""
	if s.LastError != nil {
		msg = s.LastError.Error()
	}
	if msg != "" && msg != r.lastError {
		r.pending = append(r.pending, event{kind: eventError, message: msg, at: now})
	}
	r.lastError = msg

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run writes observed transitions until ctx is cancelled. The open listen,
// if any, is finished before Run returns.
func (r *Recorder) Run(ctx context.Context) error {
	r.logger.Debug().Msg("Recorder started")

	for {
		select {
		case <-ctx.Done():
			// Flush with a fresh context; ctx is already done
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			r.drain(flushCtx)
			if r.openID != 0 {
				if err := r.store.Finish(flushCtx, r.openID, r.now()); err != nil {
					r.logger.Warn().Err(err).Msg("Failed to finish listen on shutdown")
				}
				r.openID = 0
			}
			cancel()
			r.logger.Debug().Msg("Recorder stopped")
			return nil
		case <-r.wake:
			r.drain(ctx)
		}
	}
}

// drain writes every queued event in order
func (r *Recorder) drain(ctx context.Context) {
	r.mu.Lock()
	events := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, ev := range events {
		r.write(ctx, ev)
	}
}

func (r *Recorder) write(ctx context.Context, ev event) {
	switch ev.kind {
	case eventStart:
		id, err := r.store.Start(ctx, ev.stationID, ev.stationName, ev.at)
		if err != nil {
			r.logger.Warn().Err(err).Str("station", ev.stationID).Msg("Failed to record listen")
			return
		}
		r.openID = id
		r.lastID = id
		r.logger.Debug().Int64("id", id).Str("station", ev.stationID).Msg("Listen started")

	case eventFinish:
		if r.openID == 0 {
			return
		}
		if err := r.store.Finish(ctx, r.openID, ev.at); err != nil {
			r.logger.Warn().Err(err).Int64("id", r.openID).Msg("Failed to finish listen")
		}
		r.openID = 0

	case eventError:
		if r.lastID == 0 {
			r.logger.Debug().Str("error", ev.message).Msg("Playback error before any listen")
			return
		}
		if err := r.store.RecordError(ctx, r.lastID, ev.message); err != nil {
			r.logger.Warn().Err(err).Int64("id", r.lastID).Msg("Failed to record playback error")
		}
	}
}
