package discord

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/tuner/internal/transport"
)

type rpcClient interface {
	SetActivity(Activity) error
	Close() error
}

// Presence mirrors the station on air into Discord Rich Presence.
type Presence struct {
	appID   string
	logger  zerolog.Logger
	client  rpcClient
	connect func(string) (rpcClient, error)
	now     func() time.Time
	last    lastActivity
	since   time.Time
}

type lastActivity struct {
	stationID string
	themeID   string
	onAir     bool
}

func New(appID string, logger zerolog.Logger) *Presence {
	return &Presence{
		appID:  appID,
		logger: logger.With().Str("component", "discord").Logger(),
		connect: func(appID string) (rpcClient, error) {
			return ipcConnect(appID)
		},
		now: time.Now,
	}
}

// Run consumes snapshots and sets Discord Rich Presence.
// Connects lazily once a station goes on air. If Discord isn't
// running, logs the error and retries on the next snapshot.
func (p *Presence) Run(ctx context.Context, snapshots <-chan transport.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			p.close()
			return
		case s, ok := <-snapshots:
			if !ok {
				p.close()
				return
			}
			p.handleSnapshot(s)
		}
	}
}

func (p *Presence) handleSnapshot(s transport.Snapshot) {
	if !s.OnAir() {
		if p.last.onAir {
			p.clearActivity()
			p.last = lastActivity{}
		}
		return
	}

	cur := lastActivity{stationID: s.Station.ID, themeID: s.Theme.ID, onAir: true}
	if cur == p.last {
		return
	}

	if err := p.ensureConnected(); err != nil {
		p.logger.Warn().Err(err).Msg("Discord not available")
		return
	}

	if cur.stationID != p.last.stationID || p.since.IsZero() {
		p.since = p.now()
	}
	start := p.since.Unix()

	err := p.client.SetActivity(Activity{
		Type:    ActivityListening,
		Name:    "tuner",
		Details: s.Station.Name,
		State:   stationLine(s),
		Timestamps: &Timestamps{
			Start: &start,
		},
		Assets: &Assets{
			LargeImage: "tuner",
			LargeText:  s.Theme.Name,
			SmallImage: s.Theme.ID,
			SmallText:  s.Theme.Name,
		},
	})
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to set activity")
		p.close()
		return
	}
	p.last = cur
}

// stationLine formats the secondary presence line
func stationLine(s transport.Snapshot) string {
	switch {
	case s.Station.Genre != "" && s.Station.Frequency != "":
		return s.Station.Genre + " · " + s.Station.Frequency
	case s.Station.Genre != "":
		return s.Station.Genre
	default:
		return s.Station.Frequency
	}
}

func (p *Presence) ensureConnected() error {
	if p.client != nil {
		return nil
	}
	client, err := p.connect(p.appID)
	if err != nil {
		return err
	}
	p.logger.Info().Msg("Connected to Discord")
	p.client = client
	return nil
}

func (p *Presence) clearActivity() {
	p.since = time.Time{}
	if p.client == nil {
		return
	}
	if err := p.client.SetActivity(Activity{}); err != nil {
		p.logger.Debug().Err(err).Msg("Failed to clear activity")
		p.close()
	}
}

func (p *Presence) close() {
	if p.client == nil {
		return
	}
	_ = p.client.Close()
	p.client = nil
}
