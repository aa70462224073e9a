package transport

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/jfmyers9/tuner/internal/audio"
	"github.com/jfmyers9/tuner/internal/catalog"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by operations that cannot proceed after Close
var ErrClosed = errors.New("transport controller closed")

// Config holds controller configuration
type Config struct {
	SwapDelay   time.Duration // Delay before the station index changes
	SettleDelay time.Duration // Total tuning duration; must be >= SwapDelay
	Clock       Clock         // Timer source (default: real time)
}

// DefaultConfig returns the default controller configuration
func DefaultConfig() Config {
	return Config{
		SwapDelay:   DefaultSwapDelay,
		SettleDelay: DefaultSettleDelay,
		Clock:       RealClock(),
	}
}

// Observer is called synchronously after every state change.
// Observers must not call back into the Controller.
type Observer func(Snapshot)

type observerEntry struct {
	id uint64
	fn Observer
}

// Controller is the station/transport state machine.
//
// All intents, timer firings and audio reports are serialized through a
// single mutex, so exactly one event mutates the state at a time. After each
// change the controller re-derives the audio command (play iff playing and
// not tuning) and notifies observers.
type Controller struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	output  audio.Output
	logger  zerolog.Logger

	state   State
	lastErr error
	tuner   *tuner
	closed  bool

	// Last command sent to the output; identical commands are not repeated
	lastCmd audio.Command
	sent    bool

	observers []observerEntry
	nextObsID uint64
}

// New creates a controller in the default state and instructs the output
// accordingly (paused on the first station).
func New(cat *catalog.Catalog, output audio.Output, cfg Config, logger zerolog.Logger) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if output == nil {
		output = audio.Discard{}
	}

	c := &Controller{
		catalog: cat,
		output:  output,
		logger:  logger.With().Str("component", "transport").Logger(),
		state:   DefaultState(),
		tuner:   newTuner(cfg.Clock, cfg.SwapDelay, cfg.SettleDelay),
	}

	c.mu.Lock()
	c.applyLocked()
	c.mu.Unlock()

	return c
}

// Snapshot returns the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers an observer and returns a function that removes it.
// The observer is not called with the current state; use Snapshot for that.
func (c *Controller) Subscribe(fn Observer) (func(), error) {
	return c.subscribe(fn, false)
}

// subscribe registers fn; when prime is set fn first receives the current
// snapshot, atomically with registration.
func (c *Controller) subscribe(fn Observer, prime bool) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	c.nextObsID++
	id := c.nextObsID
	c.observers = append(c.observers, observerEntry{id: id, fn: fn})
	if prime {
		fn(c.snapshotLocked())
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, o := range c.observers {
			if o.id == id {
				c.observers = append(c.observers[:i], c.observers[i+1:]...)
				return
			}
		}
	}, nil
}

// Play sets the play intent
func (c *Controller) Play() {
	c.update(func(s *State) { s.Playing = true })
}

// Pause clears the play intent
func (c *Controller) Pause() {
	c.update(func(s *State) { s.Playing = false })
}

// TogglePlay flips the play intent
func (c *Controller) TogglePlay() {
	c.update(func(s *State) { s.Playing = !s.Playing })
}

// SetVolume stores v clamped to [0,1]. Mute is left untouched.
func (c *Controller) SetVolume(v float64) {
	if math.IsNaN(v) {
		return
	}
	c.update(func(s *State) { s.Volume = clamp(v) })
}

// AdjustVolume changes the stored volume by delta, clamped to [0,1]
func (c *Controller) AdjustVolume(delta float64) {
	if math.IsNaN(delta) {
		return
	}
	c.update(func(s *State) { s.Volume = clamp(s.Volume + delta) })
}

// SetMuted sets the mute flag. The stored volume is preserved.
func (c *Controller) SetMuted(muted bool) {
	c.update(func(s *State) { s.Muted = muted })
}

// ToggleMute flips the mute flag
func (c *Controller) ToggleMute() {
	c.update(func(s *State) { s.Muted = !s.Muted })
}

// CycleTheme advances to the next theme, wrapping around
func (c *Controller) CycleTheme() {
	n := c.catalog.ThemeCount()
	c.update(func(s *State) { s.ThemeIndex = (s.ThemeIndex + 1) % n })
}

// NextStation starts tuning to the next station. Ignored while tuning.
func (c *Controller) NextStation() {
	c.tune(Forward)
}

// PrevStation starts tuning to the previous station. Ignored while tuning.
func (c *Controller) PrevStation() {
	c.tune(Backward)
}

// OnStreamEnded handles the end or interruption of the current stream by
// advancing to the next station, exactly like NextStation.
// It implements audio.Reporter.
func (c *Controller) OnStreamEnded() {
	c.logger.Info().Msg("Stream ended, advancing")
	c.tune(Forward)
}

// OnPlaybackFailed records a play-start failure. The play intent is kept and
// the next state evaluation re-sends the play command.
// It implements audio.Reporter.
func (c *Controller) OnPlaybackFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.logger.Warn().
		Err(err).
		Str("station", c.catalog.Station(c.state.StationIndex).ID).
		Msg("Playback failed to start")

	c.lastErr = err
	c.sent = false
	c.notifyLocked()
}

// OnPlaybackStarted clears any pending playback error.
// It implements audio.Reporter.
func (c *Controller) OnPlaybackStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.lastErr == nil {
		return
	}
	c.lastErr = nil
	c.notifyLocked()
}

// Close cancels any pending tuning timers and detaches observers.
// Every later operation is a no-op.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.tuner.cancel()
	c.observers = nil
	c.logger.Debug().Msg("Controller closed")
	return nil
}

func (c *Controller) tune(dir Direction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.state.Tuning {
		c.logger.Debug().Str("direction", dir.String()).Msg("Ignoring station change while tuning")
		return
	}

	c.logger.Debug().
		Str("direction", dir.String()).
		Int("from", c.state.StationIndex).
		Msg("Tuning")

	c.tuner.begin(
		func(id uint64) { c.swapStation(id, dir) },
		func(id uint64) { c.settle(id) },
	)
	c.state.Tuning = true
	c.commitLocked()
}

// swapStation is the first phase of a tuning episode
func (c *Controller) swapStation(episode uint64, dir Direction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.tuner.current(episode) {
		return
	}

	n := c.catalog.StationCount()
	c.state.StationIndex = ((c.state.StationIndex+int(dir))%n + n) % n
	c.lastErr = nil

	c.logger.Info().
		Int("index", c.state.StationIndex).
		Str("station", c.catalog.Station(c.state.StationIndex).Name).
		Msg("Station changed")

	c.commitLocked()
}

// settle is the second phase of a tuning episode
func (c *Controller) settle(episode uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.tuner.current(episode) {
		return
	}

	c.tuner.finish()
	c.state.Tuning = false
	c.commitLocked()
}

// update applies fn to the state and commits if anything changed, or if the
// last command must be re-sent after a playback failure.
func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	prev := c.state
	fn(&c.state)
	if c.state == prev && c.sent {
		return
	}
	c.commitLocked()
}

func (c *Controller) commitLocked() {
	c.applyLocked()
	c.notifyLocked()
}

// command derives the audio command for the current state
func (c *Controller) command() audio.Command {
	station := c.catalog.Station(c.state.StationIndex)
	if c.state.OnAir() {
		return audio.Command{
			Action: audio.ActionPlay,
			URL:    station.StreamURL,
			Volume: c.state.EffectiveVolume(),
		}
	}
	return audio.Command{
		Action: audio.ActionPause,
		URL:    station.StreamURL,
	}
}

// applyLocked sends the derived command to the output unless it is identical
// to the last one sent
func (c *Controller) applyLocked() {
	cmd := c.command()
	if c.sent && cmd == c.lastCmd {
		return
	}

	c.logger.Debug().
		Str("action", cmd.Action.String()).
		Str("url", cmd.URL).
		Float64("volume", cmd.Volume).
		Msg("Output command")

	c.output.Apply(cmd)
	c.lastCmd = cmd
	c.sent = true
}

func (c *Controller) notifyLocked() {
	if len(c.observers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, o := range c.observers {
		o.fn(snap)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:        c.state,
		Station:      c.catalog.Station(c.state.StationIndex),
		StationCount: c.catalog.StationCount(),
		Theme:        c.catalog.Theme(c.state.ThemeIndex),
		LastError:    c.lastErr,
	}
}
