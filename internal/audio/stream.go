package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog"
)

const (
	// SpeakerSampleRate is the fixed device rate; streams are resampled to it
	SpeakerSampleRate = beep.SampleRate(44100)

	// SpeakerBufferSize trades latency against underruns
	SpeakerBufferSize = 250 * time.Millisecond

	// MaxPauseBeforeReconnect is how long a paused live stream may sit before
	// resuming it means reconnecting instead of replaying stale buffered audio
	MaxPauseBeforeReconnect = 5 * time.Second

	// VolumeCurveExponent shapes the linear [0,1] volume into a perceptual curve
	VolumeCurveExponent = 0.5

	// MinVolumeDB is the attenuation applied at the bottom of the curve
	MinVolumeDB = -10.0
)

// session is one connection to one stream URL
type session struct {
	gen      uint64
	url      string
	cancel   context.CancelFunc
	ctrl     *beep.Ctrl      // nil until connected
	volume   *effects.Volume // nil until connected
	streamer beep.StreamSeekCloser

	// set when connecting failed; the next play reconnects
	failed bool

	// desired state, applied once connected
	paused   bool
	level    float64
	pausedAt time.Time
}

// StreamOutput plays HTTP MP3 streams through the system speaker.
// It implements Output.
type StreamOutput struct {
	mu          sync.Mutex
	logger      zerolog.Logger
	httpClient  *http.Client
	reporter    Reporter
	speakerInit bool
	closed      bool
	gen         uint64
	current     *session
}

// NewStreamOutput creates a speaker-backed output. The speaker itself is
// initialized lazily on the first successful connection.
func NewStreamOutput(logger zerolog.Logger) *StreamOutput {
	return &StreamOutput{
		logger: logger.With().Str("component", "audio").Logger(),
		httpClient: &http.Client{
			Timeout: 0, // streams are long-lived
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				DisableCompression:    true,
			},
		},
	}
}

// SetReporter sets the receiver of asynchronous playback events
func (o *StreamOutput) SetReporter(r Reporter) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reporter = r
}

// Apply implements Output
func (o *StreamOutput) Apply(cmd Command) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	switch cmd.Action {
	case ActionPause:
		o.pauseLocked(cmd.URL)
	case ActionPlay:
		o.playLocked(cmd.URL, cmd.Volume)
	}
}

func (o *StreamOutput) pauseLocked(url string) {
	s := o.current
	if s == nil {
		return
	}

	// The source changed while paused; there is nothing worth keeping.
	if s.url != url {
		o.stopLocked()
		return
	}

	if !s.paused {
		s.paused = true
		s.pausedAt = time.Now()
		o.syncLocked(s)
		o.logger.Debug().Str("url", url).Msg("Paused")
	}
}

func (o *StreamOutput) playLocked(url string, level float64) {
	s := o.current
	if s != nil && s.url == url {
		stale := s.paused && !s.pausedAt.IsZero() && time.Since(s.pausedAt) > MaxPauseBeforeReconnect
		switch {
		case s.failed:
			o.logger.Debug().Str("url", url).Msg("Retrying failed stream")
		case stale:
			o.logger.Debug().Str("url", url).Msg("Paused too long, reconnecting")
		default:
			s.level = level
			s.paused = false
			s.pausedAt = time.Time{}
			o.syncLocked(s)
			return
		}
	}

	o.stopLocked()

	o.gen++
	ctx, cancel := context.WithCancel(context.Background())
	s = &session{
		gen:    o.gen,
		url:    url,
		cancel: cancel,
		level:  level,
	}
	o.current = s

	go o.connect(ctx, s)
}

// syncLocked pushes the desired pause/volume state into the live pipeline
func (o *StreamOutput) syncLocked(s *session) {
	if s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = s.paused
	s.volume.Volume = volumeToDB(s.level)
	s.volume.Silent = s.level <= 0
	speaker.Unlock()
}

// stopLocked tears down the current session
func (o *StreamOutput) stopLocked() {
	s := o.current
	if s == nil {
		return
	}
	o.current = nil
	s.cancel()

	if s.ctrl != nil {
		speaker.Clear()
	}
	if s.streamer != nil {
		_ = s.streamer.Close()
	}
}

// connect opens the stream and starts playback. Runs on its own goroutine;
// never holds o.mu while calling the reporter.
func (o *StreamOutput) connect(ctx context.Context, s *session) {
	o.logger.Info().Str("url", s.url).Msg("Connecting to stream")

	streamer, format, err := o.open(ctx, s.url)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		o.logger.Warn().Err(err).Str("url", s.url).Msg("Failed to start stream")
		o.fail(s, err)
		return
	}

	if err := o.initSpeaker(); err != nil {
		_ = streamer.Close()
		o.fail(s, err)
		return
	}

	var src beep.Streamer = streamer
	if format.SampleRate != SpeakerSampleRate {
		src = beep.Resample(4, format.SampleRate, SpeakerSampleRate, src)
	}

	o.mu.Lock()
	if o.current != s {
		// Replaced or stopped while connecting
		o.mu.Unlock()
		_ = streamer.Close()
		return
	}
	s.streamer = streamer
	s.volume = &effects.Volume{
		Streamer: src,
		Base:     2,
		Volume:   volumeToDB(s.level),
		Silent:   s.level <= 0,
	}
	s.ctrl = &beep.Ctrl{Streamer: s.volume, Paused: s.paused}
	gen := s.gen
	o.mu.Unlock()

	speaker.Play(beep.Seq(s.ctrl, beep.Callback(func() {
		// Called from the speaker goroutine with the speaker lock held
		go o.ended(gen)
	})))

	o.logger.Info().
		Str("url", s.url).
		Int("sample_rate", int(format.SampleRate)).
		Msg("Stream started")
	o.report(gen, func(r Reporter) { r.OnPlaybackStarted() })
}

func (o *StreamOutput) open(ctx context.Context, url string) (beep.StreamSeekCloser, beep.Format, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "tuner")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to connect: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, beep.Format{}, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	streamer, format, err := mp3.Decode(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, beep.Format{}, fmt.Errorf("failed to decode stream: %w", err)
	}

	return streamer, format, nil
}

func (o *StreamOutput) initSpeaker() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.speakerInit {
		return nil
	}
	if err := speaker.Init(SpeakerSampleRate, SpeakerSampleRate.N(SpeakerBufferSize)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	o.speakerInit = true
	o.logger.Debug().
		Int("sample_rate", int(SpeakerSampleRate)).
		Dur("buffer", SpeakerBufferSize).
		Msg("Speaker initialized")
	return nil
}

// ended handles the end of a live stream. Reports only for the session that
// is still current and not deliberately stopped.
func (o *StreamOutput) ended(gen uint64) {
	o.mu.Lock()
	s := o.current
	if s == nil || s.gen != gen || o.closed {
		o.mu.Unlock()
		return
	}
	o.current = nil
	s.cancel()
	if s.streamer != nil {
		_ = s.streamer.Close()
	}
	o.mu.Unlock()

	o.logger.Info().Str("url", s.url).Msg("Stream ended")
	o.report(gen, func(r Reporter) { r.OnStreamEnded() })
}

// fail marks the session dead before reporting, so a re-sent play for the
// same URL reconnects instead of waiting on a pipeline that never arrives
func (o *StreamOutput) fail(s *session, err error) {
	o.mu.Lock()
	if o.current == s {
		s.failed = true
	}
	o.mu.Unlock()

	o.report(s.gen, func(r Reporter) { r.OnPlaybackFailed(err) })
}

// report delivers an event unless the session generation is stale
func (o *StreamOutput) report(gen uint64, fn func(Reporter)) {
	o.mu.Lock()
	r := o.reporter
	stale := o.closed || gen != o.gen
	o.mu.Unlock()

	if r == nil || stale {
		return
	}
	fn(r)
}

// Close stops playback and releases the speaker
func (o *StreamOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	o.stopLocked()

	if o.speakerInit {
		speaker.Close()
		o.speakerInit = false
	}
	return nil
}

// volumeToDB maps a linear volume in [0,1] onto the dB range used by
// effects.Volume with Base 2
func volumeToDB(v float64) float64 {
	if v <= 0 {
		return MinVolumeDB
	}
	if v >= 1 {
		return 0
	}
	adjusted := math.Pow(v, VolumeCurveExponent)
	return (1.0 - adjusted) * MinVolumeDB
}
