package transport

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/jfmyers9/tuner/internal/audio"
	"github.com/jfmyers9/tuner/internal/catalog"
	"github.com/rs/zerolog"
)

type recordingOutput struct {
	mu       sync.Mutex
	commands []audio.Command
}

func (r *recordingOutput) Apply(cmd audio.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

func (r *recordingOutput) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commands)
}

func (r *recordingOutput) last() audio.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commands[len(r.commands)-1]
}

func newTestController(t *testing.T) (*Controller, *recordingOutput, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	out := &recordingOutput{}
	cfg := Config{
		SwapDelay:   DefaultSwapDelay,
		SettleDelay: DefaultSettleDelay,
		Clock:       clock,
	}
	c := New(catalog.Default(), out, cfg, zerolog.Nop())
	t.Cleanup(func() { _ = c.Close() })
	return c, out, clock
}

func playCmd(station catalog.Station, volume float64) audio.Command {
	return audio.Command{Action: audio.ActionPlay, URL: station.StreamURL, Volume: volume}
}

func pauseCmd(station catalog.Station) audio.Command {
	return audio.Command{Action: audio.ActionPause, URL: station.StreamURL}
}

func TestNew_DefaultState(t *testing.T) {
	c, out, _ := newTestController(t)
	cat := catalog.Default()

	s := c.Snapshot()
	if s.StationIndex != 0 || s.Playing || s.Muted || s.Tuning || s.Volume != 0.5 {
		t.Errorf("unexpected initial state: %+v", s.State)
	}
	if s.ThemeID() != cat.Theme(0).ID {
		t.Errorf("initial theme = %q, want %q", s.ThemeID(), cat.Theme(0).ID)
	}
	if s.StationCount != cat.StationCount() {
		t.Errorf("StationCount = %d, want %d", s.StationCount, cat.StationCount())
	}

	if out.count() != 1 {
		t.Fatalf("expected exactly one initial command, got %d", out.count())
	}
	if got, want := out.last(), pauseCmd(cat.Station(0)); got != want {
		t.Errorf("initial command = %+v, want %+v", got, want)
	}
}

func TestScenarioA_PlayThenNext(t *testing.T) {
	c, out, clock := newTestController(t)
	cat := catalog.Default()

	c.Play()
	if got, want := out.last(), playCmd(cat.Station(0), 0.5); got != want {
		t.Fatalf("after Play command = %+v, want %+v", got, want)
	}

	c.NextStation()
	s := c.Snapshot()
	if !s.Tuning {
		t.Fatal("expected tuning immediately after NextStation")
	}
	if s.StationIndex != 0 {
		t.Errorf("index changed before swap delay: %d", s.StationIndex)
	}
	if got := out.last(); got.Action != audio.ActionPause {
		t.Errorf("command while tuning = %+v, want pause", got)
	}

	clock.Advance(299 * time.Millisecond)
	if c.Snapshot().StationIndex != 0 {
		t.Error("index changed before 300ms")
	}

	clock.Advance(1 * time.Millisecond)
	s = c.Snapshot()
	if s.StationIndex != 1 {
		t.Errorf("at 300ms index = %d, want 1", s.StationIndex)
	}
	if !s.Tuning {
		t.Error("still expected tuning at 300ms")
	}
	if got := out.last(); got.Action != audio.ActionPause {
		t.Errorf("command at 300ms = %+v, want pause", got)
	}

	clock.Advance(499 * time.Millisecond)
	if !c.Snapshot().Tuning {
		t.Error("tuning ended before 800ms")
	}

	clock.Advance(1 * time.Millisecond)
	s = c.Snapshot()
	if s.Tuning {
		t.Error("expected tuning to end at 800ms")
	}
	if !s.Playing {
		t.Error("play intent lost across tuning")
	}
	if got, want := out.last(), playCmd(cat.Station(1), 0.5); got != want {
		t.Errorf("command after tuning = %+v, want %+v", got, want)
	}
}

func TestScenarioB_StreamEndedAdvances(t *testing.T) {
	c, out, clock := newTestController(t)
	cat := catalog.Default()

	c.Play()
	c.OnStreamEnded()

	if !c.Snapshot().Tuning {
		t.Fatal("OnStreamEnded should start tuning")
	}

	// Debounced exactly like NextStation
	c.OnStreamEnded()
	c.NextStation()

	clock.Advance(DefaultSettleDelay)

	s := c.Snapshot()
	if s.StationIndex != 1 || s.Tuning {
		t.Errorf("after stream end: index=%d tuning=%v, want 1/false", s.StationIndex, s.Tuning)
	}
	if got, want := out.last(), playCmd(cat.Station(1), 0.5); got != want {
		t.Errorf("command = %+v, want %+v", got, want)
	}
}

func TestScenarioC_DebounceWhileTuning(t *testing.T) {
	c, _, clock := newTestController(t)

	c.NextStation()
	if clock.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2 timers for one episode", clock.Pending())
	}

	c.NextStation()
	c.PrevStation()
	c.OnStreamEnded()

	if clock.Pending() != 2 {
		t.Errorf("Pending() = %d after debounced requests, want 2", clock.Pending())
	}

	clock.Advance(DefaultSettleDelay)
	if got := c.Snapshot().StationIndex; got != 1 {
		t.Errorf("index = %d, want 1", got)
	}

	// Once idle again, requests are accepted
	c.PrevStation()
	clock.Advance(DefaultSettleDelay)
	if got := c.Snapshot().StationIndex; got != 0 {
		t.Errorf("index = %d, want 0", got)
	}
}

func TestScenarioD_CycleTheme(t *testing.T) {
	c, out, _ := newTestController(t)
	cat := catalog.Default()

	c.Play()
	before := c.Snapshot()
	commands := out.count()

	seen := map[string]bool{}
	for i := 0; i < cat.ThemeCount(); i++ {
		seen[c.Snapshot().ThemeID()] = true
		c.CycleTheme()
	}

	after := c.Snapshot()
	if after.ThemeID() != before.ThemeID() {
		t.Errorf("theme after full cycle = %q, want %q", after.ThemeID(), before.ThemeID())
	}
	if len(seen) != cat.ThemeCount() {
		t.Errorf("visited %d themes, want %d", len(seen), cat.ThemeCount())
	}
	if after.StationIndex != before.StationIndex || after.Playing != before.Playing {
		t.Error("CycleTheme touched playback state")
	}
	if out.count() != commands {
		t.Errorf("CycleTheme sent %d output commands", out.count()-commands)
	}
}

func TestPauseIsIdempotent(t *testing.T) {
	c, out, _ := newTestController(t)

	c.Play()
	c.Pause()
	afterFirst := out.count()

	c.Pause()
	if c.Snapshot().Playing {
		t.Error("Playing should be false")
	}
	if out.count() != afterFirst {
		t.Errorf("second Pause sent %d extra commands", out.count()-afterFirst)
	}
}

func TestMuteRoundTrip(t *testing.T) {
	c, out, _ := newTestController(t)
	cat := catalog.Default()

	c.Play()
	c.SetVolume(0.3)
	c.SetMuted(true)

	if got, want := out.last(), playCmd(cat.Station(0), 0); got != want {
		t.Errorf("muted command = %+v, want %+v", got, want)
	}
	if s := c.Snapshot(); s.Volume != 0.3 || s.EffectiveVolume() != 0 {
		t.Errorf("muted: volume=%v effective=%v", s.Volume, s.EffectiveVolume())
	}

	c.SetMuted(false)
	if s := c.Snapshot(); s.EffectiveVolume() != 0.3 {
		t.Errorf("effective volume after unmute = %v, want 0.3", s.EffectiveVolume())
	}
	if got, want := out.last(), playCmd(cat.Station(0), 0.3); got != want {
		t.Errorf("unmuted command = %+v, want %+v", got, want)
	}

	c.ToggleMute()
	c.ToggleMute()
	if s := c.Snapshot(); s.Muted || s.Volume != 0.3 {
		t.Errorf("after double toggle: muted=%v volume=%v", s.Muted, s.Volume)
	}
}

func TestSetVolumeClamps(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "in range", in: 0.7, want: 0.7},
		{name: "negative", in: -0.5, want: 0},
		{name: "too loud", in: 1.5, want: 1},
		{name: "zero", in: 0, want: 0},
		{name: "one", in: 1, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestController(t)
			c.SetMuted(true)
			c.SetVolume(tt.in)

			s := c.Snapshot()
			if s.Volume != tt.want {
				t.Errorf("SetVolume(%v) stored %v, want %v", tt.in, s.Volume, tt.want)
			}
			if !s.Muted {
				t.Error("SetVolume must not change mute")
			}
		})
	}
}

func TestAdjustVolume(t *testing.T) {
	c, _, _ := newTestController(t)

	for i := 0; i < 20; i++ {
		c.AdjustVolume(0.05)
	}
	if got := c.Snapshot().Volume; got != 1 {
		t.Errorf("volume = %v, want clamped to 1", got)
	}

	for i := 0; i < 30; i++ {
		c.AdjustVolume(-0.05)
	}
	if got := c.Snapshot().Volume; got != 0 {
		t.Errorf("volume = %v, want clamped to 0", got)
	}
}

func TestPrevWrapsAround(t *testing.T) {
	c, _, clock := newTestController(t)
	n := catalog.Default().StationCount()

	c.PrevStation()
	clock.Advance(DefaultSettleDelay)

	if got := c.Snapshot().StationIndex; got != n-1 {
		t.Errorf("index = %d, want %d", got, n-1)
	}

	c.NextStation()
	clock.Advance(DefaultSettleDelay)
	if got := c.Snapshot().StationIndex; got != 0 {
		t.Errorf("index = %d, want 0", got)
	}
}

func TestStationIndexProperty(t *testing.T) {
	c, _, clock := newTestController(t)
	n := catalog.Default().StationCount()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		before := c.Snapshot().StationIndex
		dir := Forward
		if rng.Intn(2) == 0 {
			dir = Backward
		}

		if dir == Forward {
			c.NextStation()
		} else {
			c.PrevStation()
		}
		// Some requests land mid-transition and must be ignored
		if rng.Intn(3) == 0 {
			c.NextStation()
		}
		clock.Advance(DefaultSettleDelay)

		after := c.Snapshot().StationIndex
		if after < 0 || after >= n {
			t.Fatalf("index %d out of range", after)
		}
		want := ((before+int(dir))%n + n) % n
		if after != want {
			t.Fatalf("step %d: %d -> %d, want %d", i, before, after, want)
		}
	}
}

func TestTuningAlwaysPaused(t *testing.T) {
	c, out, clock := newTestController(t)
	rng := rand.New(rand.NewSource(7))

	var violations int
	_, err := c.Subscribe(func(s Snapshot) {
		if s.Tuning && out.last().Action != audio.ActionPause {
			violations++
		}
		if s.OnAir() && out.last().Action != audio.ActionPlay {
			violations++
		}
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	intents := []func(){
		c.Play, c.Pause, c.TogglePlay, c.NextStation, c.PrevStation,
		c.ToggleMute, c.OnStreamEnded, c.CycleTheme,
		func() { c.SetVolume(rng.Float64()) },
	}
	for i := 0; i < 500; i++ {
		intents[rng.Intn(len(intents))]()
		clock.Advance(time.Duration(rng.Intn(400)) * time.Millisecond)
	}

	if violations != 0 {
		t.Errorf("%d snapshots violated the playback rule", violations)
	}
}

func TestCloseCancelsTuning(t *testing.T) {
	c, out, clock := newTestController(t)

	c.Play()
	c.NextStation()
	commands := out.count()

	if err := c.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if clock.Pending() != 0 {
		t.Errorf("Pending() = %d after Close, want 0", clock.Pending())
	}

	clock.Advance(time.Second)
	c.Play()
	c.NextStation()
	c.SetVolume(1)

	if got := c.Snapshot().StationIndex; got != 0 {
		t.Errorf("index changed after Close: %d", got)
	}
	if out.count() != commands {
		t.Errorf("output received %d commands after Close", out.count()-commands)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
	if _, err := c.Subscribe(func(Snapshot) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe after Close error = %v, want ErrClosed", err)
	}
}

func TestStaleTimerIgnored(t *testing.T) {
	c, _, clock := newTestController(t)

	c.NextStation()

	// Simulate a timer from an episode that no longer exists
	c.swapStation(c.tuner.episode+5, Forward)
	c.settle(c.tuner.episode+5)

	s := c.Snapshot()
	if s.StationIndex != 0 || !s.Tuning {
		t.Errorf("stale callbacks mutated state: %+v", s.State)
	}

	clock.Advance(DefaultSettleDelay)
	if got := c.Snapshot().StationIndex; got != 1 {
		t.Errorf("index = %d, want 1", got)
	}
}

func TestPlaybackFailurePreservesIntent(t *testing.T) {
	c, out, _ := newTestController(t)
	cat := catalog.Default()

	var lastErr error
	_, err := c.Subscribe(func(s Snapshot) { lastErr = s.LastError })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	c.Play()
	playCommands := out.count()

	failure := errors.New("autoplay blocked")
	c.OnPlaybackFailed(failure)

	s := c.Snapshot()
	if !s.Playing {
		t.Error("play intent must survive a playback failure")
	}
	if !errors.Is(s.LastError, failure) || !errors.Is(lastErr, failure) {
		t.Errorf("LastError = %v, observer saw %v", s.LastError, lastErr)
	}
	if out.count() != playCommands {
		t.Error("failure alone must not re-send a command")
	}

	// A repeated play intent retries
	c.Play()
	if out.count() != playCommands+1 {
		t.Fatalf("expected a retry command, got %d new", out.count()-playCommands)
	}
	if got, want := out.last(), playCmd(cat.Station(0), 0.5); got != want {
		t.Errorf("retry command = %+v, want %+v", got, want)
	}

	c.OnPlaybackStarted()
	if c.Snapshot().LastError != nil || lastErr != nil {
		t.Error("OnPlaybackStarted should clear LastError")
	}
}

func TestStationChangeClearsError(t *testing.T) {
	c, _, clock := newTestController(t)

	c.Play()
	c.OnPlaybackFailed(errors.New("network unreachable"))
	c.NextStation()
	clock.Advance(DefaultSwapDelay)

	if err := c.Snapshot().LastError; err != nil {
		t.Errorf("LastError = %v after station change, want nil", err)
	}
}

func TestObservers(t *testing.T) {
	c, _, _ := newTestController(t)

	var calls []string
	unsubA, err := c.Subscribe(func(Snapshot) { calls = append(calls, "a") })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	_, err = c.Subscribe(func(Snapshot) { calls = append(calls, "b") })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	c.Play()
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Fatalf("calls = %v, want [a b]", calls)
	}

	// No change, no notification
	c.Play()
	if len(calls) != 2 {
		t.Errorf("unchanged state notified observers: %v", calls)
	}

	unsubA()
	c.Pause()
	if len(calls) != 3 || calls[2] != "b" {
		t.Errorf("calls = %v, want [a b b]", calls)
	}
}

func TestLatest(t *testing.T) {
	c, _, _ := newTestController(t)

	ch, unsubscribe, err := c.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	defer unsubscribe()

	first := <-ch
	if first.Playing {
		t.Error("primed snapshot should reflect initial state")
	}

	c.Play()
	c.SetVolume(0.8)
	c.ToggleMute()

	s := <-ch
	if !s.Playing || s.Volume != 0.8 || !s.Muted {
		t.Errorf("Latest delivered %+v, want most recent state", s.State)
	}

	select {
	case extra := <-ch:
		t.Errorf("unexpected backlog snapshot: %+v", extra.State)
	default:
	}
}
