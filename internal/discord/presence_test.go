package discord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/tuner/internal/catalog"
	"github.com/jfmyers9/tuner/internal/transport"
)

type fakeRPC struct {
	activities []Activity
	closed     bool
	failNext   error
}

func (f *fakeRPC) SetActivity(a Activity) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.activities = append(f.activities, a)
	return nil
}

func (f *fakeRPC) Close() error {
	f.closed = true
	return nil
}

func newTestPresence() (*Presence, *fakeRPC) {
	fake := &fakeRPC{}
	p := &Presence{
		appID:  "test",
		logger: zerolog.Nop(),
		connect: func(string) (rpcClient, error) {
			return fake, nil
		},
		now: func() time.Time { return time.Unix(1_700_000_000, 0) },
	}
	return p, fake
}

func onAir(i int) transport.Snapshot {
	cat := catalog.Default()
	return transport.Snapshot{
		State:   transport.State{StationIndex: i, Playing: true, Volume: 0.5},
		Station: cat.Station(i),
		Theme:   cat.Theme(0),
	}
}

func paused(i int) transport.Snapshot {
	s := onAir(i)
	s.Playing = false
	return s
}

func TestDedup_SkipsDuplicateUpdates(t *testing.T) {
	p, fake := newTestPresence()

	p.handleSnapshot(onAir(0))
	p.handleSnapshot(onAir(0))

	// A volume change is not a new activity
	louder := onAir(0)
	louder.Volume = 0.9
	p.handleSnapshot(louder)

	if len(fake.activities) != 1 {
		t.Fatalf("expected 1 SetActivity call, got %d", len(fake.activities))
	}
}

func TestDedup_SendsOnStationChange(t *testing.T) {
	p, fake := newTestPresence()

	p.handleSnapshot(onAir(0))
	p.handleSnapshot(onAir(1))

	if len(fake.activities) != 2 {
		t.Fatalf("expected 2 SetActivity calls, got %d", len(fake.activities))
	}
	want0, want1 := catalog.Default().Station(0).Name, catalog.Default().Station(1).Name
	if fake.activities[0].Details != want0 {
		t.Errorf("first activity details = %q, want %q", fake.activities[0].Details, want0)
	}
	if fake.activities[1].Details != want1 {
		t.Errorf("second activity details = %q, want %q", fake.activities[1].Details, want1)
	}
}

func TestDedup_SendsOnThemeChange(t *testing.T) {
	p, fake := newTestPresence()

	p.handleSnapshot(onAir(0))

	themed := onAir(0)
	themed.Theme = catalog.Default().Theme(1)
	p.handleSnapshot(themed)

	if len(fake.activities) != 2 {
		t.Fatalf("expected 2 SetActivity calls, got %d", len(fake.activities))
	}
	got := fake.activities[1].Assets
	if got.SmallImage != themed.Theme.ID || got.SmallText != themed.Theme.Name {
		t.Errorf("assets = %+v, want theme %q", got, themed.Theme.ID)
	}
	// Same station, so the listening timer keeps running
	if *fake.activities[1].Timestamps.Start != *fake.activities[0].Timestamps.Start {
		t.Error("theme change must not reset the start timestamp")
	}
}

func TestClearsWhenOffAir(t *testing.T) {
	tests := []struct {
		name string
		snap transport.Snapshot
	}{
		{name: "paused", snap: paused(0)},
		{name: "tuning", snap: func() transport.Snapshot {
			s := onAir(0)
			s.Tuning = true
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, fake := newTestPresence()

			p.handleSnapshot(onAir(0))
			p.handleSnapshot(tt.snap)

			if len(fake.activities) != 2 {
				t.Fatalf("expected 2 SetActivity calls, got %d", len(fake.activities))
			}
			if fake.activities[1].Details != "" {
				t.Errorf("clear activity should have empty details, got %q", fake.activities[1].Details)
			}
		})
	}
}

func TestNoClearWhenAlreadyStopped(t *testing.T) {
	p, fake := newTestPresence()

	// Never on air, so nothing to clear
	p.handleSnapshot(paused(0))
	p.handleSnapshot(paused(1))

	if len(fake.activities) != 0 {
		t.Fatalf("expected 0 SetActivity calls, got %d", len(fake.activities))
	}
}

func TestReconnectsAfterError(t *testing.T) {
	connectCount := 0
	fake := &fakeRPC{}
	p := &Presence{
		appID:  "test",
		logger: zerolog.Nop(),
		connect: func(string) (rpcClient, error) {
			connectCount++
			fake = &fakeRPC{}
			return fake, nil
		},
		now: time.Now,
	}

	p.handleSnapshot(onAir(0))
	if connectCount != 1 {
		t.Fatalf("expected 1 connect, got %d", connectCount)
	}

	// Connection breaks while switching stations
	fake.failNext = errors.New("broken pipe")
	p.handleSnapshot(onAir(1))
	if !fake.closed {
		t.Error("expected broken client to be closed")
	}

	// Next snapshot reconnects
	p.handleSnapshot(onAir(1))
	if connectCount != 2 {
		t.Fatalf("expected 2 connects after error, got %d", connectCount)
	}
	if len(fake.activities) != 1 {
		t.Errorf("expected activity on new client, got %d", len(fake.activities))
	}
}

func TestDiscordUnavailable(t *testing.T) {
	p := &Presence{
		appID:  "test",
		logger: zerolog.Nop(),
		connect: func(string) (rpcClient, error) {
			return nil, errors.New("no discord socket found")
		},
		now: time.Now,
	}

	p.handleSnapshot(onAir(0))
	if p.client != nil {
		t.Error("client should stay nil when Discord is unavailable")
	}
	if p.last.onAir {
		t.Error("failed update must not be remembered")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	p, fake := newTestPresence()
	// Pre-connect so close is observable
	p.client = fake

	ctx, cancel := context.WithCancel(context.Background())
	snapshots := make(chan transport.Snapshot, 1)
	done := make(chan struct{})

	go func() {
		p.Run(ctx, snapshots)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancel")
	}

	if !fake.closed {
		t.Error("expected client to be closed on context cancel")
	}
}

func TestActivityFields(t *testing.T) {
	p, fake := newTestPresence()

	p.handleSnapshot(onAir(1))

	if len(fake.activities) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(fake.activities))
	}
	a := fake.activities[0]
	station := catalog.Default().Station(1)

	if a.Type != ActivityListening {
		t.Errorf("type = %d, want %d (Listening)", a.Type, ActivityListening)
	}
	if a.Details != station.Name {
		t.Errorf("details = %q, want %q", a.Details, station.Name)
	}
	if want := station.Genre + " · " + station.Frequency; a.State != want {
		t.Errorf("state = %q, want %q", a.State, want)
	}
	if a.Assets == nil || a.Assets.LargeText != catalog.Default().Theme(0).Name {
		t.Errorf("unexpected assets: %+v", a.Assets)
	}
	if a.Timestamps == nil || a.Timestamps.Start == nil || *a.Timestamps.Start != 1_700_000_000 {
		t.Fatal("expected start timestamp")
	}
}

func TestStationLine(t *testing.T) {
	tests := []struct {
		genre, freq, want string
	}{
		{"Jazz", "99.9 FM", "Jazz · 99.9 FM"},
		{"Jazz", "", "Jazz"},
		{"", "99.9 FM", "99.9 FM"},
		{"", "", ""},
	}

	for _, tt := range tests {
		s := transport.Snapshot{Station: catalog.Station{Genre: tt.genre, Frequency: tt.freq}}
		if got := stationLine(s); got != tt.want {
			t.Errorf("stationLine(%q, %q) = %q, want %q", tt.genre, tt.freq, got, tt.want)
		}
	}
}
