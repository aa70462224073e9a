package transport

import "github.com/jfmyers9/tuner/internal/catalog"

// DefaultVolume is the volume a fresh controller starts with
const DefaultVolume = 0.5

// State is the transport's mutable state. It is only ever changed by the
// Controller; everyone else sees it through a Snapshot.
type State struct {
	StationIndex int     // Always in [0, station count)
	Playing      bool    // User's play/pause intent
	Muted        bool    // Mute flag; never alters Volume
	Volume       float64 // Stored volume in [0,1]
	Tuning       bool    // Inside a tuning transition
	ThemeIndex   int     // Active theme, independent of playback
}

// DefaultState returns the state a controller starts in
func DefaultState() State {
	return State{
		StationIndex: 0,
		Playing:      false,
		Muted:        false,
		Volume:       DefaultVolume,
		Tuning:       false,
		ThemeIndex:   0,
	}
}

// EffectiveVolume is the volume actually applied to output
func (s State) EffectiveVolume() float64 {
	if s.Muted {
		return 0
	}
	return s.Volume
}

// OnAir reports whether the audio output should be playing
func (s State) OnAir() bool {
	return s.Playing && !s.Tuning
}

// Snapshot is a read-only view of the transport handed to observers
type Snapshot struct {
	State

	Station      catalog.Station
	StationCount int
	Theme        catalog.Theme

	// LastError is the most recent playback start failure. It is a
	// notification only; the play intent is never reverted because of it.
	LastError error
}

// ThemeID returns the id of the active theme
func (s Snapshot) ThemeID() string {
	return s.Theme.ID
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
