package audio

// Action is the playback instruction carried by a Command
type Action int

const (
	ActionPause Action = iota // Output must be silent/paused
	ActionPlay                // Output must play URL at Volume
)

// String returns a human-readable representation of the Action
func (a Action) String() string {
	switch a {
	case ActionPause:
		return "pause"
	case ActionPlay:
		return "play"
	default:
		return "unknown"
	}
}

// Command is a complete instruction for the audio output.
// Volume is the effective volume in [0,1], already accounting for mute.
type Command struct {
	Action Action
	URL    string
	Volume float64
}

// Output consumes playback commands.
//
// Apply is fire-and-forget: it must not block on network or device I/O and
// must not call back into a Reporter synchronously. Success or failure of a
// play command is reported later through the Reporter.
type Output interface {
	Apply(cmd Command)
}

// Reporter receives asynchronous playback events from an Output
type Reporter interface {
	// OnPlaybackStarted is called once audio for the current stream is flowing
	OnPlaybackStarted()

	// OnPlaybackFailed is called when a stream could not be started
	OnPlaybackFailed(err error)

	// OnStreamEnded is called when a live stream ends or is interrupted
	OnStreamEnded()
}

// Discard is an Output that ignores every command
type Discard struct{}

// Apply implements Output
func (Discard) Apply(Command) {}
