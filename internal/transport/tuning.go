package transport

import "time"

// Default tuning delays, measured from entry into the tuning state
const (
	DefaultSwapDelay   = 300 * time.Millisecond // station index changes
	DefaultSettleDelay = 800 * time.Millisecond // tuning ends
)

// Direction is the way the dial is turned
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

// String returns a human-readable representation of the Direction
func (d Direction) String() string {
	switch d {
	case Forward:
		return "next"
	case Backward:
		return "prev"
	default:
		return "unknown"
	}
}

// tuner is the two-phase delayed-action scheduler behind a tuning episode.
// Both timers of an episode are owned together and cancelled together.
//
// tuner is not safe for concurrent use; the controller serializes access.
type tuner struct {
	clock       Clock
	swapDelay   time.Duration
	settleDelay time.Duration

	episode uint64 // incremented per episode; 0 means none has run
	active  bool
	swap    Timer
	settle  Timer
}

func newTuner(clock Clock, swapDelay, settleDelay time.Duration) *tuner {
	if settleDelay < swapDelay {
		settleDelay = swapDelay
	}
	return &tuner{
		clock:       clock,
		swapDelay:   swapDelay,
		settleDelay: settleDelay,
	}
}

// begin starts a new episode and returns its id. onSwap and onSettle receive
// the id so callbacks from a cancelled episode can be recognised and dropped.
// begin must not be called while an episode is active.
func (t *tuner) begin(onSwap, onSettle func(episode uint64)) uint64 {
	t.episode++
	id := t.episode
	t.active = true
	t.swap = t.clock.AfterFunc(t.swapDelay, func() { onSwap(id) })
	t.settle = t.clock.AfterFunc(t.settleDelay, func() { onSettle(id) })
	return id
}

// current reports whether id names the active episode
func (t *tuner) current(id uint64) bool {
	return t.active && id == t.episode
}

// finish marks the active episode complete
func (t *tuner) finish() {
	t.active = false
	t.swap = nil
	t.settle = nil
}

// cancel stops both timers of the active episode, if any
func (t *tuner) cancel() {
	if t.swap != nil {
		t.swap.Stop()
	}
	if t.settle != nil {
		t.settle.Stop()
	}
	t.finish()
}
