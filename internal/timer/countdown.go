// Package timer implements the game countdown: a pure state machine
// (Countdown) and the supervisor that drives it once per second and
// forwards its alert signals.
package timer

import (
	"fmt"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
)

// NoMark means no automatic alert has fired in the current run.
const NoMark = -1

// OneMinuteMark is the remaining-seconds threshold for the warning alert.
const OneMinuteMark = 60

// Signal is an automatic alert emitted by Tick.
type Signal int

const (
	SignalOneMinute Signal = iota + 1
	SignalTimeUp
)

// String returns a human-readable signal name.
func (s Signal) String() string {
	switch s {
	case SignalOneMinute:
		return "one_minute"
	case SignalTimeUp:
		return "time_up"
	default:
		return "unknown"
	}
}

// State is a snapshot of a Countdown.
type State struct {
	Initial         int  `json:"initial_seconds"`
	Remaining       int  `json:"remaining_seconds"`
	Running         bool `json:"running"`
	LastAlertedMark int  `json:"last_alerted_mark"`
}

// Clock returns the remaining time as MM:SS.
func (s State) Clock() string {
	return FormatClock(s.Remaining)
}

// FormatClock renders whole seconds as zero-padded MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Countdown is the countdown state machine. It does no scheduling of its
// own and is not safe for concurrent use; Supervisor serializes access.
type Countdown struct {
	initial     int
	remaining   int
	running     bool
	lastAlerted int
}

// NewCountdown returns a stopped countdown set to seconds.
func NewCountdown(seconds int) (*Countdown, error) {
	c := &Countdown{lastAlerted: NoMark}
	if err := c.SetDuration(seconds); err != nil {
		return nil, err
	}
	return c, nil
}

// SetDuration stops the countdown and loads a new duration. A negative
// value is rejected and leaves the state untouched.
func (c *Countdown) SetDuration(seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidDuration, seconds)
	}
	c.running = false
	c.initial = seconds
	c.remaining = seconds
	c.lastAlerted = NoMark
	return nil
}

// Start runs the countdown if there is time left. Idempotent.
func (c *Countdown) Start() {
	if c.remaining > 0 {
		c.running = true
	}
}

// Pause stops the countdown. Idempotent.
func (c *Countdown) Pause() {
	c.running = false
}

// Reset pauses and restores the last loaded duration.
func (c *Countdown) Reset() {
	c.Pause()
	c.remaining = c.initial
	c.lastAlerted = NoMark
}

// Tick advances one second. It returns the alerts crossed by this tick:
// SignalOneMinute when remaining becomes 60 (once per run) and
// SignalTimeUp when remaining reaches 0, which also stops the countdown.
func (c *Countdown) Tick() []Signal {
	if !c.running {
		return nil
	}
	if c.remaining > 0 {
		c.remaining--
	}

	var signals []Signal
	if c.remaining == OneMinuteMark && c.lastAlerted != OneMinuteMark {
		c.lastAlerted = OneMinuteMark
		signals = append(signals, SignalOneMinute)
	}
	if c.remaining == 0 {
		c.running = false
		c.lastAlerted = 0
		signals = append(signals, SignalTimeUp)
	}
	return signals
}

// Running reports whether the countdown is running.
func (c *Countdown) Running() bool { return c.running }

// State returns a snapshot.
func (c *Countdown) State() State {
	return State{
		Initial:         c.initial,
		Remaining:       c.remaining,
		Running:         c.running,
		LastAlertedMark: c.lastAlerted,
	}
}
