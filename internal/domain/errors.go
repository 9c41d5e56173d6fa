package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidDuration = errors.New("duration must be a non-negative whole number of seconds")
	ErrInvalidSpeed    = errors.New("speed out of range")

	// Announcement rejections. Both are no-ops: nothing was sent or played.
	ErrEmptyText = errors.New("announcement text is empty")
	ErrBusy      = errors.New("another announcement is in flight")

	// Announcement failures, surfaced to the caller of Announce.
	ErrDecode    = errors.New("decode error")
	ErrSynthesis = errors.New("synthesis error")
	ErrPlayback  = errors.New("playback error")
)

// IsRejection reports whether err is one of the synchronous no-op
// rejections rather than a real failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrEmptyText) || errors.Is(err, ErrBusy)
}

// Outcome labels the result of an announce attempt for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrEmptyText):
		return "empty"
	case errors.Is(err, ErrInvalidSpeed):
		return "invalid_speed"
	case errors.Is(err, ErrSynthesis):
		return "synthesis_error"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	case errors.Is(err, ErrPlayback):
		return "playback_error"
	default:
		return "error"
	}
}
