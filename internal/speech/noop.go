package speech

import (
	"sync"
	"time"

	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

// Compile-time interface check.
var _ Device = (*DiscardDevice)(nil)

// DiscardDevice accepts audio and drops it. Used when audio output is
// disabled (-no-audio) or no sound card is present, and in tests.
type DiscardDevice struct {
	log        *logger.Logger
	sampleRate int
	channels   int

	mu        sync.Mutex
	suspended bool
	resumes   int
	submitted int
	last      []byte
}

// OpenDiscard returns an opener for a DiscardDevice. When startSuspended
// is true the device starts out suspended, as a browser tab would before
// the first user gesture.
func OpenDiscard(log *logger.Logger, startSuspended bool) DeviceOpener {
	return func(sampleRate, channelCount int) (Device, error) {
		return &DiscardDevice{
			log:        log,
			sampleRate: sampleRate,
			channels:   channelCount,
			suspended:  startSuspended,
		}, nil
	}
}

// Suspended reports the simulated suspend state.
func (d *DiscardDevice) Suspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspended
}

// Resume clears the suspended state.
func (d *DiscardDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suspended = false
	d.resumes++
	return nil
}

// Suspend sets the suspended state.
func (d *DiscardDevice) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suspended = true
	return nil
}

// Submit keeps pcm as the last buffer and logs how long it would have played.
func (d *DiscardDevice) Submit(pcm []byte) error {
	d.mu.Lock()
	d.submitted++
	d.last = pcm
	d.mu.Unlock()

	frames := len(pcm) / (2 * d.channels)
	dur := time.Duration(frames) * time.Second / time.Duration(d.sampleRate)
	d.log.Debug("discard device: would play %s of audio", dur.Round(time.Millisecond))
	return nil
}

// Submitted returns the number of buffers received.
func (d *DiscardDevice) Submitted() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitted
}

// Resumes returns how many times Resume was called.
func (d *DiscardDevice) Resumes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resumes
}

// Last returns the most recently submitted buffer.
func (d *DiscardDevice) Last() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}
