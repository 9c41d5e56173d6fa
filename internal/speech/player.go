package speech

import (
	"fmt"
	"sync"

	"github.com/hammamikhairi/mysteryhost/internal/audio"
	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

// Player owns the single output device of a host and submits decoded
// speech to it. The device is opened on first use at 24 kHz mono.
type Player struct {
	open DeviceOpener
	log  *logger.Logger

	mu     sync.Mutex
	device Device
}

// NewPlayer creates a player. Nothing is opened until EnsureReady.
func NewPlayer(open DeviceOpener, log *logger.Logger) *Player {
	return &Player{open: open, log: log}
}

// EnsureReady opens the device on first call and resumes it whenever it
// reports suspended. Must run before every playback: the platform may
// suspend output again at any time.
func (p *Player) EnsureReady() (Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		dev, err := p.open(audio.SampleRate, audio.ChannelCount)
		if err != nil {
			return nil, fmt.Errorf("%w: opening output device: %v", domain.ErrPlayback, err)
		}
		p.device = dev
		p.log.Info("audio output opened (rate=%d, channels=%d)", audio.SampleRate, audio.ChannelCount)
	}

	if p.device.Suspended() {
		if err := p.device.Resume(); err != nil {
			return nil, fmt.Errorf("%w: resuming output device: %v", domain.ErrPlayback, err)
		}
		p.log.Debug("audio output resumed")
	}
	return p.device, nil
}

// Play submits a at rate times natural speed and returns once playback
// has started. There is no way to stop it.
func (p *Player) Play(a *audio.DecodedAudio, rate float64) error {
	if a.ChannelCount() != audio.ChannelCount {
		return fmt.Errorf("%w: expected %d channel(s), got %d", domain.ErrPlayback, audio.ChannelCount, a.ChannelCount())
	}
	if rate <= 0 {
		return fmt.Errorf("%w: invalid playback rate %.2f", domain.ErrPlayback, rate)
	}

	dev, err := p.EnsureReady()
	if err != nil {
		return err
	}

	// Fold any sample-rate mismatch into the resampling ratio.
	ratio := rate * float64(a.SampleRate) / float64(audio.SampleRate)
	pcm := audio.EncodePCM16(audio.Resample(a, ratio))

	if err := dev.Submit(pcm); err != nil {
		return fmt.Errorf("%w: submitting audio: %v", domain.ErrPlayback, err)
	}
	p.log.Debug("playing %s of speech at %.1fx", a.Duration(), rate)
	return nil
}

// Suspend pauses the device if it has been opened.
func (p *Player) Suspend() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device == nil {
		return nil
	}
	if err := p.device.Suspend(); err != nil {
		return fmt.Errorf("%w: suspending output device: %v", domain.ErrPlayback, err)
	}
	return nil
}
