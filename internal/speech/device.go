package speech

import (
	"bytes"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

// Device is an opened audio output running at a fixed format.
type Device interface {
	// Suspended reports whether output is currently held by the platform
	// or by an earlier Suspend.
	Suspended() bool
	Resume() error
	Suspend() error
	// Submit starts playing interleaved int16 LE PCM and returns without
	// waiting for it to finish.
	Submit(pcm []byte) error
}

// DeviceOpener opens the output device. Called at most once per Player
// until it succeeds.
type DeviceOpener func(sampleRate, channelCount int) (Device, error)

// outputControl is the part of an oto context the device pauses and
// resumes. *oto.Context implements it.
type outputControl interface {
	Resume() error
	Suspend() error
}

// OtoDevice plays through the system audio device via oto. oto allows a
// single context per process.
type OtoDevice struct {
	ctx  *oto.Context
	ctrl outputControl
	log  *logger.Logger
}

// OpenOto returns an opener for the system audio device.
func OpenOto(log *logger.Logger) DeviceOpener {
	return func(sampleRate, channelCount int) (Device, error) {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channelCount,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return nil, err
		}
		<-readyChan

		log.Debug("audio device initialized (rate=%d, channels=%d)", sampleRate, channelCount)
		return &OtoDevice{ctx: ctx, ctrl: ctx, log: log}, nil
	}
}

// Suspended always reports true. oto cannot tell us when the platform has
// suspended output, so the player resumes before every play; Resume on a
// running context is a no-op.
func (d *OtoDevice) Suspended() bool { return true }

// Resume restarts output. Safe to call when already running.
func (d *OtoDevice) Resume() error {
	return d.ctrl.Resume()
}

// Suspend pauses all output.
func (d *OtoDevice) Suspend() error {
	return d.ctrl.Suspend()
}

// Submit starts a new oto player for pcm. The player is closed in the
// background once it drains.
func (d *OtoDevice) Submit(pcm []byte) error {
	if err := d.ctx.Err(); err != nil {
		return err
	}

	player := d.ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	d.log.Debug("audio device: playing %d bytes of PCM", len(pcm))

	go func() {
		for player.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		if err := player.Close(); err != nil {
			d.log.Warn("audio device: closing player: %v", err)
		}
	}()
	return nil
}
