package speech

import (
	"errors"
	"sync"
	"testing"

	"github.com/hammamikhairi/mysteryhost/internal/audio"
	"github.com/hammamikhairi/mysteryhost/internal/domain"
)

func TestPlayerOpensOnceAndResumesEveryTime(t *testing.T) {
	var opened int
	var dev *DiscardDevice
	open := func(rate, ch int) (Device, error) {
		opened++
		d, _ := OpenDiscard(quietLog(), true)(rate, ch)
		dev = d.(*DiscardDevice)
		return dev, nil
	}
	p := NewPlayer(open, quietLog())

	a := &audio.DecodedAudio{SampleRate: audio.SampleRate, Channels: [][]float32{make([]float32, 2400)}}

	if err := p.Play(a, 1.0); err != nil {
		t.Fatalf("first play: %v", err)
	}
	if dev.Resumes() != 1 {
		t.Fatalf("expected resume on first play, got %d", dev.Resumes())
	}

	// Platform suspends output between plays.
	if err := p.Suspend(); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if err := p.Play(a, 1.0); err != nil {
		t.Fatalf("second play: %v", err)
	}

	if opened != 1 {
		t.Fatalf("expected device opened once, got %d", opened)
	}
	if dev.Resumes() != 2 {
		t.Fatalf("expected 2 resumes, got %d", dev.Resumes())
	}
	if dev.Submitted() != 2 {
		t.Fatalf("expected 2 submissions, got %d", dev.Submitted())
	}
}

func TestPlayerAppliesRate(t *testing.T) {
	var dev Device
	open := func(rate, ch int) (Device, error) {
		d, err := OpenDiscard(quietLog(), false)(rate, ch)
		dev = d
		return d, err
	}
	p := NewPlayer(open, quietLog())

	a := &audio.DecodedAudio{SampleRate: audio.SampleRate, Channels: [][]float32{make([]float32, 24000)}}
	if err := p.Play(a, 1.25); err != nil {
		t.Fatalf("play: %v", err)
	}

	// 24000 frames at 1.25x -> 19200 frames of 2 bytes.
	if got := len(dev.(*DiscardDevice).Last()); got != 38400 {
		t.Fatalf("expected 38400 bytes, got %d", got)
	}
}

func TestPlayerOpenFailure(t *testing.T) {
	calls := 0
	open := func(rate, ch int) (Device, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("no sound card")
		}
		return OpenDiscard(quietLog(), false)(rate, ch)
	}
	p := NewPlayer(open, quietLog())
	a := &audio.DecodedAudio{SampleRate: audio.SampleRate, Channels: [][]float32{make([]float32, 10)}}

	if err := p.Play(a, 1.0); !errors.Is(err, domain.ErrPlayback) {
		t.Fatalf("expected ErrPlayback, got %v", err)
	}
	if err := p.Play(a, 1.0); err != nil {
		t.Fatalf("expected retry to open, got %v", err)
	}
}

func TestPlayerRejectsWrongChannelCount(t *testing.T) {
	p := NewPlayer(OpenDiscard(quietLog(), false), quietLog())
	a := &audio.DecodedAudio{SampleRate: audio.SampleRate, Channels: [][]float32{{0}, {0}}}

	if err := p.Play(a, 1.0); !errors.Is(err, domain.ErrPlayback) {
		t.Fatalf("expected ErrPlayback, got %v", err)
	}
}

type countingControl struct {
	mu       sync.Mutex
	resumes  int
	suspends int
}

func (c *countingControl) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumes++
	return nil
}

func (c *countingControl) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspends++
	return nil
}

func TestOtoDeviceResumedBeforeEveryPlay(t *testing.T) {
	ctrl := &countingControl{}
	dev := &OtoDevice{ctrl: ctrl, log: quietLog()}
	p := NewPlayer(func(int, int) (Device, error) { return dev, nil }, quietLog())

	// Nothing on our side suspended it; the platform may have.
	for i := 0; i < 3; i++ {
		if _, err := p.EnsureReady(); err != nil {
			t.Fatalf("ensure ready %d: %v", i, err)
		}
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.resumes != 3 {
		t.Fatalf("expected resume on every call, got %d", ctrl.resumes)
	}
}
