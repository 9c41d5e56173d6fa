package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/mysteryhost/internal/audio"
	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

// Output is where decoded speech goes. *Player implements it.
type Output interface {
	Play(a *audio.DecodedAudio, rate float64) error
}

// Metrics receives announcement outcomes and synthesis latency.
type Metrics interface {
	ObserveAnnouncement(outcome string)
	ObserveSynthesis(d time.Duration)
}

// SpeakerOption configures the Speaker.
type SpeakerOption func(*Speaker)

// WithVoice sets the voice sent with every request. Empty means the
// synthesizer's default.
func WithVoice(voice string) SpeakerOption {
	return func(s *Speaker) {
		s.voice = voice
	}
}

// WithTone sets the delivery instruction.
func WithTone(tone string) SpeakerOption {
	return func(s *Speaker) {
		s.tone = tone
	}
}

// WithSynthesisTimeout bounds each synthesis call. Zero disables the bound.
func WithSynthesisTimeout(d time.Duration) SpeakerOption {
	return func(s *Speaker) {
		s.timeout = d
	}
}

// WithCache serves repeated lines from c instead of the network.
func WithCache(c *AudioCache) SpeakerOption {
	return func(s *Speaker) {
		s.cache = c
	}
}

// WithHistory records every accepted announcement in h.
func WithHistory(h domain.HistoryStore) SpeakerOption {
	return func(s *Speaker) {
		s.history = h
	}
}

// WithSpeakingHook is called with true when an announcement is accepted
// and with false when it completes.
func WithSpeakingHook(fn func(speaking bool)) SpeakerOption {
	return func(s *Speaker) {
		s.onSpeaking = fn
	}
}

// WithMetrics reports outcomes to m.
func WithMetrics(m Metrics) SpeakerOption {
	return func(s *Speaker) {
		s.metrics = m
	}
}

// Speaker turns text into audible speech: one synthesis call, decode,
// then fire-and-forget playback. At most one announcement is in flight;
// a second one arriving meanwhile is rejected, not queued.
type Speaker struct {
	synth   domain.Synthesizer
	output  Output
	log     *logger.Logger
	voice   string
	tone    string
	timeout time.Duration
	cache   *AudioCache
	history domain.HistoryStore
	metrics Metrics

	mu         sync.Mutex
	speaking   bool
	onSpeaking func(bool)
}

// NewSpeaker creates a speaker over synth and output.
func NewSpeaker(synth domain.Synthesizer, output Output, log *logger.Logger, opts ...SpeakerOption) *Speaker {
	s := &Speaker{
		synth:   synth,
		output:  output,
		log:     log,
		tone:    DefaultTone,
		timeout: DefaultSynthesisTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnSpeaking replaces the speaking hook. See WithSpeakingHook.
func (s *Speaker) OnSpeaking(fn func(speaking bool)) {
	s.mu.Lock()
	s.onSpeaking = fn
	s.mu.Unlock()
}

// IsSpeaking reports whether an announcement is in flight.
func (s *Speaker) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Announce speaks operator text at speed. See AnnounceFrom.
func (s *Speaker) Announce(ctx context.Context, text string, speed float64) (*domain.Announcement, error) {
	return s.AnnounceFrom(ctx, domain.SourceOperator, text, speed)
}

// AnnounceFrom speaks text at speed and returns once playback has started.
//
// Blank text returns ErrEmptyText and a call made while another is in
// flight returns ErrBusy; neither touches the network or the audio device.
// Failures wrap ErrSynthesis, ErrDecode or ErrPlayback. The speaking flag
// is released on every path.
func (s *Speaker) AnnounceFrom(ctx context.Context, source domain.AnnouncementSource, text string, speed float64) (*domain.Announcement, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.observe(domain.ErrEmptyText)
		return nil, domain.ErrEmptyText
	}
	if !domain.ValidSpeed(speed) {
		err := fmt.Errorf("%w: %.2f", domain.ErrInvalidSpeed, speed)
		s.observe(err)
		return nil, err
	}
	if !s.acquire() {
		s.log.Debug("speaker: busy, dropping %s", truncate(text, 40))
		s.observe(domain.ErrBusy)
		return nil, domain.ErrBusy
	}
	defer s.release()

	rec := &domain.Announcement{
		ID:        uuid.NewString(),
		Text:      text,
		Speed:     speed,
		Source:    source,
		StartedAt: time.Now(),
	}
	s.log.Info("speaker: announcing (%s, %.1fx): %s", source, speed, truncate(text, 60))

	err := s.speak(ctx, rec)
	rec.FinishedAt = time.Now()
	if err != nil {
		rec.Err = err.Error()
		s.log.Error("speaker: announcement %s failed: %v", rec.ID, err)
	}
	s.observe(err)
	s.record(ctx, rec)
	return rec, err
}

// speak runs synthesize, decode, play for rec.
func (s *Speaker) speak(ctx context.Context, rec *domain.Announcement) error {
	req := domain.SynthesisRequest{Tone: s.tone, Text: rec.Text, Voice: s.voice}

	payload, cached, err := s.synthesize(ctx, req)
	if err != nil {
		return err
	}
	decoded, err := decodePayload(payload)
	if err != nil && cached {
		// Drop the bad entry and go to the network once.
		s.log.Warn("speaker: dropping unplayable cache entry for %s: %v", truncate(rec.Text, 40), err)
		s.cache.Delete(req)
		if payload, cached, err = s.synthesize(ctx, req); err != nil {
			return err
		}
		decoded, err = decodePayload(payload)
	}
	if err != nil {
		return err
	}
	rec.Cached = cached

	if !cached && s.cache != nil {
		s.cache.Put(req, payload)
	}

	if err := s.output.Play(decoded, rec.Speed); err != nil {
		if errors.Is(err, domain.ErrPlayback) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrPlayback, err)
	}
	return nil
}

// decodePayload turns a base64 PCM16 payload into 24 kHz mono audio.
func decodePayload(payload string) (*audio.DecodedAudio, error) {
	raw, err := audio.DecodeBase64(payload)
	if err != nil {
		return nil, err
	}
	return audio.DecodePCM16(raw, audio.SampleRate, audio.ChannelCount)
}

// synthesize returns the payload for req from the cache or the network.
func (s *Speaker) synthesize(ctx context.Context, req domain.SynthesisRequest) (string, bool, error) {
	if s.cache != nil {
		if payload, ok := s.cache.Get(req); ok {
			return payload, true, nil
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	payload, err := s.synth.Synthesize(ctx, req)
	if s.metrics != nil {
		s.metrics.ObserveSynthesis(time.Since(start))
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", domain.ErrSynthesis, err)
	}
	if payload == "" {
		return "", false, fmt.Errorf("%w: no audio in response", domain.ErrSynthesis)
	}
	s.log.Debug("speaker: synthesized in %s", time.Since(start).Round(time.Millisecond))
	return payload, false, nil
}

// Prefetch synthesizes texts into the cache without playing them, so the
// fixed lines start instantly later. Blocks until every request finishes;
// callers usually run it in a goroutine. No-op without a cache.
func (s *Speaker) Prefetch(ctx context.Context, texts ...string) {
	if s.cache == nil {
		return
	}

	var wg sync.WaitGroup
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		req := domain.SynthesisRequest{Tone: s.tone, Text: text, Voice: s.voice}
		if payload, ok := s.cache.Get(req); ok {
			if _, err := decodePayload(payload); err == nil {
				s.log.Debug("prefetch: already cached: %s", truncate(text, 40))
				continue
			}
			s.cache.Delete(req)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, _, err := s.synthesize(ctx, req)
			if err != nil {
				s.log.Warn("prefetch: %v", err)
				return
			}
			if _, err := decodePayload(payload); err != nil {
				s.log.Warn("prefetch: %v", err)
				return
			}
			s.cache.Put(req, payload)
			s.log.Debug("prefetch: cached %s", truncate(text, 40))
		}()
	}
	wg.Wait()
}

func (s *Speaker) acquire() bool {
	s.mu.Lock()
	if s.speaking {
		s.mu.Unlock()
		return false
	}
	s.speaking = true
	hook := s.onSpeaking
	s.mu.Unlock()

	if hook != nil {
		hook(true)
	}
	return true
}

func (s *Speaker) release() {
	s.mu.Lock()
	s.speaking = false
	hook := s.onSpeaking
	s.mu.Unlock()

	if hook != nil {
		hook(false)
	}
}

func (s *Speaker) observe(err error) {
	if s.metrics != nil {
		s.metrics.ObserveAnnouncement(domain.Outcome(err))
	}
}

func (s *Speaker) record(ctx context.Context, rec *domain.Announcement) {
	if s.history == nil {
		return
	}
	if err := s.history.Save(ctx, rec); err != nil {
		s.log.Warn("speaker: saving history: %v", err)
	}
}
