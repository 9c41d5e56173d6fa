// Package engine binds the operator surfaces (terminal panel, HTTP API)
// to the countdown and the announcement speaker.
package engine

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
	"github.com/hammamikhairi/mysteryhost/internal/speech"
	"github.com/hammamikhairi/mysteryhost/internal/timer"
)

// Defaults for a new game.
const (
	DefaultDuration = 600
	MsgAnnounceFail = "TTS 재생 중 오류가 발생했습니다."
)

// DefaultPresets are the quick duration choices, in seconds.
var DefaultPresets = []int{300, 600, 900, 1200, 1800, 2400}

// Announcer speaks text. *speech.Speaker implements it.
type Announcer interface {
	AnnounceFrom(ctx context.Context, source domain.AnnouncementSource, text string, speed float64) (*domain.Announcement, error)
	IsSpeaking() bool
}

// SpeakingSource is an optional interface an Announcer can satisfy to
// report speaking changes as they happen.
type SpeakingSource interface {
	OnSpeaking(fn func(speaking bool))
}

// Suspender releases the audio output on Close.
type Suspender interface {
	Suspend() error
}

// Metrics receives timer alerts.
type Metrics interface {
	ObserveAlert(signal string)
}

// Lines are the fixed scripts spoken by the engine.
type Lines struct {
	OneMinute  string `yaml:"one_minute"`
	TimeUp     string `yaml:"time_up"`
	Discussion string `yaml:"discussion"`
	Vote       string `yaml:"vote"`
}

// DefaultLines returns the stock Korean script.
func DefaultLines() Lines {
	return Lines{
		OneMinute:  speech.LineOneMinute(),
		TimeUp:     speech.LineTimeUp(),
		Discussion: speech.LineDiscussion(),
		Vote:       speech.LineVote(),
	}
}

// merge fills blank fields from d.
func (l Lines) merge(d Lines) Lines {
	if l.OneMinute == "" {
		l.OneMinute = d.OneMinute
	}
	if l.TimeUp == "" {
		l.TimeUp = d.TimeUp
	}
	if l.Discussion == "" {
		l.Discussion = d.Discussion
	}
	if l.Vote == "" {
		l.Vote = d.Vote
	}
	return l
}

// Snapshot is what the panels render.
type Snapshot struct {
	Timer    timer.State `json:"timer"`
	Clock    string      `json:"clock"`
	Speed    float64     `json:"speed"`
	Speaking bool        `json:"speaking"`
	Presets  []int       `json:"presets"`
}

// Option configures the engine.
type Option func(*Engine)

// WithDuration sets the initial countdown length in seconds.
func WithDuration(seconds int) Option {
	return func(e *Engine) {
		e.initial = seconds
	}
}

// WithSpeed sets the initial playback speed.
func WithSpeed(speed float64) Option {
	return func(e *Engine) {
		e.speed = speed
	}
}

// WithPresets replaces the quick duration choices.
func WithPresets(seconds []int) Option {
	return func(e *Engine) {
		if len(seconds) > 0 {
			e.presets = append([]int(nil), seconds...)
		}
	}
}

// WithLines overrides the spoken script. Blank fields keep the default.
func WithLines(l Lines) Option {
	return func(e *Engine) {
		e.lines = l.merge(DefaultLines())
	}
}

// WithPlayer suspends p on Close.
func WithPlayer(p Suspender) Option {
	return func(e *Engine) {
		e.player = p
	}
}

// WithMetrics reports alerts to m.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTimerOptions passes options through to the countdown supervisor.
func WithTimerOptions(opts ...timer.Option) Option {
	return func(e *Engine) {
		e.timerOpts = append(e.timerOpts, opts...)
	}
}

// Engine is the game host controller. It depends only on interfaces and
// is safe for concurrent use from the panel and the HTTP API.
type Engine struct {
	speaker   Announcer
	notifier  domain.Notifier
	log       *logger.Logger
	timer     *timer.Supervisor
	player    Suspender
	metrics   Metrics
	lines     Lines
	presets   []int
	initial   int
	timerOpts []timer.Option

	mu      sync.Mutex
	speed   float64
	subs    map[int]func(Snapshot)
	nextSub int
	closed  bool

	alerts sync.WaitGroup
}

// New creates an engine with a stopped countdown.
func New(speaker Announcer, notifier domain.Notifier, log *logger.Logger, opts ...Option) (*Engine, error) {
	e := &Engine{
		speaker:  speaker,
		notifier: notifier,
		log:      log,
		lines:    DefaultLines(),
		presets:  append([]int(nil), DefaultPresets...),
		initial:  DefaultDuration,
		speed:    domain.DefaultSpeed,
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(e)
	}

	if !domain.ValidSpeed(e.speed) {
		return nil, fmt.Errorf("%w: %.2f", domain.ErrInvalidSpeed, e.speed)
	}
	e.speed = snap(e.speed)

	timerOpts := append([]timer.Option{
		timer.WithSignalHandler(e.onSignal),
		timer.WithObserver(func(timer.State) { e.publish() }),
	}, e.timerOpts...)

	sup, err := timer.New(e.initial, log.Named("timer"), timerOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating countdown: %w", err)
	}
	e.timer = sup

	if src, ok := speaker.(SpeakingSource); ok {
		src.OnSpeaking(func(bool) { e.publish() })
	}

	e.log.Info("engine ready (duration=%s, speed=%.1fx)", timer.FormatClock(e.initial), e.speed)
	return e, nil
}

// ── countdown ────────────────────────────────────────────────────

// SetDuration stops the countdown and loads seconds.
func (e *Engine) SetDuration(seconds int) error {
	return e.timer.SetDuration(seconds)
}

// SetMinutes stops the countdown and loads minutes.
func (e *Engine) SetMinutes(minutes int) error {
	if minutes < 0 {
		return fmt.Errorf("%w: %d minutes", domain.ErrInvalidDuration, minutes)
	}
	return e.timer.SetDuration(minutes * 60)
}

// Start runs the countdown. No-op when nothing is left.
func (e *Engine) Start() { e.timer.Start() }

// Pause stops the countdown.
func (e *Engine) Pause() { e.timer.Pause() }

// Toggle flips between running and paused.
func (e *Engine) Toggle() { e.timer.Toggle() }

// Reset pauses and restores the loaded duration.
func (e *Engine) Reset() { e.timer.Reset() }

// Presets returns the quick duration choices in seconds.
func (e *Engine) Presets() []int {
	return append([]int(nil), e.presets...)
}

// ── speed ────────────────────────────────────────────────────────

// Speed returns the current playback speed.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed sets the playback speed for later announcements, snapped to
// SpeedStep. Values outside [MinSpeed, MaxSpeed] are rejected.
func (e *Engine) SetSpeed(speed float64) (float64, error) {
	if !domain.ValidSpeed(speed) {
		return e.Speed(), fmt.Errorf("%w: %.2f (allowed %.1f-%.1f)", domain.ErrInvalidSpeed, speed, domain.MinSpeed, domain.MaxSpeed)
	}
	speed = snap(speed)

	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()

	e.log.Info("speed set to %.1fx", speed)
	e.publish()
	return speed, nil
}

// NudgeSpeed moves the speed by steps increments, clamped to the range.
func (e *Engine) NudgeSpeed(steps int) float64 {
	e.mu.Lock()
	speed := snap(e.speed + float64(steps)*domain.SpeedStep)
	speed = math.Max(domain.MinSpeed, math.Min(domain.MaxSpeed, speed))
	e.speed = speed
	e.mu.Unlock()

	e.publish()
	return speed
}

// snap rounds to the nearest SpeedStep (one decimal).
func snap(speed float64) float64 {
	return math.Round(speed*10) / 10
}

// ── announcements ────────────────────────────────────────────────

// Announce speaks operator text at the current speed and returns once
// playback has started. Busy and empty-text rejections are returned
// untouched; any other failure is also reported to the operator once.
func (e *Engine) Announce(ctx context.Context, text string) (*domain.Announcement, error) {
	return e.announce(ctx, domain.SourceOperator, text)
}

// AnnouncePreset speaks one of the phase lines.
func (e *Engine) AnnouncePreset(ctx context.Context, p domain.Preset) (*domain.Announcement, error) {
	var text string
	switch p {
	case domain.PresetDiscussion:
		text = e.lines.Discussion
	case domain.PresetVote:
		text = e.lines.Vote
	default:
		return nil, fmt.Errorf("unknown preset %q: %w", p, domain.ErrNotFound)
	}
	return e.announce(ctx, domain.SourcePreset, text)
}

func (e *Engine) announce(ctx context.Context, source domain.AnnouncementSource, text string) (*domain.Announcement, error) {
	rec, err := e.speaker.AnnounceFrom(ctx, source, text, e.Speed())
	if err == nil || domain.IsRejection(err) {
		return rec, err
	}

	e.log.Error("announcement failed (%s): %v", source, err)
	if nerr := e.notifier.NotifyUrgent(ctx, MsgAnnounceFail); nerr != nil {
		e.log.Warn("notify failed: %v", nerr)
	}
	return rec, err
}

// onSignal turns a countdown alert into a spoken line. It runs on the
// tick goroutine, so the announcement is started in the background.
func (e *Engine) onSignal(ctx context.Context, sig timer.Signal, st timer.State) {
	var line string
	switch sig {
	case timer.SignalOneMinute:
		line = e.lines.OneMinute
	case timer.SignalTimeUp:
		line = e.lines.TimeUp
	default:
		return
	}

	// A tick can race Close; the Add must happen before Close waits.
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.log.Debug("alert %s after close dropped", sig)
		return
	}
	e.alerts.Add(1)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.ObserveAlert(sig.String())
	}
	if err := e.notifier.Notify(ctx, line); err != nil {
		e.log.Warn("notify failed: %v", err)
	}

	go func() {
		defer e.alerts.Done()
		if _, err := e.announce(ctx, domain.SourceAlert, line); err != nil && domain.IsRejection(err) {
			e.log.Warn("alert %s dropped: %v", sig, err)
		}
	}()
}

// ── state ────────────────────────────────────────────────────────

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	st := e.timer.State()
	return Snapshot{
		Timer:    st,
		Clock:    st.Clock(),
		Speed:    e.Speed(),
		Speaking: e.speaker.IsSpeaking(),
		Presets:  e.Presets(),
	}
}

// Subscribe calls fn with a fresh snapshot after every change. The
// returned func removes the subscription.
func (e *Engine) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *Engine) publish() {
	e.mu.Lock()
	if len(e.subs) == 0 {
		e.mu.Unlock()
		return
	}
	subs := make([]func(Snapshot), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.Unlock()

	snap := e.Snapshot()
	for _, fn := range subs {
		fn(snap)
	}
}

// Close stops the countdown, waits for alert announcements to finish and
// suspends the audio output.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.timer.Close()
	e.alerts.Wait()

	if e.player != nil {
		if err := e.player.Suspend(); err != nil {
			e.log.Warn("suspending audio output: %v", err)
		}
	}
	e.log.Info("engine closed")
}
