package timer

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

// SignalHandler receives countdown alerts. It runs on the tick goroutine
// before observers see the tick, so long work should be handed off.
type SignalHandler func(ctx context.Context, sig Signal, st State)

// Observer receives a snapshot after every state change.
type Observer func(st State)

// Option configures the supervisor.
type Option func(*Supervisor)

// WithClock sets the clock used for the tick schedule. Tests pass a
// clockwork.FakeClock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Supervisor) {
		s.clock = c
	}
}

// WithTickInterval sets how much wall time one countdown second takes.
func WithTickInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		s.tickInterval = d
	}
}

// WithSignalHandler sets the alert handler.
func WithSignalHandler(h SignalHandler) Option {
	return func(s *Supervisor) {
		s.onSignal = h
	}
}

// WithObserver adds a state observer.
func WithObserver(fn Observer) Option {
	return func(s *Supervisor) {
		s.observers = append(s.observers, fn)
	}
}

// task is the handle of one scheduled tick run. A new task is created on
// every transition to running and cancelled on every transition away.
type task struct {
	cancel context.CancelFunc
	ticker clockwork.Ticker
}

// Supervisor owns a Countdown and the recurring tick that drives it.
// All methods are safe for concurrent use.
type Supervisor struct {
	clock        clockwork.Clock
	log          *logger.Logger
	tickInterval time.Duration
	onSignal     SignalHandler
	observers    []Observer

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	countdown *Countdown
	task      *task
	closed    bool
}

// New creates a stopped supervisor loaded with seconds.
func New(seconds int, log *logger.Logger, opts ...Option) (*Supervisor, error) {
	cd, err := NewCountdown(seconds)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		clock:        clockwork.NewRealClock(),
		log:          log,
		tickInterval: time.Second,
		ctx:          ctx,
		cancel:       cancel,
		countdown:    cd,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start runs the countdown if it has time left. Idempotent.
func (s *Supervisor) Start() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.countdown.Start()
	changed := s.countdown.Running() && s.task == nil
	if changed {
		s.task = s.scheduleLocked()
	}
	st := s.countdown.State()
	s.mu.Unlock()

	if changed {
		s.log.Info("countdown started at %s", st.Clock())
		s.publish(st)
	}
}

// Pause stops the countdown and cancels the tick. Idempotent.
func (s *Supervisor) Pause() {
	s.mu.Lock()
	wasRunning := s.countdown.Running()
	s.countdown.Pause()
	s.cancelTaskLocked()
	st := s.countdown.State()
	s.mu.Unlock()

	if wasRunning {
		s.log.Info("countdown paused at %s", st.Clock())
		s.publish(st)
	}
}

// Toggle starts a stopped countdown or pauses a running one.
func (s *Supervisor) Toggle() {
	if s.State().Running {
		s.Pause()
		return
	}
	s.Start()
}

// Reset pauses and restores the loaded duration.
func (s *Supervisor) Reset() {
	s.mu.Lock()
	s.countdown.Reset()
	s.cancelTaskLocked()
	st := s.countdown.State()
	s.mu.Unlock()

	s.log.Info("countdown reset to %s", st.Clock())
	s.publish(st)
}

// SetDuration stops the countdown and loads a new duration.
func (s *Supervisor) SetDuration(seconds int) error {
	s.mu.Lock()
	if err := s.countdown.SetDuration(seconds); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cancelTaskLocked()
	st := s.countdown.State()
	s.mu.Unlock()

	s.log.Info("countdown duration set to %s", st.Clock())
	s.publish(st)
	return nil
}

// State returns a snapshot.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdown.State()
}

// Close cancels the tick and stops accepting Start. In-flight signal
// handlers see their context cancelled.
func (s *Supervisor) Close() {
	s.mu.Lock()
	s.closed = true
	s.countdown.Pause()
	s.cancelTaskLocked()
	s.mu.Unlock()

	s.cancel()
	s.log.Debug("countdown supervisor closed")
}

// scheduleLocked creates the tick task. Must be called with s.mu held.
func (s *Supervisor) scheduleLocked() *task {
	ctx, cancel := context.WithCancel(s.ctx)
	t := &task{
		cancel: cancel,
		ticker: s.clock.NewTicker(s.tickInterval),
	}
	go s.loop(ctx, t)
	s.log.Debug("tick task scheduled (interval=%s)", s.tickInterval)
	return t
}

// cancelTaskLocked cancels the current tick task, if any.
// Must be called with s.mu held.
func (s *Supervisor) cancelTaskLocked() {
	if s.task == nil {
		return
	}
	s.task.cancel()
	s.task = nil
	s.log.Debug("tick task cancelled")
}

// loop is the tick loop of one task.
func (s *Supervisor) loop(ctx context.Context, t *task) {
	defer t.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.ticker.Chan():
			s.tick(t)
		}
	}
}

// tick runs one countdown second for task t. Ticks from a task that has
// since been cancelled are dropped.
func (s *Supervisor) tick(t *task) {
	s.mu.Lock()
	if s.task != t {
		s.mu.Unlock()
		return
	}
	signals := s.countdown.Tick()
	st := s.countdown.State()
	if !st.Running {
		s.cancelTaskLocked()
	}
	s.mu.Unlock()

	for _, sig := range signals {
		s.log.Info("countdown alert %s at %s", sig, st.Clock())
		if s.onSignal != nil {
			s.onSignal(s.ctx, sig, st)
		}
	}

	s.publish(st)
}

func (s *Supervisor) publish(st State) {
	for _, fn := range s.observers {
		fn(st)
	}
}
