package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
	"github.com/hammamikhairi/mysteryhost/internal/timer"
)

type call struct {
	source domain.AnnouncementSource
	text   string
	speed  float64
}

// mockAnnouncer records calls and returns err.
type mockAnnouncer struct {
	mu    sync.Mutex
	err   error
	calls []call
	seen  chan call
	hook  func(bool)

	// When gate is set, calls block until it is closed and then report
	// their context error on ctxErrs.
	gate    chan struct{}
	ctxErrs chan error
}

func newMockAnnouncer() *mockAnnouncer {
	return &mockAnnouncer{seen: make(chan call, 16)}
}

func (m *mockAnnouncer) AnnounceFrom(ctx context.Context, source domain.AnnouncementSource, text string, speed float64) (*domain.Announcement, error) {
	c := call{source, text, speed}
	m.mu.Lock()
	m.calls = append(m.calls, c)
	id := fmt.Sprintf("a%d", len(m.calls))
	err := m.err
	m.mu.Unlock()
	m.seen <- c

	if m.gate != nil {
		<-m.gate
		m.ctxErrs <- ctx.Err()
	}

	if errors.Is(err, domain.ErrBusy) || errors.Is(err, domain.ErrEmptyText) {
		return nil, err
	}
	rec := &domain.Announcement{ID: id, Text: text, Speed: speed, Source: source}
	if err != nil {
		rec.Err = err.Error()
	}
	return rec, err
}

func (m *mockAnnouncer) IsSpeaking() bool { return false }

func (m *mockAnnouncer) OnSpeaking(fn func(bool)) { m.hook = fn }

func (m *mockAnnouncer) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// mockNotifier counts notifications.
type mockNotifier struct {
	mu     sync.Mutex
	normal []string
	urgent []string
}

func (n *mockNotifier) Notify(ctx context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.normal = append(n.normal, msg)
	return nil
}

func (n *mockNotifier) NotifyUrgent(ctx context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urgent = append(n.urgent, msg)
	return nil
}

func (n *mockNotifier) urgentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.urgent)
}

type mockPlayer struct{ suspended int }

func (p *mockPlayer) Suspend() error {
	p.suspended++
	return nil
}

func setupEngine(t *testing.T, opts ...Option) (*Engine, *mockAnnouncer, *mockNotifier) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	ann := newMockAnnouncer()
	notes := &mockNotifier{}
	eng, err := New(ann, notes, log, opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(eng.Close)
	return eng, ann, notes
}

func TestNewDefaults(t *testing.T) {
	eng, _, _ := setupEngine(t)

	snap := eng.Snapshot()
	if snap.Timer.Initial != 600 || snap.Timer.Remaining != 600 {
		t.Fatalf("expected 600s loaded, got %+v", snap.Timer)
	}
	if snap.Clock != "10:00" {
		t.Fatalf("expected 10:00, got %s", snap.Clock)
	}
	if snap.Speed != 1.2 {
		t.Fatalf("expected speed 1.2, got %v", snap.Speed)
	}
	if snap.Timer.Running {
		t.Fatal("countdown should start stopped")
	}
	if len(snap.Presets) != 6 || snap.Presets[0] != 300 || snap.Presets[5] != 2400 {
		t.Fatalf("unexpected presets %v", snap.Presets)
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	if _, err := New(newMockAnnouncer(), &mockNotifier{}, log, WithSpeed(3)); !errors.Is(err, domain.ErrInvalidSpeed) {
		t.Fatalf("expected ErrInvalidSpeed, got %v", err)
	}
	if _, err := New(newMockAnnouncer(), &mockNotifier{}, log, WithDuration(-5)); !errors.Is(err, domain.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestSetMinutes(t *testing.T) {
	eng, _, _ := setupEngine(t)

	if err := eng.SetMinutes(15); err != nil {
		t.Fatalf("set minutes: %v", err)
	}
	if got := eng.Snapshot().Timer.Remaining; got != 900 {
		t.Fatalf("expected 900, got %d", got)
	}

	if err := eng.SetMinutes(-1); !errors.Is(err, domain.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if got := eng.Snapshot().Timer.Remaining; got != 900 {
		t.Fatalf("rejected value must not change state, got %d", got)
	}
}

func TestSetSpeed(t *testing.T) {
	eng, _, _ := setupEngine(t)

	tests := []struct {
		in      float64
		want    float64
		wantErr bool
	}{
		{1.23, 1.2, false},
		{0.5, 0.5, false},
		{2.0, 2.0, false},
		{1.96, 2.0, false},
		{0.4, 2.0, true},
		{2.5, 2.0, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.in), func(t *testing.T) {
			got, err := eng.SetSpeed(tt.in)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidSpeed) {
					t.Fatalf("expected ErrInvalidSpeed, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want || eng.Speed() != tt.want {
				t.Fatalf("expected %.1f, got %.2f (engine %.2f)", tt.want, got, eng.Speed())
			}
		})
	}
}

func TestNudgeSpeedClamps(t *testing.T) {
	eng, _, _ := setupEngine(t)

	if got := eng.NudgeSpeed(1); got != 1.3 {
		t.Fatalf("expected 1.3, got %v", got)
	}
	if got := eng.NudgeSpeed(50); got != domain.MaxSpeed {
		t.Fatalf("expected clamp to max, got %v", got)
	}
	if got := eng.NudgeSpeed(-50); got != domain.MinSpeed {
		t.Fatalf("expected clamp to min, got %v", got)
	}
}

func TestAnnounceUsesCurrentSpeed(t *testing.T) {
	eng, ann, _ := setupEngine(t)
	eng.SetSpeed(1.5)

	if _, err := eng.Announce(context.Background(), "범인은 이 안에 있습니다"); err != nil {
		t.Fatalf("announce: %v", err)
	}
	c := <-ann.seen
	if c.speed != 1.5 || c.source != domain.SourceOperator {
		t.Fatalf("unexpected call %+v", c)
	}
}

func TestAnnouncePreset(t *testing.T) {
	eng, ann, _ := setupEngine(t, WithLines(Lines{Vote: "custom vote"}))

	eng.AnnouncePreset(context.Background(), domain.PresetDiscussion)
	eng.AnnouncePreset(context.Background(), domain.PresetVote)

	first, second := <-ann.seen, <-ann.seen
	if first.text != DefaultLines().Discussion || first.source != domain.SourcePreset {
		t.Fatalf("unexpected discussion call %+v", first)
	}
	if second.text != "custom vote" {
		t.Fatalf("expected overridden vote line, got %q", second.text)
	}

	if _, err := eng.AnnouncePreset(context.Background(), domain.Preset("lunch")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnnounceFailureNotifiesOnce(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantUrgent int
	}{
		{"success", nil, 0},
		{"busy", domain.ErrBusy, 0},
		{"empty", domain.ErrEmptyText, 0},
		{"synthesis", fmt.Errorf("%w: status 500", domain.ErrSynthesis), 1},
		{"decode", fmt.Errorf("%w: bad base64", domain.ErrDecode), 1},
		{"playback", fmt.Errorf("%w: device gone", domain.ErrPlayback), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, ann, notes := setupEngine(t)
			ann.setErr(tt.err)

			_, err := eng.Announce(context.Background(), "hello")
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
			if got := notes.urgentCount(); got != tt.wantUrgent {
				t.Fatalf("expected %d urgent notifications, got %d", tt.wantUrgent, got)
			}
			if tt.wantUrgent == 1 && notes.urgent[0] != MsgAnnounceFail {
				t.Fatalf("expected generic message, got %q", notes.urgent[0])
			}
		})
	}
}

func TestCountdownAlertsAreSpoken(t *testing.T) {
	clock := clockwork.NewFakeClock()
	eng, ann, notes := setupEngine(t,
		WithDuration(62),
		WithTimerOptions(timer.WithClock(clock)),
	)

	states := make(chan Snapshot, 256)
	unsubscribe := eng.Subscribe(func(s Snapshot) { states <- s })
	defer unsubscribe()

	eng.Start()
	waitFor(t, states, func(s Snapshot) bool { return s.Timer.Running })

	advance := func(n int) {
		for i := 0; i < n; i++ {
			before := eng.Snapshot().Timer.Remaining
			clock.Advance(time.Second)
			waitFor(t, states, func(s Snapshot) bool { return s.Timer.Remaining < before })
		}
	}

	advance(2)
	c := expectCall(t, ann.seen)
	if c.text != DefaultLines().OneMinute || c.source != domain.SourceAlert {
		t.Fatalf("expected one-minute alert, got %+v", c)
	}

	advance(60)
	c = expectCall(t, ann.seen)
	if c.text != DefaultLines().TimeUp {
		t.Fatalf("expected time-up alert, got %+v", c)
	}
	if eng.Snapshot().Timer.Running {
		t.Fatal("countdown should stop at zero")
	}

	notes.mu.Lock()
	defer notes.mu.Unlock()
	if len(notes.normal) != 2 {
		t.Fatalf("expected 2 operator notices, got %v", notes.normal)
	}
}

func TestResetKeepsAlertAnnouncementRunning(t *testing.T) {
	clock := clockwork.NewFakeClock()
	eng, ann, notes := setupEngine(t,
		WithDuration(61),
		WithTimerOptions(timer.WithClock(clock)),
	)
	ann.gate = make(chan struct{})
	ann.ctxErrs = make(chan error, 1)

	states := make(chan Snapshot, 256)
	unsubscribe := eng.Subscribe(func(s Snapshot) { states <- s })
	defer unsubscribe()

	eng.Start()
	waitFor(t, states, func(s Snapshot) bool { return s.Timer.Running })
	clock.Advance(time.Second)

	c := expectCall(t, ann.seen)
	if c.text != DefaultLines().OneMinute {
		t.Fatalf("expected one-minute alert, got %+v", c)
	}

	// The alert is still synthesizing.
	eng.Reset()
	if err := eng.SetDuration(300); err != nil {
		t.Fatalf("set duration: %v", err)
	}
	close(ann.gate)

	select {
	case err := <-ann.ctxErrs:
		if err != nil {
			t.Fatalf("alert announcement saw cancelled context: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("alert announcement did not finish")
	}
	if notes.urgentCount() != 0 {
		t.Fatal("alert announcement should not have failed")
	}

	snap := eng.Snapshot()
	if snap.Timer.Running || snap.Timer.Remaining != 300 {
		t.Fatalf("expected stopped countdown at 300s, got %+v", snap.Timer)
	}
}

func TestAlertAfterCloseIsDropped(t *testing.T) {
	p := &mockPlayer{}
	ann := newMockAnnouncer()
	notes := &mockNotifier{}
	log := logger.New(logger.LevelOff, nil)
	eng, err := New(ann, notes, log, WithPlayer(p))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	eng.Close()

	// A tick that was already past the supervisor lock when Close ran.
	eng.onSignal(context.Background(), timer.SignalTimeUp, timer.State{})

	select {
	case c := <-ann.seen:
		t.Fatalf("expected no announcement after close, got %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
	notes.mu.Lock()
	defer notes.mu.Unlock()
	if len(notes.normal) != 0 {
		t.Fatalf("expected no notices after close, got %v", notes.normal)
	}
	if p.suspended != 1 {
		t.Fatalf("expected player suspended once, got %d", p.suspended)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	eng, ann, _ := setupEngine(t)

	var mu sync.Mutex
	var got []Snapshot
	unsubscribe := eng.Subscribe(func(s Snapshot) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})

	eng.SetSpeed(1.0)
	eng.SetMinutes(5)
	ann.hook(true)

	mu.Lock()
	n := len(got)
	mu.Unlock()
	if n != 3 {
		t.Fatalf("expected 3 snapshots, got %d", n)
	}

	unsubscribe()
	eng.SetSpeed(1.1)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("expected no snapshots after unsubscribe, got %d", len(got))
	}
	if got[1].Timer.Remaining != 300 {
		t.Fatalf("expected 300 in second snapshot, got %d", got[1].Timer.Remaining)
	}
}

func TestCloseSuspendsPlayer(t *testing.T) {
	p := &mockPlayer{}
	log := logger.New(logger.LevelOff, nil)
	eng, err := New(newMockAnnouncer(), &mockNotifier{}, log, WithPlayer(p))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	eng.Start()
	eng.Close()

	if p.suspended != 1 {
		t.Fatalf("expected player suspended once, got %d", p.suspended)
	}
	eng.Start()
	if eng.Snapshot().Timer.Running {
		t.Fatal("start after close should be ignored")
	}
}

func waitFor(t *testing.T, ch <-chan Snapshot, ok func(Snapshot) bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if ok(s) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for state")
		}
	}
}

func expectCall(t *testing.T, ch <-chan call) call {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for announcement")
	}
	return call{}
}
