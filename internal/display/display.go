// Package display provides the terminal control panel using Bubble Tea.
//
// The [UI] type keeps a status panel (countdown, speed, speaking state)
// and an input prompt at the bottom of the terminal. All application
// output is printed above the rendered area via Program.Println / Printf,
// so concurrent writes never garble the display.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/mysteryhost/internal/engine"
)

// refreshInterval is how often the panel re-reads the engine state.
const refreshInterval = 250 * time.Millisecond

const prompt = "host> "

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#1c1917")).
		Foreground(lipgloss.Color("#a8a29e"))

	clockRunStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#fde68a"))

	clockPausedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#d6d3d1"))

	clockLowStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f87171"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a8a29e"))

	speakingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c4b5fd"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#57534e"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a78bfa"))

	// BannerStyle is used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a78bfa"))

	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ddd6fe"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#78716c"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a8a29e"))
)

// SnapshotSource is polled for panel state. *engine.Engine implements it.
type SnapshotSource interface {
	Snapshot() engine.Snapshot
}

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] with the state source (blocking). Other
// goroutines may safely call [UI.Println], [UI.Printf], and read from
// [UI.InputChan] at any time after [UI.WaitReady] returns.
type UI struct {
	program *tea.Program
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	done    atomic.Bool
}

// NewUI creates the display. Call Run() to start.
func NewUI() *UI {
	return &UI{
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// Println prints a line above the prompt. Thread-safe. Falls back to
// fmt.Println before the program starts or after it exits.
func (u *UI) Println(a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the prompt on its own line.
func (u *UI) Printf(format string, a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format+"\n", a...)
	}
}

// InputChan returns completed operator commands.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// PrintChat prints a host line (what was announced).
func (u *UI) PrintChat(text string) {
	u.Println(chatStyle.Render("  " + text))
}

// PrintHint prints a secondary/dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an error line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// PrintUserInput echoes the operator's command into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render("host") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text))
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop, polling source for the panel.
// Blocks until quit.
func (u *UI) Run(source SnapshotSource) error {
	ti := textinput.New()
	// Plain-text prompt: styled prompts break textinput's width math.
	ti.Prompt = prompt
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#a78bfa"))
	ti.Placeholder = "help"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	m := model{
		source:  source,
		input:   ti,
		inputCh: u.inputCh,
		readyCh: u.readyCh,
		snap:    source.Snapshot(),
		echoFn: func(v string) {
			u.PrintUserInput(v)
		},
	}

	u.program = tea.NewProgram(m)
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	source  SnapshotSource
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	echoFn  func(string)
	snap    engine.Snapshot
	width   int
}

type tickMsg time.Time

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeySpace:
			// Space on an empty line toggles the countdown.
			if m.input.Value() == "" {
				m.inputCh <- "toggle"
				return m, nil
			}
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) != "" {
				m.inputCh <- v
				echoFn := m.echoFn
				return m, func() tea.Msg {
					echoFn(v)
					return nil
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(prompt) {
			m.input.Width = msg.Width - len(prompt)
		}
		return m, nil

	case tickMsg:
		m.snap = m.source.Snapshot()
		return m, tea.Batch(tickCmd(), tea.SetWindowTitle(titleFor(m.snap)))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(renderPanel(m.snap, m.width))
	b.WriteByte('\n')
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

// ── Rendering ────────────────────────────────────────────────────

// statusLabel describes the countdown phase.
func statusLabel(s engine.Snapshot) string {
	switch {
	case s.Timer.Running:
		return "RUNNING"
	case s.Timer.Remaining == 0:
		return "TIME UP"
	default:
		return "PAUSED"
	}
}

// renderPanel draws the status bar for snapshot s.
func renderPanel(s engine.Snapshot, width int) string {
	clockStyle := clockPausedStyle
	switch {
	case s.Timer.Remaining <= 60:
		clockStyle = clockLowStyle
	case s.Timer.Running:
		clockStyle = clockRunStyle
	}

	parts := []string{
		clockStyle.Render(s.Clock),
		labelStyle.Render(statusLabel(s)),
		labelStyle.Render(fmt.Sprintf("speed %.1fx", s.Speed)),
	}
	if s.Speaking {
		parts = append(parts, speakingStyle.Render("● speaking"))
	}
	parts = append(parts, labelStyle.Render("presets "+presetHint(s.Presets)))

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	if width <= 0 {
		width = 80
	}
	return barBg.Width(width).Render(content)
}

// presetHint lists preset durations in minutes, e.g. "5/10/15".
func presetHint(seconds []int) string {
	mins := make([]string, len(seconds))
	for i, s := range seconds {
		mins[i] = fmt.Sprintf("%d", s/60)
	}
	return strings.Join(mins, "/") + "m"
}

func titleFor(s engine.Snapshot) string {
	if s.Timer.Running {
		return "Mystery Host · " + s.Clock
	}
	return "Mystery Host · " + s.Clock + " (" + strings.ToLower(statusLabel(s)) + ")"
}
