package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hammamikhairi/mysteryhost/internal/display"
	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/engine"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

type cliApp struct {
	engine *engine.Engine
	parser domain.IntentParser
	log    *logger.Logger
	ui     *display.UI
}

func (a *cliApp) run(ctx context.Context) {
	a.status()

	uiCh := a.ui.InputChan()
	for {
		var input string
		var ok bool

		select {
		case <-ctx.Done():
			return
		case input, ok = <-uiCh:
			if !ok {
				return
			}
		}

		intent, err := a.parser.Parse(ctx, input)
		if err != nil {
			a.log.Error("parsing input: %v", err)
			continue
		}

		a.log.Debug("intent: %s (payload=%q)", intent.Type, intent.Payload)
		if intent.Type == domain.IntentQuit {
			a.ui.PrintChat("Good night, detectives.")
			return
		}
		a.handleIntent(ctx, intent)
	}
}

func (a *cliApp) handleIntent(ctx context.Context, intent *domain.Intent) {
	switch intent.Type {
	case domain.IntentHelp:
		a.showHelp()
	case domain.IntentStatus:
		a.status()
	case domain.IntentStart:
		a.engine.Start()
	case domain.IntentPause:
		a.engine.Pause()
	case domain.IntentToggle:
		a.engine.Toggle()
	case domain.IntentReset:
		a.engine.Reset()
	case domain.IntentSetMinutes:
		a.setMinutes(intent.Payload)
	case domain.IntentSetSeconds:
		a.setSeconds(intent.Payload)
	case domain.IntentSetSpeed:
		a.setSpeed(intent.Payload)
	case domain.IntentSay:
		a.say(ctx, intent.Payload)
	case domain.IntentPreset:
		a.preset(ctx, intent.Payload)
	default:
		a.ui.PrintHint(fmt.Sprintf("Unknown command %q. Type 'help' for commands.", intent.Payload))
	}
}

func (a *cliApp) setMinutes(payload string) {
	n, err := strconv.Atoi(payload)
	if err == nil {
		err = a.engine.SetMinutes(n)
	}
	if err != nil {
		a.ui.PrintHint(fmt.Sprintf("Can't set %q minutes.", payload))
		return
	}
	a.ui.PrintChat(fmt.Sprintf("Timer set to %s.", a.engine.Snapshot().Clock))
}

func (a *cliApp) setSeconds(payload string) {
	n, err := strconv.Atoi(payload)
	if err == nil {
		err = a.engine.SetDuration(n)
	}
	if err != nil {
		a.ui.PrintHint(fmt.Sprintf("Can't set %q seconds.", payload))
		return
	}
	a.ui.PrintChat(fmt.Sprintf("Timer set to %s.", a.engine.Snapshot().Clock))
}

func (a *cliApp) setSpeed(payload string) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(payload, "x"), 64)
	if err != nil {
		a.ui.PrintHint(fmt.Sprintf("Can't read speed %q.", payload))
		return
	}
	got, err := a.engine.SetSpeed(v)
	if err != nil {
		a.ui.PrintHint(fmt.Sprintf("Speed must be between %.1fx and %.1fx.", domain.MinSpeed, domain.MaxSpeed))
		return
	}
	a.ui.PrintChat(fmt.Sprintf("Speed %.1fx.", got))
}

// say announces text in the background so the input line stays live
// while the line is synthesized.
func (a *cliApp) say(ctx context.Context, text string) {
	go func() { a.report(a.engine.Announce(ctx, text)) }()
}

func (a *cliApp) preset(ctx context.Context, name string) {
	p, ok := domain.PresetFromString(name)
	if !ok {
		a.ui.PrintHint(fmt.Sprintf("No preset named %q.", name))
		return
	}
	go func() { a.report(a.engine.AnnouncePreset(ctx, p)) }()
}

// report shows the rejections the engine leaves to the caller. Real
// failures have already been surfaced by the notifier.
func (a *cliApp) report(rec *domain.Announcement, err error) {
	switch {
	case err == nil:
		a.ui.PrintHint(fmt.Sprintf("♪ %s", rec.Text))
	case errors.Is(err, domain.ErrBusy):
		a.ui.PrintHint("Still speaking. Try again when the current line finishes.")
	case errors.Is(err, domain.ErrEmptyText):
		a.ui.PrintHint("Nothing to say. Usage: say <text>")
	}
}

func (a *cliApp) status() {
	snap := a.engine.Snapshot()
	state := "paused"
	switch {
	case snap.Timer.Running:
		state = "running"
	case snap.Timer.Remaining == 0:
		state = "time up"
	}
	a.ui.PrintChat(fmt.Sprintf("%s %s, speed %.1fx", snap.Clock, state, snap.Speed))
}

func (a *cliApp) showHelp() {
	a.ui.Println("")
	a.ui.PrintChat("Commands:")
	a.ui.PrintHint("  start | pause | toggle (or space) | reset")
	a.ui.PrintHint("  <minutes>        e.g. 20 or 'set 20' or '20m'")
	a.ui.PrintHint("  sec <seconds>    e.g. 'sec 90' or '90s'")
	a.ui.PrintHint("  speed <x>        0.5 to 2.0, e.g. 'speed 1.3'")
	a.ui.PrintHint("  say <text>       announce a line")
	a.ui.PrintHint("  discussion | vote")
	a.ui.PrintHint("  status | help | quit")
	a.ui.Println("")
}
