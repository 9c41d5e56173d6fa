// Package conversation provides command parsing and operator notification
// implementations for the terminal panel.
package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*KeywordParser)(nil)

// KeywordParser matches typed commands to intents using keywords and
// simple patterns. English and Korean keywords are both accepted.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
	group  int // capture group carried as payload, 0 for none
}

// NewKeywordParser creates a keyword-based command parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(start|go|begin|시작)$`), domain.IntentStart, 0},
		{regexp.MustCompile(`(?i)^(pause|stop|p|정지|일시정지)$`), domain.IntentPause, 0},
		{regexp.MustCompile(`(?i)^(toggle|t)$`), domain.IntentToggle, 0},
		{regexp.MustCompile(`(?i)^(reset|r|리셋|초기화)$`), domain.IntentReset, 0},
		{regexp.MustCompile(`^(\d{1,3})$`), domain.IntentSetMinutes, 1},
		{regexp.MustCompile(`(?i)^(?:set|min|minutes?|분)\s+(\d{1,3})$`), domain.IntentSetMinutes, 1},
		{regexp.MustCompile(`(?i)^(\d{1,3})\s*(?:m|min|분)$`), domain.IntentSetMinutes, 1},
		{regexp.MustCompile(`(?i)^(?:sec|secs|seconds?|초)\s+(\d{1,5})$`), domain.IntentSetSeconds, 1},
		{regexp.MustCompile(`(?i)^(\d{1,5})\s*(?:s|sec|초)$`), domain.IntentSetSeconds, 1},
		{regexp.MustCompile(`(?i)^(?:speed|속도)\s+(\d+(?:\.\d+)?)x?$`), domain.IntentSetSpeed, 1},
		{regexp.MustCompile(`(?i)^(?:say|announce|방송)\s+(.+)$`), domain.IntentSay, 1},
		{regexp.MustCompile(`(?i)^(discussion|discuss|토론)$`), domain.IntentPreset, 0},
		{regexp.MustCompile(`(?i)^(vote|투표)$`), domain.IntentPreset, 0},
		{regexp.MustCompile(`(?i)^(status|info|상태)$`), domain.IntentStatus, 0},
		{regexp.MustCompile(`(?i)^(help|h|\?|도움말)$`), domain.IntentHelp, 0},
		{regexp.MustCompile(`(?i)^(quit|exit|q|종료)$`), domain.IntentQuit, 0},
	}
	return p
}

// Parse converts operator input into an intent.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		p.log.Debug("matched intent: %s", rule.intent)

		intent := &domain.Intent{Type: rule.intent}
		switch {
		case rule.intent == domain.IntentPreset:
			intent.Payload = string(presetFor(m[1]))
		case rule.group > 0:
			intent.Payload = strings.TrimSpace(m[rule.group])
		}
		return intent, nil
	}

	p.log.Debug("no match, returning unknown intent")
	return &domain.Intent{Type: domain.IntentUnknown, Payload: trimmed}, nil
}

// presetFor maps a matched keyword to its preset.
func presetFor(word string) domain.Preset {
	switch strings.ToLower(word) {
	case "vote", "투표":
		return domain.PresetVote
	default:
		return domain.PresetDiscussion
	}
}
