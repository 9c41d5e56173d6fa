package domain

import "context"

// Synthesizer turns a request into base64-encoded 24 kHz mono 16-bit PCM.
// Implementations make exactly one remote call per invocation.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (string, error)
}

// Notifier delivers messages to the operator. Implementations can write to
// stdout, the terminal panel, or a log.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// HistoryStore keeps announcement records for display. Implementations are
// in-memory; nothing is persisted across runs.
type HistoryStore interface {
	Save(ctx context.Context, a *Announcement) error
	Get(ctx context.Context, id string) (*Announcement, error)
	List(ctx context.Context, limit int) ([]*Announcement, error)
}

// IntentParser converts raw operator input into structured intents.
type IntentParser interface {
	Parse(ctx context.Context, input string) (*Intent, error)
}
