package domain

// IntentType classifies what the operator wants to do.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentStart
	IntentPause
	IntentToggle
	IntentReset
	IntentSetMinutes  // payload: whole minutes
	IntentSetSeconds  // payload: whole seconds
	IntentSetSpeed    // payload: decimal multiplier
	IntentSay         // payload: free text to announce
	IntentPreset      // payload: preset name
	IntentStatus
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentStart:
		return "start"
	case IntentPause:
		return "pause"
	case IntentToggle:
		return "toggle"
	case IntentReset:
		return "reset"
	case IntentSetMinutes:
		return "set_minutes"
	case IntentSetSeconds:
		return "set_seconds"
	case IntentSetSpeed:
		return "set_speed"
	case IntentSay:
		return "say"
	case IntentPreset:
		return "preset"
	case IntentStatus:
		return "status"
	case IntentHelp:
		return "help"
	case IntentQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Intent represents a parsed operator action.
type Intent struct {
	Type    IntentType
	Payload string
}
