// Package domain defines the core types and interfaces for the game host.
// All other packages depend on domain; domain depends on nothing.
package domain

import (
	"strings"
	"time"
)

// Playback speed bounds and step, as exposed by the operator controls.
const (
	MinSpeed     = 0.5
	MaxSpeed     = 2.0
	SpeedStep    = 0.1
	DefaultSpeed = 1.2
)

// SynthesisRequest is what gets sent to the remote speech service.
type SynthesisRequest struct {
	Tone  string // fixed delivery instruction, prepended for services that take it inline
	Text  string
	Voice string
}

// InstructionText returns the text with the tone instruction prepended.
func (r SynthesisRequest) InstructionText() string {
	if r.Tone == "" {
		return r.Text
	}
	return r.Tone + " " + r.Text
}

// AnnouncementSource tells who asked for an announcement.
type AnnouncementSource int

const (
	SourceOperator AnnouncementSource = iota // free text typed by the host
	SourcePreset                             // discussion / vote buttons
	SourceAlert                              // automatic countdown alert
)

// String returns a human-readable source.
func (s AnnouncementSource) String() string {
	switch s {
	case SourceOperator:
		return "operator"
	case SourcePreset:
		return "preset"
	case SourceAlert:
		return "alert"
	default:
		return "unknown"
	}
}

// MarshalText encodes the source by name.
func (s AnnouncementSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Announcement records one announce attempt. Created when the request is
// accepted, completed when playback starts or the attempt fails.
type Announcement struct {
	ID         string             `json:"id"`
	Text       string             `json:"text"`
	Speed      float64            `json:"speed"`
	Source     AnnouncementSource `json:"source"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Cached     bool               `json:"cached"`          // payload came from the audio cache
	Err        string             `json:"error,omitempty"` // empty on success
}

// Succeeded reports whether playback was started.
func (a *Announcement) Succeeded() bool {
	return !a.FinishedAt.IsZero() && a.Err == ""
}

// ValidSpeed reports whether speed lies within [MinSpeed, MaxSpeed].
func ValidSpeed(speed float64) bool {
	return speed >= MinSpeed && speed <= MaxSpeed
}

// Preset identifies one of the fixed phase announcements.
type Preset string

const (
	PresetDiscussion Preset = "discussion"
	PresetVote       Preset = "vote"
)

// PresetFromString converts a case-insensitive name to a Preset.
func PresetFromString(name string) (Preset, bool) {
	switch Preset(strings.ToLower(strings.TrimSpace(name))) {
	case PresetDiscussion:
		return PresetDiscussion, true
	case PresetVote:
		return PresetVote, true
	}
	return "", false
}
