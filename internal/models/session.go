package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the position of a session in the Idle → Processing → Ready cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseProcessing Phase = "processing"
	PhaseReady      Phase = "ready"
)

// Mode reports whether outbound calls are real or simulated.
type Mode string

const (
	ModeLive      Mode = "live"
	ModeSimulated Mode = "simulated"
)

type Origin string

const (
	OriginUser      Origin = "user"
	OriginAssistant Origin = "assistant"
)

// Message is one conversation entry. Pending is only ever set on the last
// assistant message while its answer is outstanding.
type Message struct {
	Origin  Origin `json:"origin"`
	Text    string `json:"text"`
	Pending bool   `json:"pending,omitempty"`
}

// SessionSnapshot is a point-in-time copy of a session, safe to hand out.
type SessionSnapshot struct {
	ID         uuid.UUID `json:"id"`
	Phase      Phase     `json:"phase"`
	Mode       Mode      `json:"mode"`
	TargetURL  string    `json:"target_url"`
	Content    *string   `json:"content,omitempty"`
	Source     string    `json:"source,omitempty"`
	Title      string    `json:"title,omitempty"`
	History    []Message `json:"history"`
	Steps      []string  `json:"steps,omitempty"`
	LastActive time.Time `json:"last_active"`
}

// HasPending reports whether the last message is still awaiting an answer.
func (s SessionSnapshot) HasPending() bool {
	n := len(s.History)
	return n > 0 && s.History[n-1].Pending
}
