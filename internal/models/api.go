package models

import "github.com/google/uuid"

type CreateSessionResponse struct {
	Token   string          `json:"token"`
	Session SessionSnapshot `json:"session"`
}

type SubmitURLRequest struct {
	URL string `json:"url"`
}

type SubmitQuestionRequest struct {
	Message string `json:"message"`
}

type ModeResponse struct {
	Mode     Mode     `json:"mode"`
	Provider string   `json:"provider"`
	Missing  []string `json:"missing_credentials,omitempty"`
}

// WebSocket message types
const (
	EventPhaseChanged    = "phase_changed"
	EventProcessingStep  = "processing_step"
	EventMessagePending  = "message_pending"
	EventMessageResolved = "message_resolved"
	EventSessionReset    = "session_reset"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StepUpdate struct {
	SessionID uuid.UUID `json:"session_id"`
	Step      int       `json:"step"`
	StepName  string    `json:"step_name"`
	Total     int       `json:"total"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
