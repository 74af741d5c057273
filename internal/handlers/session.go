package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	"sitechat-backend/internal/middleware"
	"sitechat-backend/internal/models"
	"sitechat-backend/internal/session"
)

// TokenIssuer signs the bearer token handed out with a new session.
type TokenIssuer interface {
	GenerateToken(sessionID uuid.UUID) (string, error)
}

// SocketCloser drops live event connections of a discarded session.
type SocketCloser interface {
	Disconnect(sessionID uuid.UUID)
}

type SessionHandler struct {
	sessions *session.Manager
	tokens   TokenIssuer
	sockets  SocketCloser
}

func NewSessionHandler(sessions *session.Manager, tokens TokenIssuer, sockets SocketCloser) *SessionHandler {
	return &SessionHandler{sessions: sessions, tokens: tokens, sockets: sockets}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()

	token, err := h.tokens.GenerateToken(s.ID())
	if err != nil {
		log.Printf("Failed to sign token for session %s: %v", s.ID(), err)
		h.sessions.Delete(s.ID())
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create session", r))
		return
	}

	writeJSON(w, http.StatusCreated, models.CreateSessionResponse{
		Token:   token,
		Session: s.Snapshot(),
	})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// SubmitURL blocks until the page is fetched or the fetch failed. Failures
// are part of the returned history, not an HTTP error.
func (h *SessionHandler) SubmitURL(w http.ResponseWriter, r *http.Request) {
	s, ok := h.current(w, r)
	if !ok {
		return
	}

	var req models.SubmitURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	// A client disconnect must not abort the outbound call.
	snap, err := s.SubmitURL(context.WithoutCancel(r.Context()), req.URL)
	if err != nil {
		handleSessionError(w, r, err, "url")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	s, ok := h.current(w, r)
	if !ok {
		return
	}

	var req models.SubmitQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	snap, err := s.SubmitQuestion(context.WithoutCancel(r.Context()), req.Message)
	if err != nil {
		handleSessionError(w, r, err, "message")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Reset(r.Context()))
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if err := h.sessions.Delete(sessionID); err != nil {
		handleSessionError(w, r, err, "")
		return
	}
	if h.sockets != nil {
		h.sockets.Disconnect(sessionID)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Session discarded"})
}

func (h *SessionHandler) current(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(middleware.GetSessionID(r.Context()))
	if err != nil {
		handleSessionError(w, r, err, "")
		return nil, false
	}
	return s, true
}
