package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"sitechat-backend/internal/middleware"
	"sitechat-backend/internal/models"
	"sitechat-backend/internal/services"
	"sitechat-backend/internal/session"
)

type stubFetcher struct {
	markdown string
	err      error
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (*services.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.Page{URL: url, Markdown: f.markdown, Source: "stub"}, nil
}

type stubChat struct {
	answer string
	err    error
}

func (c *stubChat) Ask(ctx context.Context, pageContent, question string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.answer, nil
}

type stubSockets struct {
	closed []uuid.UUID
}

func (s *stubSockets) Disconnect(id uuid.UUID) { s.closed = append(s.closed, id) }

type failingIssuer struct{}

func (failingIssuer) GenerateToken(uuid.UUID) (string, error) { return "", errors.New("no key") }

func newTestHandler(fetcher services.Fetcher, chat services.ChatEngine) (*SessionHandler, *session.Manager, *stubSockets) {
	m := session.NewManager(fetcher, chat, session.Options{Mode: models.ModeLive})
	sockets := &stubSockets{}
	return NewSessionHandler(m, middleware.NewSessionAuth("test-secret", time.Hour), sockets), m, sockets
}

func sessionRequest(method, target string, body interface{}, id uuid.UUID) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(context.WithValue(req.Context(), middleware.SessionIDKey, id))
}

func decodeSnapshot(t *testing.T, rr *httptest.ResponseRecorder) models.SessionSnapshot {
	t.Helper()
	var snap models.SessionSnapshot
	if err := json.NewDecoder(rr.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	return snap
}

func decodeErrorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	return body.Error.Code
}

func TestSessionHandler_Create(t *testing.T) {
	h, m, _ := newTestHandler(&stubFetcher{}, &stubChat{})

	rr := httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}

	var resp models.CreateSessionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token == "" || resp.Session.Phase != models.PhaseIdle {
		t.Fatalf("unexpected response %+v", resp)
	}

	id, err := middleware.NewSessionAuth("test-secret", time.Hour).ParseToken(resp.Token)
	if err != nil || id != resp.Session.ID {
		t.Fatalf("token must identify the new session, got %s (%v)", id, err)
	}
	if _, err := m.Get(id); err != nil {
		t.Fatalf("session must be registered: %v", err)
	}
}

func TestSessionHandler_Create_TokenFailure(t *testing.T) {
	m := session.NewManager(&stubFetcher{}, &stubChat{}, session.Options{})
	h := NewSessionHandler(m, failingIssuer{}, nil)

	rr := httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if m.Count() != 0 {
		t.Fatalf("session without token must be dropped")
	}
}

func TestSessionHandler_Flow(t *testing.T) {
	h, m, _ := newTestHandler(&stubFetcher{markdown: "Hello world"}, &stubChat{answer: "Hi.\nThere."})
	id := m.Create().ID()

	rr := httptest.NewRecorder()
	h.SubmitURL(rr, sessionRequest(http.MethodPost, "/api/v1/session/url", models.SubmitURLRequest{URL: "https://x.test"}, id))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	snap := decodeSnapshot(t, rr)
	if snap.Phase != models.PhaseReady || snap.Content == nil || *snap.Content != "Hello world" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	rr = httptest.NewRecorder()
	h.Ask(rr, sessionRequest(http.MethodPost, "/api/v1/session/messages", models.SubmitQuestionRequest{Message: "Who?"}, id))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	snap = decodeSnapshot(t, rr)
	if len(snap.History) != 3 || snap.History[2].Text != "Hi.\nThere." {
		t.Fatalf("unexpected history %+v", snap.History)
	}

	rr = httptest.NewRecorder()
	h.Get(rr, sessionRequest(http.MethodGet, "/api/v1/session", nil, id))
	if got := decodeSnapshot(t, rr); len(got.History) != 3 {
		t.Fatalf("expected stored history, got %+v", got.History)
	}

	rr = httptest.NewRecorder()
	h.Reset(rr, sessionRequest(http.MethodPost, "/api/v1/session/reset", nil, id))
	snap = decodeSnapshot(t, rr)
	if snap.Phase != models.PhaseIdle || snap.Content != nil || len(snap.History) != 0 {
		t.Fatalf("unexpected snapshot after reset %+v", snap)
	}
}

func TestSessionHandler_FetchFailureIsNotHTTPError(t *testing.T) {
	fetcher := &stubFetcher{err: &services.ServiceError{Kind: services.KindRemoteRejection, Message: "boom"}}
	h, m, _ := newTestHandler(fetcher, &stubChat{})
	id := m.Create().ID()

	rr := httptest.NewRecorder()
	h.SubmitURL(rr, sessionRequest(http.MethodPost, "/api/v1/session/url", models.SubmitURLRequest{URL: "https://x.test"}, id))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	snap := decodeSnapshot(t, rr)
	if snap.Phase != models.PhaseIdle || len(snap.History) != 1 || snap.History[0].Text != "Error: boom. Please try again." {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSessionHandler_GuardErrors(t *testing.T) {
	h, m, _ := newTestHandler(&stubFetcher{markdown: "c"}, &stubChat{answer: "a"})
	id := m.Create().ID()

	tests := []struct {
		name       string
		call       func(w http.ResponseWriter, r *http.Request)
		req        *http.Request
		wantStatus int
		wantCode   string
	}{
		{"blank url", h.SubmitURL, sessionRequest(http.MethodPost, "/api/v1/session/url", models.SubmitURLRequest{URL: "  "}, id), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad body", h.SubmitURL, sessionRequest(http.MethodPost, "/api/v1/session/url", "not an object", id), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"question before page", h.Ask, sessionRequest(http.MethodPost, "/api/v1/session/messages", models.SubmitQuestionRequest{Message: "hi"}, id), http.StatusConflict, "NOT_READY"},
		{"unknown session", h.Get, sessionRequest(http.MethodGet, "/api/v1/session", nil, uuid.New()), http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tc.call(rr, tc.req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			if code := decodeErrorCode(t, rr); code != tc.wantCode {
				t.Errorf("expected code %q, got %q", tc.wantCode, code)
			}
		})
	}
}

func TestSessionHandler_Delete(t *testing.T) {
	h, m, sockets := newTestHandler(&stubFetcher{}, &stubChat{})
	id := m.Create().ID()

	rr := httptest.NewRecorder()
	h.Delete(rr, sessionRequest(http.MethodDelete, "/api/v1/session", nil, id))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if len(sockets.closed) != 1 || sockets.closed[0] != id {
		t.Errorf("expected sockets of the session to be closed, got %v", sockets.closed)
	}

	rr = httptest.NewRecorder()
	h.Delete(rr, sessionRequest(http.MethodDelete, "/api/v1/session", nil, id))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d on second delete, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestMetaHandler(t *testing.T) {
	h := NewMetaHandler(models.ModeResponse{Mode: models.ModeSimulated, Provider: "azure", Missing: []string{"FIRECRAWL_API_KEY"}})

	rr := httptest.NewRecorder()
	h.Mode(rr, httptest.NewRequest(http.MethodGet, "/api/v1/mode", nil))

	var resp models.ModeResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Mode != models.ModeSimulated || len(resp.Missing) != 1 {
		t.Fatalf("unexpected mode response %+v", resp)
	}

	rr = httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}
