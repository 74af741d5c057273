package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestSessionAuth_TokenRoundTrip(t *testing.T) {
	auth := NewSessionAuth("test-secret", time.Hour)
	id := uuid.New()

	token, err := auth.GenerateToken(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}

	other := NewSessionAuth("other-secret", time.Hour)
	if _, err := other.ParseToken(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for foreign secret, got %v", err)
	}
}

func expiredToken(t *testing.T, secret string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"session_id": uuid.NewString(),
		"iat":        time.Now().Add(-2 * time.Hour).Unix(),
		"exp":        time.Now().Add(-time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestSessionAuth_Middleware(t *testing.T) {
	auth := NewSessionAuth("test-secret", time.Hour)
	id := uuid.New()
	valid, _ := auth.GenerateToken(id)

	var seen uuid.UUID
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSessionID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired token", "Bearer " + expiredToken(t, "test-secret"), http.StatusUnauthorized, "TOKEN_EXPIRED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			if tc.wantCode == "" {
				if seen != id {
					t.Errorf("expected session %s in context, got %s", id, seen)
				}
				return
			}

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if body.Error.Code != tc.wantCode {
				t.Errorf("expected code %q, got %q", tc.wantCode, body.Error.Code)
			}
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return current }

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests must be allowed")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("third request in the window must be rejected")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients have their own budget")
	}

	current = current.Add(2 * time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("a new window must reset the budget")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	codes := make([]int, 0, 2)
	var retryAfter string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
		req.RemoteAddr = "10.0.0.1:5000" + string(rune('0'+i))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
		retryAfter = rr.Header().Get("Retry-After")
	}

	if codes[0] != http.StatusCreated || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [201 429], got %v", codes)
	}
	if retryAfter != "60" {
		t.Fatalf("expected Retry-After in seconds, got %q", retryAfter)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if seen == "" || rr.Header().Get("X-Request-ID") != seen {
		t.Fatalf("expected generated request id to be echoed, got %q / %q", seen, rr.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if seen != "abc-123" || rr.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("expected incoming request id to be kept")
	}
}

func TestCORS(t *testing.T) {
	called := false
	handler := CORS("http://localhost:5173/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent || called {
		t.Fatalf("preflight must be answered without calling the handler")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("expected allowed origin header, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.test")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if !called || rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("foreign origin must not be allowed")
	}
}
