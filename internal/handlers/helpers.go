package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"sitechat-backend/internal/models"
	"sitechat-backend/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

// handleSessionError maps the orchestrator's guard errors to HTTP responses.
// field names the request field that was blank, if any.
func handleSessionError(w http.ResponseWriter, r *http.Request, err error, field string) {
	switch {
	case errors.Is(err, session.ErrEmptyInput):
		var fields map[string]string
		if field != "" {
			fields = map[string]string{field: "must not be blank"}
		}
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
	case errors.Is(err, session.ErrBusy):
		writeJSON(w, http.StatusConflict, errorResp("BUSY", "A request for this session is still in progress", r))
	case errors.Is(err, session.ErrNotReady):
		writeJSON(w, http.StatusConflict, errorResp("NOT_READY", "Submit a website URL before asking questions", r))
	case errors.Is(err, session.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
