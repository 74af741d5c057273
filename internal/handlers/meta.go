package handlers

import (
	"net/http"

	"sitechat-backend/internal/models"
)

// MetaHandler reports process-wide facts that do not belong to a session.
type MetaHandler struct {
	mode models.ModeResponse
}

func NewMetaHandler(mode models.ModeResponse) *MetaHandler {
	return &MetaHandler{mode: mode}
}

func (h *MetaHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mode":   string(h.mode.Mode),
	})
}

func (h *MetaHandler) Mode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mode)
}
