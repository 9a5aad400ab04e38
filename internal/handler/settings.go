package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/duetlabs/duet/internal/auth"
	"github.com/duetlabs/duet/internal/store"
)

type SettingsHandler struct {
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewSettingsHandler(settings *store.SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

func (h *SettingsHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	theme, err := h.settings.GetTheme(ac.UserID)
	if err != nil {
		h.logger.Error("get theme", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get theme")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": theme})
}

type themeRequest struct {
	Theme string `json:"theme"`
}

var validThemes = map[string]bool{
	"light":  true,
	"dark":   true,
	"blue":   true,
	"green":  true,
	"purple": true,
}

func (h *SettingsHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var req themeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !validThemes[req.Theme] {
		writeError(w, http.StatusBadRequest, "unknown theme")
		return
	}

	if err := h.settings.SetTheme(ac.UserID, req.Theme); err != nil {
		h.logger.Error("set theme", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save theme")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": req.Theme})
}
