package handler

import (
	"log/slog"
	"net/http"

	"github.com/duetlabs/duet/internal/auth"
	"github.com/duetlabs/duet/internal/economy"
	"github.com/duetlabs/duet/internal/syncer"
)

type ResetHandler struct {
	sync   *syncer.Syncer
	logger *slog.Logger
}

func NewResetHandler(sy *syncer.Syncer, logger *slog.Logger) *ResetHandler {
	return &ResetHandler{sync: sy, logger: logger}
}

// Reset wipes tasks, rewards, and redemptions and zeroes balances. Accounts,
// partner links, sessions, and themes survive.
func (h *ResetHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	snap, err := h.sync.LoadSnapshot(ac.UserID)
	if err != nil {
		h.logger.Error("load snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	_, changes, err := economy.Reset(snap)
	if err != nil {
		writeEconomyError(w, err)
		return
	}
	if err := h.sync.Apply(recipients(ac), changes); err != nil {
		h.logger.Error("apply reset", "error", err)
		writeError(w, http.StatusBadGateway, "failed to reset")
		return
	}

	h.logger.Info("economy reset", "requested_by", ac.UserID)
	w.WriteHeader(http.StatusNoContent)
}
