package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/duetlabs/duet/internal/auth"
	"github.com/duetlabs/duet/internal/economy"
	"github.com/duetlabs/duet/internal/email"
	"github.com/duetlabs/duet/internal/model"
	"github.com/duetlabs/duet/internal/store"
	"github.com/duetlabs/duet/internal/syncer"
)

type CoupleHandler struct {
	userStore *store.UserStore
	sync      *syncer.Syncer
	mailer    *email.Client
	logger    *slog.Logger
}

func NewCoupleHandler(us *store.UserStore, sy *syncer.Syncer, mailer *email.Client, logger *slog.Logger) *CoupleHandler {
	return &CoupleHandler{userStore: us, sync: sy, mailer: mailer, logger: logger}
}

// GenerateCode mints (or returns the existing) couple code the partner uses to
// link during registration.
func (h *CoupleHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	user, err := h.userStore.GetByID(ac.UserID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user.CoupleCode == nil {
		code := strings.ToUpper(uuid.NewString()[:8])
		user, err = h.userStore.SetCoupleCode(user.ID, code)
		if err != nil {
			h.logger.Error("set couple code", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to generate code")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"couple_code": *user.CoupleCode})
}

type linkRequest struct {
	CoupleCode string `json:"couple_code"`
}

// Link connects the authenticated user to the owner of the given couple code.
func (h *CoupleHandler) Link(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	code := strings.TrimSpace(req.CoupleCode)
	if code == "" {
		writeError(w, http.StatusBadRequest, "couple code is required")
		return
	}

	owner, err := h.userStore.GetByCoupleCode(code)
	if err != nil {
		h.logger.Error("couple code lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if owner == nil {
		writeError(w, http.StatusNotFound, "couple code not found")
		return
	}

	user, err := h.userStore.GetByID(ac.UserID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	snap := economy.Snapshot{Users: []model.User{*user, *owner}}
	_, changes, err := economy.LinkCouple(snap, user.ID, owner.ID)
	if err != nil {
		writeEconomyError(w, err)
		return
	}
	if err := h.sync.Apply([]int64{user.ID, owner.ID}, changes); err != nil {
		h.logger.Error("link couple", "error", err)
		writeError(w, http.StatusBadGateway, "failed to link couple")
		return
	}

	user, err = h.userStore.GetByID(user.ID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type inviteRequest struct {
	Email string `json:"email"`
}

// Invite emails the user's couple code to their partner-to-be. A code is
// minted on first use.
func (h *CoupleHandler) Invite(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	toEmail := strings.TrimSpace(strings.ToLower(req.Email))
	if toEmail == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if !h.mailer.Configured() {
		writeError(w, http.StatusServiceUnavailable, "email is not configured")
		return
	}

	user, err := h.userStore.GetByID(ac.UserID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user.CoupleCode == nil {
		code := strings.ToUpper(uuid.NewString()[:8])
		user, err = h.userStore.SetCoupleCode(user.ID, code)
		if err != nil {
			h.logger.Error("set couple code", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to generate code")
			return
		}
	}

	if err := h.mailer.SendCoupleInvite(toEmail, user.Name, *user.CoupleCode); err != nil {
		h.logger.Error("send invite", "error", err)
		writeError(w, http.StatusBadGateway, "failed to send invite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
