package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/duetlabs/duet/internal/auth"
	"github.com/duetlabs/duet/internal/economy"
	"github.com/duetlabs/duet/internal/metrics"
	"github.com/duetlabs/duet/internal/model"
	"github.com/duetlabs/duet/internal/push"
	"github.com/duetlabs/duet/internal/store"
	"github.com/duetlabs/duet/internal/syncer"
)

type RewardHandler struct {
	sync     *syncer.Syncer
	rewards  *store.RewardStore
	notifier *push.Notifier
	logger   *slog.Logger
}

func NewRewardHandler(sy *syncer.Syncer, rewards *store.RewardStore, notifier *push.Notifier, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{sync: sy, rewards: rewards, notifier: notifier, logger: logger}
}

type rewardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StarCost    int    `json:"star_cost"`
}

func (r rewardRequest) input() economy.RewardInput {
	return economy.RewardInput{
		Title:       r.Title,
		Description: r.Description,
		StarCost:    r.StarCost,
	}
}

func coupleIDs(ac auth.Context) (int64, int64) {
	if ac.PartnerID != nil {
		return ac.UserID, *ac.PartnerID
	}
	return ac.UserID, ac.UserID
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	userID, partnerID := coupleIDs(ac)
	rewards, err := h.rewards.ListForCouple(userID, partnerID)
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	snap, err := h.sync.LoadSnapshot(ac.UserID)
	if err != nil {
		h.logger.Error("load snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	_, changes, err := economy.CreateReward(snap, ac.UserID, req.input(), time.Now().UTC())
	if err != nil {
		writeEconomyError(w, err)
		return
	}
	if err := h.sync.Apply(recipients(ac), changes); err != nil {
		h.logger.Error("apply reward create", "error", err)
		writeError(w, http.StatusBadGateway, "failed to save reward")
		return
	}
	writeJSON(w, http.StatusCreated, changes[0].Reward)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reward ID")
		return
	}
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	snap, err := h.sync.LoadSnapshot(ac.UserID)
	if err != nil {
		h.logger.Error("load snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	_, changes, err := economy.EditReward(snap, ac.UserID, id, req.input(), time.Now().UTC())
	if err != nil {
		writeEconomyError(w, err)
		return
	}
	if err := h.sync.Apply(recipients(ac), changes); err != nil {
		h.logger.Error("apply reward update", "error", err)
		writeError(w, http.StatusBadGateway, "failed to save reward")
		return
	}
	writeJSON(w, http.StatusOK, changes[0].Reward)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reward ID")
		return
	}

	snap, err := h.sync.LoadSnapshot(ac.UserID)
	if err != nil {
		h.logger.Error("load snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	_, changes, err := economy.DeleteReward(snap, ac.UserID, id)
	if err != nil {
		writeEconomyError(w, err)
		return
	}
	if err := h.sync.Apply(recipients(ac), changes); err != nil {
		h.logger.Error("apply reward delete", "error", err)
		writeError(w, http.StatusBadGateway, "failed to delete reward")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Redeem debits the reward's cost and records the single redemption. The
// in-memory checks fail fast; the transaction's UNIQUE constraint and guarded
// balance update decide races.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reward ID")
		return
	}

	snap, err := h.sync.LoadSnapshot(ac.UserID)
	if err != nil {
		h.logger.Error("load snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	_, changes, err := economy.RedeemReward(snap, ac.UserID, id, time.Now().UTC())
	if err != nil {
		writeEconomyError(w, err)
		return
	}
	if err := h.sync.Apply(recipients(ac), changes); err != nil {
		if isEconomyErr(err) {
			writeEconomyError(w, err)
			return
		}
		h.logger.Error("apply redemption", "error", err)
		writeError(w, http.StatusBadGateway, "failed to redeem reward")
		return
	}

	reward, err := h.rewards.GetByID(id)
	if err != nil || reward == nil {
		h.logger.Error("reload reward", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.RewardsRedeemed.Inc()
	metrics.StarsSpent.Add(float64(reward.StarCost))
	go h.notifier.RewardRedeemed(reward.CreatedBy, reward)
	writeJSON(w, http.StatusCreated, changes[0].Redemption)
}

func (h *RewardHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	userID, partnerID := coupleIDs(ac)
	redemptions, err := h.rewards.ListRedemptionsForCouple(userID, partnerID)
	if err != nil {
		h.logger.Error("list redemptions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list redemptions")
		return
	}
	if redemptions == nil {
		redemptions = []model.Redemption{}
	}
	writeJSON(w, http.StatusOK, redemptions)
}

type rateRequest struct {
	Rating int `json:"rating"`
}

func (h *RewardHandler) RateRedemption(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid redemption ID")
		return
	}
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	snap, err := h.sync.LoadSnapshot(ac.UserID)
	if err != nil {
		h.logger.Error("load snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	_, changes, err := economy.RateRedemption(snap, ac.UserID, id, req.Rating)
	if err != nil {
		writeEconomyError(w, err)
		return
	}
	if err := h.sync.Apply(recipients(ac), changes); err != nil {
		h.logger.Error("apply redemption rating", "error", err)
		writeError(w, http.StatusBadGateway, "failed to rate redemption")
		return
	}
	writeJSON(w, http.StatusOK, changes[0].Redemption)
}

// Balance returns the caller's own audited star balance.
func (h *RewardHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	b, err := h.rewards.GetStarBalance(ac.UserID)
	if err != nil {
		h.logger.Error("get star balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Balances returns the audited star balances for both members of the couple.
func (h *RewardHandler) Balances(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	userID, partnerID := coupleIDs(ac)

	balances := []model.StarBalance{}
	ids := []int64{userID}
	if partnerID != userID {
		ids = append(ids, partnerID)
	}
	for _, id := range ids {
		b, err := h.rewards.GetStarBalance(id)
		if err != nil {
			h.logger.Error("get star balance", "user_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get balances")
			return
		}
		balances = append(balances, *b)
	}
	writeJSON(w, http.StatusOK, balances)
}
