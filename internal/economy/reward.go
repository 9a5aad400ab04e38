package economy

import (
	"strings"
	"time"

	"github.com/duetlabs/duet/internal/model"
)

// RewardInput carries the caller-supplied fields for creating or editing a reward.
type RewardInput struct {
	Title       string
	Description string
	StarCost    int
}

// CreateReward adds a reward redeemable by the creator's partner. Creation is
// unrestricted by balance.
func CreateReward(s Snapshot, actorID int64, in RewardInput, now time.Time) (Snapshot, []Change, error) {
	if s.userByID(actorID) == nil {
		return s, nil, validationf("unknown user %d", actorID)
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return s, nil, validationf("title is required")
	}
	if in.StarCost <= 0 {
		return s, nil, validationf("star cost must be positive")
	}

	next := s.clone()
	reward := model.Reward{
		ID:          nextRewardID(s),
		Title:       in.Title,
		Description: in.Description,
		StarCost:    in.StarCost,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	next.Rewards = append(next.Rewards, reward)

	return next, []Change{{Op: OpCreate, Entity: EntityReward, Reward: &reward}}, nil
}

// EditReward rewrites a reward's fields. Only the creator may edit, and a
// redeemed reward is frozen so redemption history stays attributable.
func EditReward(s Snapshot, actorID, rewardID int64, in RewardInput, now time.Time) (Snapshot, []Change, error) {
	reward := s.rewardByID(rewardID)
	if reward == nil {
		return s, nil, validationf("unknown reward %d", rewardID)
	}
	if reward.CreatedBy != actorID {
		return s, nil, unauthorizedf("only the creator can edit a reward")
	}
	if s.redemptionForReward(rewardID) != nil {
		return s, nil, invariantf("reward %d has been redeemed and can no longer be edited", rewardID)
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return s, nil, validationf("title is required")
	}
	if in.StarCost <= 0 {
		return s, nil, validationf("star cost must be positive")
	}

	next := s.clone()
	updated := next.rewardByID(rewardID)
	updated.Title = in.Title
	updated.Description = in.Description
	updated.StarCost = in.StarCost
	updated.UpdatedAt = now

	return next, []Change{{Op: OpUpdate, Entity: EntityReward, ID: rewardID, Reward: updated}}, nil
}

// DeleteReward removes an unredeemed reward. Only the creator may delete.
func DeleteReward(s Snapshot, actorID, rewardID int64) (Snapshot, []Change, error) {
	reward := s.rewardByID(rewardID)
	if reward == nil {
		return s, nil, validationf("unknown reward %d", rewardID)
	}
	if reward.CreatedBy != actorID {
		return s, nil, unauthorizedf("only the creator can delete a reward")
	}
	if s.redemptionForReward(rewardID) != nil {
		return s, nil, invariantf("reward %d has been redeemed and can no longer be deleted", rewardID)
	}

	next := s.clone()
	rewards := next.Rewards[:0]
	for _, r := range next.Rewards {
		if r.ID != rewardID {
			rewards = append(rewards, r)
		}
	}
	next.Rewards = rewards

	return next, []Change{{Op: OpDelete, Entity: EntityReward, ID: rewardID}}, nil
}

// RedeemReward debits the reward's cost from the actor and records the
// redemption. Only the creator's partner may redeem, the balance must cover
// the cost, and each reward can be redeemed exactly once.
func RedeemReward(s Snapshot, actorID, rewardID int64, now time.Time) (Snapshot, []Change, error) {
	reward := s.rewardByID(rewardID)
	if reward == nil {
		return s, nil, validationf("unknown reward %d", rewardID)
	}
	actor := s.userByID(actorID)
	if actor == nil {
		return s, nil, validationf("unknown user %d", actorID)
	}
	creator := s.userByID(reward.CreatedBy)
	if creator == nil || creator.PartnerID == nil || *creator.PartnerID != actorID {
		return s, nil, unauthorizedf("only the creator's partner can redeem a reward")
	}
	if s.redemptionForReward(rewardID) != nil {
		return s, nil, invariantf("reward %d has already been redeemed", rewardID)
	}
	if actor.StarBalance < reward.StarCost {
		return s, nil, invariantf("insufficient stars: have %d, need %d", actor.StarBalance, reward.StarCost)
	}

	next := s.clone()
	redemption := model.Redemption{
		ID:         nextRedemptionID(s),
		RewardID:   rewardID,
		RedeemedBy: actorID,
		RedeemedAt: now,
	}
	next.Redemptions = append(next.Redemptions, redemption)
	creditStars(&next, actorID, -reward.StarCost)

	return next, []Change{
		{Op: OpCreate, Entity: EntityRedemption, Redemption: &redemption},
		{Op: OpUpdate, Entity: EntityUser, ID: actorID, StarsDelta: -reward.StarCost},
	}, nil
}

// RateRedemption attaches a 1-5 rating to an existing redemption. Only the
// redeemer may rate; balances are unaffected.
func RateRedemption(s Snapshot, actorID, redemptionID int64, rating int) (Snapshot, []Change, error) {
	if rating < 1 || rating > 5 {
		return s, nil, validationf("rating must be between 1 and 5")
	}
	redemption := s.redemptionByID(redemptionID)
	if redemption == nil {
		return s, nil, validationf("unknown redemption %d", redemptionID)
	}
	if redemption.RedeemedBy != actorID {
		return s, nil, unauthorizedf("only the redeemer can rate a redemption")
	}

	next := s.clone()
	updated := next.redemptionByID(redemptionID)
	r := rating
	updated.Rating = &r

	return next, []Change{{Op: OpUpdate, Entity: EntityRedemption, ID: redemptionID, Redemption: updated}}, nil
}
