package store

import (
	"database/sql"
	"fmt"

	"github.com/duetlabs/duet/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

// --- Reward methods ---

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	err := scanner.Scan(&r.ID, &r.Title, &r.Description, &r.StarCost, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const rewardCols = `id, title, description, star_cost, created_by, created_at, updated_at`

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// ListForCouple returns rewards created by either member of the couple,
// newest first.
func (s *RewardStore) ListForCouple(userID, partnerID int64) ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardCols+` FROM rewards WHERE created_by IN (?, ?) ORDER BY created_at DESC, id DESC`,
		userID, partnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

// --- Redemption methods ---

func scanRedemption(scanner interface{ Scan(...any) error }) (*model.Redemption, error) {
	var r model.Redemption
	var rating sql.NullInt64

	err := scanner.Scan(&r.ID, &r.RewardID, &r.RedeemedBy, &rating, &r.RedeemedAt)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		v := int(rating.Int64)
		r.Rating = &v
	}
	return &r, nil
}

const redemptionCols = `id, reward_id, redeemed_by, rating, redeemed_at`

func (s *RewardStore) GetRedemptionByID(id int64) (*model.Redemption, error) {
	row := s.db.QueryRow(`SELECT `+redemptionCols+` FROM redemptions WHERE id = ?`, id)
	r, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return r, nil
}

// ListRedemptionsForCouple returns redemptions made by either member,
// newest first.
func (s *RewardStore) ListRedemptionsForCouple(userID, partnerID int64) ([]model.Redemption, error) {
	rows, err := s.db.Query(
		`SELECT `+redemptionCols+` FROM redemptions WHERE redeemed_by IN (?, ?) ORDER BY redeemed_at DESC, id DESC`,
		userID, partnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []model.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, *r)
	}
	return redemptions, rows.Err()
}

// --- Star balance methods ---

// GetStarBalance derives a user's balance from the ledger: the completion
// bonus plus rating of every credited task assigned to them, minus the cost of
// every reward they redeemed. The users.star_balance column is the
// transactional copy; this view is the audit of it.
func (s *RewardStore) GetStarBalance(userID int64) (*model.StarBalance, error) {
	var earned int
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(CASE status
			WHEN 'completed' THEN 5
			WHEN 'evaluated' THEN 5 + COALESCE(rating, 0)
			ELSE 0 END), 0)
		 FROM tasks WHERE assigned_to = ?`,
		userID,
	).Scan(&earned)
	if err != nil {
		return nil, fmt.Errorf("sum stars earned: %w", err)
	}

	var spent int
	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(r.star_cost), 0)
		 FROM redemptions d JOIN rewards r ON r.id = d.reward_id
		 WHERE d.redeemed_by = ?`,
		userID,
	).Scan(&spent)
	if err != nil {
		return nil, fmt.Errorf("sum stars spent: %w", err)
	}

	var name string
	err = s.db.QueryRow(`SELECT name FROM users WHERE id = ?`, userID).Scan(&name)
	if err == sql.ErrNoRows {
		name = "Unknown"
	} else if err != nil {
		return nil, fmt.Errorf("get user name: %w", err)
	}

	return &model.StarBalance{
		UserID:      userID,
		UserName:    name,
		TotalEarned: earned,
		TotalSpent:  spent,
		Balance:     earned - spent,
	}, nil
}
