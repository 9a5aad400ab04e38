package model

import "time"

type Reward struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StarCost    int       `json:"star_cost"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Redemption struct {
	ID         int64     `json:"id"`
	RewardID   int64     `json:"reward_id"`
	RedeemedBy int64     `json:"redeemed_by"`
	Rating     *int      `json:"rating,omitempty"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

// StarBalance is the derived view of a user's economy position: earned - spent.
type StarBalance struct {
	UserID      int64  `json:"user_id"`
	UserName    string `json:"user_name"`
	TotalEarned int    `json:"total_earned"`
	TotalSpent  int    `json:"total_spent"`
	Balance     int    `json:"balance"`
}
