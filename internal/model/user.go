package model

import "time"

// Role is one of the two fixed partner roles in a couple.
type Role string

const (
	RoleHusband Role = "husband"
	RoleWife    Role = "wife"
)

func (r Role) Valid() bool {
	return r == RoleHusband || r == RoleWife
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	StarBalance  int       `json:"star_balance"`
	CoupleCode   *string   `json:"couple_code,omitempty"`
	PartnerID    *int64    `json:"partner_id,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
