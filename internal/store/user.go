package store

import (
	"database/sql"
	"fmt"

	"github.com/duetlabs/duet/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var coupleCode sql.NullString
	var partnerID sql.NullInt64

	err := scanner.Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash,
		&u.StarBalance, &coupleCode, &partnerID,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if coupleCode.Valid {
		u.CoupleCode = &coupleCode.String
	}
	if partnerID.Valid {
		u.PartnerID = &partnerID.Int64
	}
	return &u, nil
}

const userCols = `id, email, name, role, password_hash, star_balance, couple_code, partner_id, created_at, updated_at`

func (s *UserStore) Create(email, name string, role model.Role, passwordHash string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (email, name, role, password_hash) VALUES (?, ?, ?, ?)`,
		email, name, role, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByCoupleCode(code string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE couple_code = ?`, code)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by couple code: %w", err)
	}
	return u, nil
}

// ListCouple returns the user and, if linked, their partner.
func (s *UserStore) ListCouple(userID int64) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userCols+` FROM users WHERE id = ? OR partner_id = ? ORDER BY id ASC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list couple: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) SetCoupleCode(id int64, code string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET couple_code = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		code, id,
	)
	if err != nil {
		return nil, fmt.Errorf("set couple code: %w", err)
	}
	return s.GetByID(id)
}
