package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Per-user durable preferences. An economy reset leaves these untouched.
const (
	SettingTheme = "theme"
)

// DefaultTheme matches the product default.
const DefaultTheme = "dark"

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(userID int64, key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE user_id = ? AND key = ?`, userID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(userID int64, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// GetTheme returns the user's theme, falling back to the default.
func (s *SettingsStore) GetTheme(userID int64) (string, error) {
	theme, err := s.Get(userID, SettingTheme)
	if err != nil {
		return "", err
	}
	if theme == "" {
		return DefaultTheme, nil
	}
	return theme, nil
}

func (s *SettingsStore) SetTheme(userID int64, theme string) error {
	return s.Set(userID, SettingTheme, theme)
}
