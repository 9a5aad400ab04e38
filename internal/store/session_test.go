package store

import (
	"testing"
	"time"

	"github.com/duetlabs/duet/internal/model"
)

func TestSessionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserStore(db)
	sessions := NewSessionStore(db)

	u := createTestUser(t, users, "alice@example.com", model.RoleWife)

	sess, err := sessions.Create(u.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("expected non-empty token")
	}

	got, err := sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.UserID != u.ID {
		t.Fatal("expected session for user")
	}

	if err := sessions.DeleteByToken(sess.Token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	got, err = sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Fatal("expected session gone after delete")
	}
}

func TestSessionExpiry(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserStore(db)
	sessions := NewSessionStore(db)

	u := createTestUser(t, users, "alice@example.com", model.RoleWife)

	sess, err := sessions.Create(u.ID, -time.Minute)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Fatal("expected expired session to be invisible")
	}

	n, err := sessions.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d sessions, want 1", n)
	}
}

func TestSessionTokensAreUnique(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserStore(db)
	sessions := NewSessionStore(db)

	u := createTestUser(t, users, "alice@example.com", model.RoleWife)

	a, err := sessions.Create(u.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	b, err := sessions.Create(u.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if a.Token == b.Token {
		t.Fatal("expected distinct tokens")
	}
}
