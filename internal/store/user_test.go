package store

import (
	"database/sql"
	"testing"

	"github.com/duetlabs/duet/internal/database"
	"github.com/duetlabs/duet/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, s *UserStore, email string, role model.Role) *model.User {
	t.Helper()
	u, err := s.Create(email, "Test User", role, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func linkTestCouple(t *testing.T, db *sql.DB, a, b int64) {
	t.Helper()
	if _, err := db.Exec(`UPDATE users SET partner_id = ? WHERE id = ?`, b, a); err != nil {
		t.Fatalf("link %d -> %d: %v", a, b, err)
	}
	if _, err := db.Exec(`UPDATE users SET partner_id = ? WHERE id = ?`, a, b); err != nil {
		t.Fatalf("link %d -> %d: %v", b, a, err)
	}
}

func TestUserCreate(t *testing.T) {
	db := setupTestDB(t)
	s := NewUserStore(db)

	u := createTestUser(t, s, "alice@example.com", model.RoleWife)
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}
	if u.Role != model.RoleWife {
		t.Errorf("role = %q, want %q", u.Role, model.RoleWife)
	}
	if u.StarBalance != 0 {
		t.Errorf("star balance = %d, want 0", u.StarBalance)
	}
	if u.PartnerID != nil {
		t.Error("expected nil partner id")
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	s := NewUserStore(db)

	createTestUser(t, s, "alice@example.com", model.RoleWife)
	if _, err := s.Create("alice@example.com", "Other", model.RoleHusband, "hash"); err == nil {
		t.Fatal("expected unique constraint error")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	s := NewUserStore(db)

	u, err := s.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Fatal("expected nil user")
	}
}

func TestUserGetByEmail(t *testing.T) {
	db := setupTestDB(t)
	s := NewUserStore(db)

	created := createTestUser(t, s, "bob@example.com", model.RoleHusband)
	u, err := s.GetByEmail("bob@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u == nil || u.ID != created.ID {
		t.Fatal("expected created user")
	}
}

func TestUserCoupleCode(t *testing.T) {
	db := setupTestDB(t)
	s := NewUserStore(db)

	u := createTestUser(t, s, "alice@example.com", model.RoleWife)
	u, err := s.SetCoupleCode(u.ID, "ABCD1234")
	if err != nil {
		t.Fatalf("set couple code: %v", err)
	}
	if u.CoupleCode == nil || *u.CoupleCode != "ABCD1234" {
		t.Fatalf("couple code = %v, want ABCD1234", u.CoupleCode)
	}

	found, err := s.GetByCoupleCode("ABCD1234")
	if err != nil {
		t.Fatalf("get by couple code: %v", err)
	}
	if found == nil || found.ID != u.ID {
		t.Fatal("expected code owner")
	}

	missing, err := s.GetByCoupleCode("NOPE")
	if err != nil {
		t.Fatalf("get by couple code: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown code")
	}
}

func TestListCouple(t *testing.T) {
	db := setupTestDB(t)
	s := NewUserStore(db)

	alice := createTestUser(t, s, "alice@example.com", model.RoleWife)
	bob := createTestUser(t, s, "bob@example.com", model.RoleHusband)
	createTestUser(t, s, "carol@example.com", model.RoleWife)

	linkTestCouple(t, db, alice.ID, bob.ID)

	users, err := s.ListCouple(alice.ID)
	if err != nil {
		t.Fatalf("list couple: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}

	// Unlinked user sees only themselves.
	solo, err := s.ListCouple(3)
	if err != nil {
		t.Fatalf("list couple: %v", err)
	}
	if len(solo) != 1 {
		t.Fatalf("got %d users, want 1", len(solo))
	}
}
