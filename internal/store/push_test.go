package store

import (
	"testing"

	"github.com/duetlabs/duet/internal/model"
)

func TestPushSubscriptionUpsert(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserStore(db)
	push := NewPushStore(db)

	alice := createTestUser(t, users, "alice@example.com", model.RoleWife)
	bob := createTestUser(t, users, "bob@example.com", model.RoleHusband)

	sub, err := push.Create(alice.ID, "https://push.example/ep1", "p256dh-key", "auth-key")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.UserID != alice.ID {
		t.Errorf("user_id = %d, want %d", sub.UserID, alice.ID)
	}

	// Re-subscribing the same endpoint moves it to the new user.
	sub2, err := push.Create(bob.ID, "https://push.example/ep1", "p256dh-new", "auth-new")
	if err != nil {
		t.Fatalf("re-create subscription: %v", err)
	}
	if sub2.UserID != bob.ID {
		t.Errorf("user_id = %d, want %d", sub2.UserID, bob.ID)
	}

	aliceSubs, err := push.ListByUser(alice.ID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(aliceSubs) != 0 {
		t.Errorf("alice has %d subscriptions, want 0", len(aliceSubs))
	}
}

func TestPushSubscriptionDelete(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserStore(db)
	push := NewPushStore(db)

	alice := createTestUser(t, users, "alice@example.com", model.RoleWife)
	bob := createTestUser(t, users, "bob@example.com", model.RoleHusband)

	sub, err := push.Create(alice.ID, "https://push.example/ep1", "k", "a")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	// Another user cannot delete it.
	if err := push.Delete(sub.ID, bob.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	subs, _ := push.ListByUser(alice.ID)
	if len(subs) != 1 {
		t.Fatalf("subscription deleted by wrong user")
	}

	if err := push.Delete(sub.ID, alice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	subs, _ = push.ListByUser(alice.ID)
	if len(subs) != 0 {
		t.Fatal("expected subscription gone")
	}

	sub2, _ := push.Create(alice.ID, "https://push.example/ep2", "k", "a")
	if err := push.DeleteByEndpoint(sub2.Endpoint); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}
	subs, _ = push.ListByUser(alice.ID)
	if len(subs) != 0 {
		t.Fatal("expected subscription gone")
	}
}
