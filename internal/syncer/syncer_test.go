package syncer

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/duetlabs/duet/internal/database"
	"github.com/duetlabs/duet/internal/economy"
	"github.com/duetlabs/duet/internal/model"
	"github.com/duetlabs/duet/internal/store"
)

type fixture struct {
	db      *sql.DB
	users   *store.UserStore
	tasks   *store.TaskStore
	rewards *store.RewardStore
	sync    *Syncer
	alice   *model.User
	bob     *model.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	tasks := store.NewTaskStore(db)
	rewards := store.NewRewardStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sync := New(db, users, tasks, rewards, nil, logger)

	alice, err := users.Create("alice@example.com", "Alice", model.RoleWife, "hash")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := users.Create("bob@example.com", "Bob", model.RoleHusband, "hash")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	snap, err := sync.LoadSnapshot(alice.ID)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	// Unlinked users load alone; build the link snapshot by hand.
	snap.Users = []model.User{*alice, *bob}
	_, changes, err := economy.LinkCouple(snap, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("link couple: %v", err)
	}
	if err := sync.Apply([]int64{alice.ID, bob.ID}, changes); err != nil {
		t.Fatalf("apply link: %v", err)
	}

	f := &fixture{db: db, users: users, tasks: tasks, rewards: rewards, sync: sync}
	f.alice, _ = users.GetByID(alice.ID)
	f.bob, _ = users.GetByID(bob.ID)
	return f
}

func (f *fixture) apply(t *testing.T, op func(economy.Snapshot) (economy.Snapshot, []economy.Change, error)) {
	t.Helper()
	snap, err := f.sync.LoadSnapshot(f.alice.ID)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	_, changes, err := op(snap)
	if err != nil {
		t.Fatalf("operation: %v", err)
	}
	if err := f.sync.Apply([]int64{f.alice.ID, f.bob.ID}, changes); err != nil {
		t.Fatalf("apply: %v", err)
	}
}

func (f *fixture) balance(t *testing.T, userID int64) int {
	t.Helper()
	u, err := f.users.GetByID(userID)
	if err != nil || u == nil {
		t.Fatalf("get user %d: %v", userID, err)
	}
	return u.StarBalance
}

func TestLinkPersists(t *testing.T) {
	f := setup(t)
	if f.alice.PartnerID == nil || *f.alice.PartnerID != f.bob.ID {
		t.Fatal("alice not linked to bob")
	}
	if f.bob.PartnerID == nil || *f.bob.PartnerID != f.alice.ID {
		t.Fatal("bob not linked to alice")
	}
}

func TestTaskLifecyclePersists(t *testing.T) {
	f := setup(t)
	now := time.Now().UTC()

	f.apply(t, func(s economy.Snapshot) (economy.Snapshot, []economy.Change, error) {
		return economy.CreateTask(s, f.alice.ID, economy.TaskInput{Title: "Dishes", AssignedTo: f.bob.ID}, now)
	})

	tasks, err := f.tasks.ListForUser(f.bob.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	taskID := tasks[0].ID

	f.apply(t, func(s economy.Snapshot) (economy.Snapshot, []economy.Change, error) {
		return economy.CompleteTask(s, f.bob.ID, taskID, now)
	})
	if got := f.balance(t, f.bob.ID); got != 5 {
		t.Errorf("balance after complete = %d, want 5", got)
	}

	f.apply(t, func(s economy.Snapshot) (economy.Snapshot, []economy.Change, error) {
		return economy.EvaluateTask(s, f.alice.ID, taskID, 4, now)
	})
	if got := f.balance(t, f.bob.ID); got != 9 {
		t.Errorf("balance after evaluate = %d, want 9", got)
	}

	task, _ := f.tasks.GetByID(taskID)
	if task.Status != model.TaskEvaluated {
		t.Errorf("status = %q, want %q", task.Status, model.TaskEvaluated)
	}
	if task.Rating == nil || *task.Rating != 4 {
		t.Errorf("rating = %v, want 4", task.Rating)
	}
	if task.CompletedAt == nil || task.EvaluatedAt == nil {
		t.Error("expected completion and evaluation timestamps")
	}
}

func TestRedemptionPersists(t *testing.T) {
	f := setup(t)
	now := time.Now().UTC()

	// Earn 9 stars for bob.
	f.apply(t, func(s economy.Snapshot) (economy.Snapshot, []economy.Change, error) {
		return economy.CreateTask(s, f.alice.ID, economy.TaskInput{Title: "Dishes", AssignedTo: f.bob.ID}, now)
	})
	taskID := int64(1)
	f.apply(t, func(s economy.Snapshot) (economy.Snapshot, []economy.Change, error) {
		return economy.CompleteTask(s, f.bob.ID, taskID, now)
	})
	f.apply(t, func(s economy.Snapshot) (economy.Snapshot, []economy.Change, error) {
		return economy.EvaluateTask(s, f.alice.ID, taskID, 4, now)
	})

	f.apply(t, func(s economy.Snapshot) (economy.Snapshot, []economy.Change, error) {
		return economy.CreateReward(s, f.alice.ID, economy.RewardInput{Title: "Movie night", StarCost: 6}, now)
	})
	rewardID := int64(1)

	f.apply(t, func(s economy.Snapshot) (economy.Snapshot, []economy.Change, error) {
		return economy.RedeemReward(s, f.bob.ID, rewardID, now)
	})
	if got := f.balance(t, f.bob.ID); got != 3 {
		t.Errorf("balance after redeem = %d, want 3", got)
	}

	redemptions, err := f.rewards.ListRedemptionsForCouple(f.alice.ID, f.bob.ID)
	if err != nil {
		t.Fatalf("list redemptions: %v", err)
	}
	if len(redemptions) != 1 {
		t.Fatalf("got %d redemptions, want 1", len(redemptions))
	}
	if redemptions[0].RedeemedBy != f.bob.ID {
		t.Errorf("redeemed_by = %d, want %d", redemptions[0].RedeemedBy, f.bob.ID)
	}
}

// A second redemption that slipped past the in-memory check is rejected by the
// UNIQUE constraint inside the transaction.
func TestConcurrentRedemptionRejected(t *testing.T) {
	f := setup(t)
	now := time.Now().UTC()

	f.apply(t, func(s economy.Snapshot) (economy.Snapshot, []economy.Change, error) {
		return economy.CreateReward(s, f.alice.ID, economy.RewardInput{Title: "Movie night", StarCost: 6}, now)
	})

	first := model.Redemption{RewardID: 1, RedeemedBy: f.bob.ID, RedeemedAt: now}
	if err := f.sync.Apply([]int64{f.bob.ID}, []economy.Change{
		{Op: economy.OpCreate, Entity: economy.EntityRedemption, Redemption: &first},
	}); err != nil {
		t.Fatalf("first redemption: %v", err)
	}

	second := model.Redemption{RewardID: 1, RedeemedBy: f.alice.ID, RedeemedAt: now}
	err := f.sync.Apply([]int64{f.alice.ID}, []economy.Change{
		{Op: economy.OpCreate, Entity: economy.EntityRedemption, Redemption: &second},
	})
	if !errors.Is(err, economy.ErrInvariant) {
		t.Fatalf("err = %v, want ErrInvariant", err)
	}
}

// A debit that would take the balance negative fails the guarded update, and
// the whole transaction rolls back.
func TestGuardedDebitRollsBack(t *testing.T) {
	f := setup(t)
	now := time.Now().UTC()

	f.apply(t, func(s economy.Snapshot) (economy.Snapshot, []economy.Change, error) {
		return economy.CreateReward(s, f.alice.ID, economy.RewardInput{Title: "Movie night", StarCost: 6}, now)
	})

	redemption := model.Redemption{RewardID: 1, RedeemedBy: f.bob.ID, RedeemedAt: now}
	err := f.sync.Apply([]int64{f.bob.ID}, []economy.Change{
		{Op: economy.OpCreate, Entity: economy.EntityRedemption, Redemption: &redemption},
		{Op: economy.OpUpdate, Entity: economy.EntityUser, ID: f.bob.ID, StarsDelta: -6},
	})
	if !errors.Is(err, economy.ErrInvariant) {
		t.Fatalf("err = %v, want ErrInvariant", err)
	}

	// The redemption insert from the same transaction must be gone too.
	redemptions, _ := f.rewards.ListRedemptionsForCouple(f.alice.ID, f.bob.ID)
	if len(redemptions) != 0 {
		t.Fatalf("got %d redemptions after rollback, want 0", len(redemptions))
	}
	if got := f.balance(t, f.bob.ID); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestResetPreservesIdentities(t *testing.T) {
	f := setup(t)
	now := time.Now().UTC()

	f.apply(t, func(s economy.Snapshot) (economy.Snapshot, []economy.Change, error) {
		return economy.CreateTask(s, f.alice.ID, economy.TaskInput{Title: "Dishes", AssignedTo: f.bob.ID}, now)
	})
	f.apply(t, func(s economy.Snapshot) (economy.Snapshot, []economy.Change, error) {
		return economy.CompleteTask(s, f.bob.ID, 1, now)
	})
	f.apply(t, func(s economy.Snapshot) (economy.Snapshot, []economy.Change, error) {
		return economy.CreateReward(s, f.alice.ID, economy.RewardInput{Title: "Movie night", StarCost: 2}, now)
	})

	f.apply(t, economy.Reset)

	tasks, _ := f.tasks.ListForUser(f.bob.ID)
	if len(tasks) != 0 {
		t.Errorf("got %d tasks after reset, want 0", len(tasks))
	}
	rewards, _ := f.rewards.ListForCouple(f.alice.ID, f.bob.ID)
	if len(rewards) != 0 {
		t.Errorf("got %d rewards after reset, want 0", len(rewards))
	}
	if got := f.balance(t, f.bob.ID); got != 0 {
		t.Errorf("balance after reset = %d, want 0", got)
	}

	// Accounts and the partner link survive.
	alice, _ := f.users.GetByID(f.alice.ID)
	if alice == nil || alice.PartnerID == nil || *alice.PartnerID != f.bob.ID {
		t.Fatal("partner link lost on reset")
	}
}
