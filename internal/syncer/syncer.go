// Package syncer is the synchronization adapter between the pure economy
// state machine and the outside world: it loads couple-scoped snapshots from
// the stores, applies change lists in a single transaction, and broadcasts
// payload-free change notifications so clients re-query the affected
// collections.
package syncer

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/duetlabs/duet/internal/economy"
	"github.com/duetlabs/duet/internal/store"
	ws "github.com/duetlabs/duet/internal/websocket"
)

type Syncer struct {
	db      *sql.DB
	users   *store.UserStore
	tasks   *store.TaskStore
	rewards *store.RewardStore
	hub     *ws.Hub
	logger  *slog.Logger
}

func New(db *sql.DB, users *store.UserStore, tasks *store.TaskStore, rewards *store.RewardStore, hub *ws.Hub, logger *slog.Logger) *Syncer {
	return &Syncer{
		db:      db,
		users:   users,
		tasks:   tasks,
		rewards: rewards,
		hub:     hub,
		logger:  logger,
	}
}

// LoadSnapshot builds the economy snapshot for the couple the user belongs
// to. Every task ties the two partners together, so tasks involving the user
// cover the whole couple.
func (s *Syncer) LoadSnapshot(userID int64) (economy.Snapshot, error) {
	var snap economy.Snapshot

	users, err := s.users.ListCouple(userID)
	if err != nil {
		return snap, fmt.Errorf("load users: %w", err)
	}
	snap.Users = users

	tasks, err := s.tasks.ListForUser(userID)
	if err != nil {
		return snap, fmt.Errorf("load tasks: %w", err)
	}
	snap.Tasks = tasks

	partnerID := userID
	for _, u := range users {
		if u.ID == userID && u.PartnerID != nil {
			partnerID = *u.PartnerID
		}
	}

	rewards, err := s.rewards.ListForCouple(userID, partnerID)
	if err != nil {
		return snap, fmt.Errorf("load rewards: %w", err)
	}
	snap.Rewards = rewards

	redemptions, err := s.rewards.ListRedemptionsForCouple(userID, partnerID)
	if err != nil {
		return snap, fmt.Errorf("load redemptions: %w", err)
	}
	snap.Redemptions = redemptions

	return snap, nil
}

// Apply commits a change list in one transaction, then notifies the given
// users which collections changed. On error nothing is persisted or
// broadcast: the caller's optimistic snapshot must be discarded and the
// confirmed state re-fetched.
func (s *Syncer) Apply(recipients []int64, changes []economy.Change) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range changes {
		if err := applyChange(tx, c); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.notify(recipients, changes)
	return nil
}

func applyChange(tx *sql.Tx, c economy.Change) error {
	switch {
	case c.Op == economy.OpReset:
		return applyReset(tx)
	case c.Entity == economy.EntityTask:
		return applyTaskChange(tx, c)
	case c.Entity == economy.EntityReward:
		return applyRewardChange(tx, c)
	case c.Entity == economy.EntityRedemption:
		return applyRedemptionChange(tx, c)
	case c.Entity == economy.EntityUser:
		return applyUserChange(tx, c)
	}
	return fmt.Errorf("unhandled change %s %s", c.Op, c.Entity)
}

func applyTaskChange(tx *sql.Tx, c economy.Change) error {
	switch c.Op {
	case economy.OpCreate:
		t := c.Task
		_, err := tx.Exec(
			`INSERT INTO tasks (title, description, star_value, created_by, assigned_to, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.Title, t.Description, t.StarValue, t.CreatedBy, t.AssignedTo, t.Status, t.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
	case economy.OpUpdate:
		t := c.Task
		var rating sql.NullInt64
		if t.Rating != nil {
			rating = sql.NullInt64{Int64: int64(*t.Rating), Valid: true}
		}
		var completedAt, evaluatedAt sql.NullTime
		if t.CompletedAt != nil {
			completedAt = sql.NullTime{Time: t.CompletedAt.UTC(), Valid: true}
		}
		if t.EvaluatedAt != nil {
			evaluatedAt = sql.NullTime{Time: t.EvaluatedAt.UTC(), Valid: true}
		}
		_, err := tx.Exec(
			`UPDATE tasks SET title = ?, description = ?, star_value = ?, assigned_to = ?, status = ?, rating = ?, completed_at = ?, evaluated_at = ?
			 WHERE id = ?`,
			t.Title, t.Description, t.StarValue, t.AssignedTo, t.Status, rating, completedAt, evaluatedAt, c.ID,
		)
		if err != nil {
			return fmt.Errorf("update task %d: %w", c.ID, err)
		}
	case economy.OpDelete:
		if _, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, c.ID); err != nil {
			return fmt.Errorf("delete task %d: %w", c.ID, err)
		}
	}
	return nil
}

func applyRewardChange(tx *sql.Tx, c economy.Change) error {
	switch c.Op {
	case economy.OpCreate:
		r := c.Reward
		_, err := tx.Exec(
			`INSERT INTO rewards (title, description, star_cost, created_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.Title, r.Description, r.StarCost, r.CreatedBy, r.CreatedAt.UTC(), r.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert reward: %w", err)
		}
	case economy.OpUpdate:
		r := c.Reward
		_, err := tx.Exec(
			`UPDATE rewards SET title = ?, description = ?, star_cost = ?, updated_at = ? WHERE id = ?`,
			r.Title, r.Description, r.StarCost, r.UpdatedAt.UTC(), c.ID,
		)
		if err != nil {
			return fmt.Errorf("update reward %d: %w", c.ID, err)
		}
	case economy.OpDelete:
		if _, err := tx.Exec(`DELETE FROM rewards WHERE id = ?`, c.ID); err != nil {
			return fmt.Errorf("delete reward %d: %w", c.ID, err)
		}
	}
	return nil
}

func applyRedemptionChange(tx *sql.Tx, c economy.Change) error {
	switch c.Op {
	case economy.OpCreate:
		r := c.Redemption
		// The UNIQUE(reward_id) constraint rejects a concurrent second
		// redemption that passed the in-memory check.
		_, err := tx.Exec(
			`INSERT INTO redemptions (reward_id, redeemed_by, redeemed_at) VALUES (?, ?, ?)`,
			r.RewardID, r.RedeemedBy, r.RedeemedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("%w: reward %d already redeemed: %v", economy.ErrInvariant, r.RewardID, err)
		}
	case economy.OpUpdate:
		r := c.Redemption
		var rating sql.NullInt64
		if r.Rating != nil {
			rating = sql.NullInt64{Int64: int64(*r.Rating), Valid: true}
		}
		_, err := tx.Exec(`UPDATE redemptions SET rating = ? WHERE id = ?`, rating, c.ID)
		if err != nil {
			return fmt.Errorf("update redemption %d: %w", c.ID, err)
		}
	}
	return nil
}

func applyUserChange(tx *sql.Tx, c economy.Change) error {
	if c.User != nil {
		var partnerID sql.NullInt64
		if c.User.PartnerID != nil {
			partnerID = sql.NullInt64{Int64: *c.User.PartnerID, Valid: true}
		}
		var coupleCode sql.NullString
		if c.User.CoupleCode != nil {
			coupleCode = sql.NullString{String: *c.User.CoupleCode, Valid: true}
		}
		_, err := tx.Exec(
			`UPDATE users SET partner_id = ?, couple_code = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			partnerID, coupleCode, c.ID,
		)
		if err != nil {
			return fmt.Errorf("update user %d: %w", c.ID, err)
		}
		return nil
	}

	// Relative, guarded balance adjustment: the conditional WHERE closes the
	// check-then-act race against concurrent debits.
	result, err := tx.Exec(
		`UPDATE users SET star_balance = star_balance + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND star_balance + ? >= 0`,
		c.StarsDelta, c.ID, c.StarsDelta,
	)
	if err != nil {
		return fmt.Errorf("adjust balance for user %d: %w", c.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust balance for user %d: %w", c.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: balance for user %d changed concurrently", economy.ErrInvariant, c.ID)
	}
	return nil
}

func applyReset(tx *sql.Tx) error {
	stmts := []string{
		`DELETE FROM redemptions`,
		`DELETE FROM rewards`,
		`DELETE FROM tasks`,
		`UPDATE users SET star_balance = 0, updated_at = CURRENT_TIMESTAMP`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("reset economy: %w", err)
		}
	}
	return nil
}

// notify sends one payload-free notification per touched collection. Clients
// re-fetch the whole collection; no ordering is promised across entities.
func (s *Syncer) notify(recipients []int64, changes []economy.Change) {
	if s.hub == nil {
		return
	}

	type key struct {
		entity economy.Entity
		action economy.Op
	}
	seen := make(map[key]bool)

	for _, c := range changes {
		if c.Op == economy.OpReset {
			for _, entity := range []economy.Entity{economy.EntityTask, economy.EntityReward, economy.EntityRedemption, economy.EntityUser} {
				s.hub.Broadcast(recipients, ws.NewMessage(string(entity), "reset", 0))
			}
			continue
		}
		k := key{c.Entity, c.Op}
		if seen[k] {
			continue
		}
		seen[k] = true
		s.hub.Broadcast(recipients, ws.NewMessage(string(c.Entity), string(c.Op), c.ID))
	}
}
