// Package economy implements the star-economy state machine: pure functions
// mapping a couple-scoped snapshot and an action to a next snapshot plus the
// persistence changes that mirror it. The package performs no I/O; the
// synchronization adapter translates changes into SQL writes and change
// notifications.
package economy

import "github.com/duetlabs/duet/internal/model"

// CompletionBonus is credited to the assignee the moment a task is completed,
// independent of the task's declared star value.
const CompletionBonus = 5

// Snapshot is the in-memory state an operation is applied to. Operations never
// mutate their input; on error the caller keeps the snapshot it passed in.
type Snapshot struct {
	Users       []model.User
	Tasks       []model.Task
	Rewards     []model.Reward
	Redemptions []model.Redemption
}

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	// OpReset clears tasks, rewards, and redemptions and zeroes every balance.
	OpReset Op = "reset"
)

type Entity string

const (
	EntityUser       Entity = "users"
	EntityTask       Entity = "tasks"
	EntityReward     Entity = "rewards"
	EntityRedemption Entity = "redemptions"
)

// Change is one persistence write mirroring a snapshot mutation. Exactly one
// of the record pointers is set for creates and updates; deletes carry only ID.
// A user update carries either StarsDelta (a relative, guarded balance
// adjustment) or User (partner/couple-code fields), never both.
type Change struct {
	Op         Op
	Entity     Entity
	ID         int64
	Task       *model.Task
	Reward     *model.Reward
	Redemption *model.Redemption
	User       *model.User
	StarsDelta int
}

func (s Snapshot) userByID(id int64) *model.User {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i]
		}
	}
	return nil
}

func (s Snapshot) taskByID(id int64) *model.Task {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}

func (s Snapshot) rewardByID(id int64) *model.Reward {
	for i := range s.Rewards {
		if s.Rewards[i].ID == id {
			return &s.Rewards[i]
		}
	}
	return nil
}

func (s Snapshot) redemptionByID(id int64) *model.Redemption {
	for i := range s.Redemptions {
		if s.Redemptions[i].ID == id {
			return &s.Redemptions[i]
		}
	}
	return nil
}

func (s Snapshot) redemptionForReward(rewardID int64) *model.Redemption {
	for i := range s.Redemptions {
		if s.Redemptions[i].RewardID == rewardID {
			return &s.Redemptions[i]
		}
	}
	return nil
}

// clone copies the snapshot so an operation can build its result without
// touching the caller's state.
func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Users:       make([]model.User, len(s.Users)),
		Tasks:       make([]model.Task, len(s.Tasks)),
		Rewards:     make([]model.Reward, len(s.Rewards)),
		Redemptions: make([]model.Redemption, len(s.Redemptions)),
	}
	copy(out.Users, s.Users)
	copy(out.Tasks, s.Tasks)
	copy(out.Rewards, s.Rewards)
	copy(out.Redemptions, s.Redemptions)
	return out
}

// Provisional identifiers for optimistically created records. The store
// assigns the authoritative id; reconciliation replaces these on re-fetch.
func nextTaskID(s Snapshot) int64 {
	var max int64
	for _, t := range s.Tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

func nextRewardID(s Snapshot) int64 {
	var max int64
	for _, r := range s.Rewards {
		if r.ID > max {
			max = r.ID
		}
	}
	return max + 1
}

func nextRedemptionID(s Snapshot) int64 {
	var max int64
	for _, r := range s.Redemptions {
		if r.ID > max {
			max = r.ID
		}
	}
	return max + 1
}

func creditStars(s *Snapshot, userID int64, amount int) {
	for i := range s.Users {
		if s.Users[i].ID == userID {
			s.Users[i].StarBalance += amount
			return
		}
	}
}

// BalanceOf recomputes a user's balance from first principles: the completion
// bonus plus rating for every credited task assigned to them, minus the star
// cost of every reward they redeemed. Used by tests to pin the core invariant.
func BalanceOf(s Snapshot, userID int64) int {
	var total int
	for _, t := range s.Tasks {
		if t.AssignedTo != userID {
			continue
		}
		switch t.Status {
		case model.TaskCompleted:
			total += CompletionBonus
		case model.TaskEvaluated:
			total += CompletionBonus
			if t.Rating != nil {
				total += *t.Rating
			}
		}
	}
	for _, r := range s.Redemptions {
		if r.RedeemedBy != userID {
			continue
		}
		if reward := s.rewardByID(r.RewardID); reward != nil {
			total -= reward.StarCost
		}
	}
	return total
}

// Reset clears all tasks, rewards, and redemptions and zeroes every balance.
// Identities, partner links, and session/theme state are untouched.
func Reset(s Snapshot) (Snapshot, []Change, error) {
	next := s.clone()
	next.Tasks = nil
	next.Rewards = nil
	next.Redemptions = nil
	for i := range next.Users {
		next.Users[i].StarBalance = 0
	}
	return next, []Change{{Op: OpReset}}, nil
}
