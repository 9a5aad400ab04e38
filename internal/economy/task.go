package economy

import (
	"strings"
	"time"

	"github.com/duetlabs/duet/internal/model"
)

// TaskInput carries the caller-supplied fields for creating or editing a task.
type TaskInput struct {
	Title       string
	Description string
	StarValue   int
	AssignedTo  int64
}

// CreateTask adds a pending task assigned to the actor's linked partner.
func CreateTask(s Snapshot, actorID int64, in TaskInput, now time.Time) (Snapshot, []Change, error) {
	actor := s.userByID(actorID)
	if actor == nil {
		return s, nil, validationf("unknown user %d", actorID)
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return s, nil, validationf("title is required")
	}
	if in.StarValue < 0 {
		return s, nil, validationf("star value must not be negative")
	}
	if actor.PartnerID == nil {
		return s, nil, validationf("no partner linked")
	}
	if in.AssignedTo != *actor.PartnerID {
		return s, nil, validationf("tasks can only be assigned to your partner")
	}

	next := s.clone()
	task := model.Task{
		ID:          nextTaskID(s),
		Title:       in.Title,
		Description: in.Description,
		StarValue:   in.StarValue,
		CreatedBy:   actorID,
		AssignedTo:  in.AssignedTo,
		Status:      model.TaskPending,
		CreatedAt:   now,
	}
	next.Tasks = append(next.Tasks, task)

	return next, []Change{{Op: OpCreate, Entity: EntityTask, Task: &task}}, nil
}

// EditTask rewrites a pending task's fields. Only the creator may edit, and
// the assignee must remain the creator's partner.
func EditTask(s Snapshot, actorID, taskID int64, in TaskInput) (Snapshot, []Change, error) {
	task := s.taskByID(taskID)
	if task == nil {
		return s, nil, validationf("unknown task %d", taskID)
	}
	if task.CreatedBy != actorID {
		return s, nil, unauthorizedf("only the creator can edit a task")
	}
	if task.Status != model.TaskPending {
		return s, nil, invariantf("task %d is %s; only pending tasks can be edited", taskID, task.Status)
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return s, nil, validationf("title is required")
	}
	if in.StarValue < 0 {
		return s, nil, validationf("star value must not be negative")
	}
	actor := s.userByID(actorID)
	if actor == nil || actor.PartnerID == nil || in.AssignedTo != *actor.PartnerID {
		return s, nil, validationf("tasks can only be assigned to your partner")
	}

	next := s.clone()
	updated := next.taskByID(taskID)
	updated.Title = in.Title
	updated.Description = in.Description
	updated.StarValue = in.StarValue
	updated.AssignedTo = in.AssignedTo

	return next, []Change{{Op: OpUpdate, Entity: EntityTask, ID: taskID, Task: updated}}, nil
}

// DeleteTask removes a pending task. Only the creator may delete.
func DeleteTask(s Snapshot, actorID, taskID int64) (Snapshot, []Change, error) {
	task := s.taskByID(taskID)
	if task == nil {
		return s, nil, validationf("unknown task %d", taskID)
	}
	if task.CreatedBy != actorID {
		return s, nil, unauthorizedf("only the creator can delete a task")
	}
	if task.Status != model.TaskPending {
		return s, nil, invariantf("task %d is %s; only pending tasks can be deleted", taskID, task.Status)
	}

	next := s.clone()
	tasks := next.Tasks[:0]
	for _, t := range next.Tasks {
		if t.ID != taskID {
			tasks = append(tasks, t)
		}
	}
	next.Tasks = tasks

	return next, []Change{{Op: OpDelete, Entity: EntityTask, ID: taskID}}, nil
}

// CompleteTask moves a pending task to completed and credits the assignee the
// automatic completion bonus. Only the assignee may complete.
func CompleteTask(s Snapshot, actorID, taskID int64, now time.Time) (Snapshot, []Change, error) {
	task := s.taskByID(taskID)
	if task == nil {
		return s, nil, validationf("unknown task %d", taskID)
	}
	if task.AssignedTo != actorID {
		return s, nil, unauthorizedf("only the assignee can complete a task")
	}
	if task.Status != model.TaskPending {
		return s, nil, invariantf("task %d is %s; only pending tasks can be completed", taskID, task.Status)
	}

	next := s.clone()
	updated := next.taskByID(taskID)
	updated.Status = model.TaskCompleted
	t := now
	updated.CompletedAt = &t
	creditStars(&next, task.AssignedTo, CompletionBonus)

	return next, []Change{
		{Op: OpUpdate, Entity: EntityTask, ID: taskID, Task: updated},
		{Op: OpUpdate, Entity: EntityUser, ID: task.AssignedTo, StarsDelta: CompletionBonus},
	}, nil
}

// EvaluateTask moves a completed task to evaluated, stores the rating, and
// credits the assignee the rating on top of the completion bonus. Only the
// creator may evaluate.
func EvaluateTask(s Snapshot, actorID, taskID int64, rating int, now time.Time) (Snapshot, []Change, error) {
	if rating < 1 || rating > 5 {
		return s, nil, validationf("rating must be between 1 and 5")
	}
	task := s.taskByID(taskID)
	if task == nil {
		return s, nil, validationf("unknown task %d", taskID)
	}
	if task.CreatedBy != actorID {
		return s, nil, unauthorizedf("only the creator can evaluate a task")
	}
	if task.Status != model.TaskCompleted {
		return s, nil, invariantf("task %d is %s; only completed tasks can be evaluated", taskID, task.Status)
	}

	next := s.clone()
	updated := next.taskByID(taskID)
	updated.Status = model.TaskEvaluated
	r := rating
	updated.Rating = &r
	t := now
	updated.EvaluatedAt = &t
	creditStars(&next, task.AssignedTo, rating)

	return next, []Change{
		{Op: OpUpdate, Entity: EntityTask, ID: taskID, Task: updated},
		{Op: OpUpdate, Entity: EntityUser, ID: task.AssignedTo, StarsDelta: rating},
	}, nil
}
