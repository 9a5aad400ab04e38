package model

import "time"

// TaskStatus advances strictly forward: pending -> completed -> evaluated.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskEvaluated TaskStatus = "evaluated"
)

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StarValue   int        `json:"star_value"`
	CreatedBy   int64      `json:"created_by"`
	AssignedTo  int64      `json:"assigned_to"`
	Status      TaskStatus `json:"status"`
	Rating      *int       `json:"rating,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	EvaluatedAt *time.Time `json:"evaluated_at,omitempty"`
}
