package store

import (
	"database/sql"
	"fmt"

	"github.com/duetlabs/duet/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var rating sql.NullInt64
	var completedAt, evaluatedAt sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.Title, &t.Description, &t.StarValue,
		&t.CreatedBy, &t.AssignedTo, &t.Status, &rating,
		&t.CreatedAt, &completedAt, &evaluatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		r := int(rating.Int64)
		t.Rating = &r
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if evaluatedAt.Valid {
		t.EvaluatedAt = &evaluatedAt.Time
	}
	return &t, nil
}

const taskCols = `id, title, description, star_value, created_by, assigned_to, status, rating, created_at, completed_at, evaluated_at`

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListForUser returns every task the user created or was assigned,
// newest first.
func (s *TaskStore) ListForUser(userID int64) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE created_by = ? OR assigned_to = ? ORDER BY created_at DESC, id DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}
