package store

import (
	"database/sql"
	"testing"

	"github.com/duetlabs/duet/internal/model"
)

func insertTask(t *testing.T, db *sql.DB, title string, createdBy, assignedTo int64, status model.TaskStatus, rating *int) int64 {
	t.Helper()
	var r sql.NullInt64
	if rating != nil {
		r = sql.NullInt64{Int64: int64(*rating), Valid: true}
	}
	result, err := db.Exec(
		`INSERT INTO tasks (title, description, star_value, created_by, assigned_to, status, rating) VALUES (?, '', 3, ?, ?, ?, ?)`,
		title, createdBy, assignedTo, status, r,
	)
	if err != nil {
		t.Fatalf("insert task: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

func TestTaskGetByID(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserStore(db)
	tasks := NewTaskStore(db)

	alice := createTestUser(t, users, "alice@example.com", model.RoleWife)
	bob := createTestUser(t, users, "bob@example.com", model.RoleHusband)

	id := insertTask(t, db, "Dishes", alice.ID, bob.ID, model.TaskPending, nil)

	task, err := tasks.GetByID(id)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task == nil {
		t.Fatal("expected task")
	}
	if task.Title != "Dishes" {
		t.Errorf("title = %q, want %q", task.Title, "Dishes")
	}
	if task.Status != model.TaskPending {
		t.Errorf("status = %q, want %q", task.Status, model.TaskPending)
	}
	if task.Rating != nil {
		t.Error("expected nil rating")
	}

	missing, err := tasks.GetByID(999)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown task")
	}
}

func TestTaskListForUser(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserStore(db)
	tasks := NewTaskStore(db)

	alice := createTestUser(t, users, "alice@example.com", model.RoleWife)
	bob := createTestUser(t, users, "bob@example.com", model.RoleHusband)
	carol := createTestUser(t, users, "carol@example.com", model.RoleWife)

	insertTask(t, db, "Dishes", alice.ID, bob.ID, model.TaskPending, nil)
	insertTask(t, db, "Laundry", bob.ID, alice.ID, model.TaskPending, nil)
	insertTask(t, db, "Unrelated", carol.ID, carol.ID, model.TaskPending, nil)

	got, err := tasks.ListForUser(alice.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d tasks, want 2", len(got))
	}
	for _, task := range got {
		if task.CreatedBy != alice.ID && task.AssignedTo != alice.ID {
			t.Errorf("task %d does not involve user %d", task.ID, alice.ID)
		}
	}
}
