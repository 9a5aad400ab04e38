package store

import (
	"fmt"
	"testing"
)

func TestBackupCreateAndList(t *testing.T) {
	db := setupTestDB(t)
	backups := NewBackupStore(db)

	b, err := backups.Create("backups/duet-1.db.enc", 1234)
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.Key != "backups/duet-1.db.enc" {
		t.Errorf("key = %q", b.Key)
	}
	if b.SizeBytes != 1234 {
		t.Errorf("size = %d, want 1234", b.SizeBytes)
	}

	list, err := backups.List()
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d backups, want 1", len(list))
	}
}

func TestBackupListBeyond(t *testing.T) {
	db := setupTestDB(t)
	backups := NewBackupStore(db)

	for i := 0; i < 5; i++ {
		if _, err := backups.Create(fmt.Sprintf("backups/duet-%d.db.enc", i), 100); err != nil {
			t.Fatalf("create backup: %v", err)
		}
	}

	stale, err := backups.ListBeyond(3)
	if err != nil {
		t.Fatalf("list beyond: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("got %d stale backups, want 2", len(stale))
	}

	for _, b := range stale {
		if err := backups.Delete(b.ID); err != nil {
			t.Fatalf("delete backup: %v", err)
		}
	}
	remaining, _ := backups.List()
	if len(remaining) != 3 {
		t.Fatalf("got %d backups after prune, want 3", len(remaining))
	}
}
