package task

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/example/task-api/domain/task"
	"github.com/example/task-api/modules/database"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{DSN: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })

	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedTask(t *testing.T, repo *Repository, userID string, status domain.Status, createdAt time.Time) *domain.Task {
	t.Helper()
	task := &domain.Task{
		ID:        createdAt.Format("150405.000000") + "-" + userID,
		UserID:    userID,
		Title:     "task " + createdAt.Format(time.RFC3339Nano),
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return task
}

func TestRepository_CreateAndFind(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	desc := "quarterly numbers"
	task := &domain.Task{
		ID:          "task-1",
		UserID:      "user-1",
		Title:       "Write report",
		Description: &desc,
		Status:      domain.StatusPending,
	}
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.FindByID(ctx, "task-1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Title != "Write report" {
		t.Errorf("Title = %v, want %v", got.Title, "Write report")
	}
	if got.Description == nil || *got.Description != desc {
		t.Errorf("Description = %v, want %v", got.Description, desc)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt was not set")
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRepository_ListScopesFiltersAndOrders(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	oldest := seedTask(t, repo, "alice", domain.StatusPending, base)
	middle := seedTask(t, repo, "alice", domain.StatusCompleted, base.Add(time.Minute))
	newest := seedTask(t, repo, "alice", domain.StatusPending, base.Add(2*time.Minute))
	seedTask(t, repo, "bob", domain.StatusPending, base.Add(3*time.Minute))

	tests := []struct {
		name      string
		filter    ListFilter
		wantIDs   []string
		wantTotal int64
	}{
		{
			name:      "all of alice's tasks newest first",
			filter:    ListFilter{UserID: "alice", Limit: 10},
			wantIDs:   []string{newest.ID, middle.ID, oldest.ID},
			wantTotal: 3,
		},
		{
			name:      "status filter",
			filter:    ListFilter{UserID: "alice", Status: domain.StatusPending, Limit: 10},
			wantIDs:   []string{newest.ID, oldest.ID},
			wantTotal: 2,
		},
		{
			name:      "second page",
			filter:    ListFilter{UserID: "alice", Offset: 2, Limit: 2},
			wantIDs:   []string{oldest.ID},
			wantTotal: 3,
		},
		{
			name:      "user without tasks",
			filter:    ListFilter{UserID: "carol", Limit: 10},
			wantIDs:   []string{},
			wantTotal: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, total, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %v, want %v", total, tt.wantTotal)
			}
			if len(tasks) != len(tt.wantIDs) {
				t.Fatalf("len(tasks) = %v, want %v", len(tasks), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if tasks[i].ID != id {
					t.Errorf("tasks[%d].ID = %v, want %v", i, tasks[i].ID, id)
				}
			}
		})
	}
}

func TestRepository_SaveAndDelete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	task := seedTask(t, repo, "alice", domain.StatusPending, time.Now())

	task.Status = domain.StatusCompleted
	task.Description = nil
	if err := repo.Save(ctx, task); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Errorf("Status = %v, want %v", got.Status, domain.StatusCompleted)
	}

	if err := repo.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
	}
	if err := repo.Save(ctx, task); !errors.Is(err, ErrNotFound) {
		t.Errorf("Save() after delete error = %v, want ErrNotFound", err)
	}
}
