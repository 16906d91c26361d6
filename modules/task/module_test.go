package task

import (
	"context"
	"errors"
	"testing"

	domain "github.com/example/task-api/domain/task"
	"github.com/example/task-api/modules/database"
)

func setupModule(t *testing.T) *TaskModule {
	t.Helper()
	m := NewModule()
	m.service = NewService(NewRepository(setupTestDB(t)), nil)
	return m
}

func TestTaskModule_StartRequiresDatabase(t *testing.T) {
	if err := NewModule().Start(context.Background()); err == nil {
		t.Error("Start() without database plugin should fail")
	}
}

func TestTaskModule_StartWithDatabasePlugin(t *testing.T) {
	plugin := database.NewPluginModule(database.Config{DSN: ":memory:"})
	if err := plugin.Start(context.Background()); err != nil {
		t.Fatalf("plugin.Start() error = %v", err)
	}
	defer plugin.Stop(context.Background())

	m := NewModule()
	m.SetPlugin("database", plugin)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !m.Health(context.Background()).Healthy {
		t.Error("Health() should be healthy after Start")
	}
}

func TestTaskModule_HandlersEncodeFailures(t *testing.T) {
	m := setupModule(t)
	ctx := context.Background()

	created, err := m.createTask(ctx, CreateTaskRequest{UserID: "alice", Title: "Handler", Status: domain.StatusPending}, nil)
	if err != nil {
		t.Fatalf("createTask() error = %v", err)
	}
	if created.Task == nil || created.Code != "" {
		t.Fatalf("createTask() = %+v, want task without failure", created)
	}

	invalid, err := m.createTask(ctx, CreateTaskRequest{UserID: "alice", Title: "", Status: domain.StatusPending}, nil)
	if err != nil {
		t.Fatalf("createTask() error = %v, want failure in reply", err)
	}
	if !errors.Is(invalid.Err(), ErrInvalidTask) {
		t.Errorf("createTask().Err() = %v, want ErrInvalidTask", invalid.Err())
	}

	missing, err := m.getTask(ctx, GetTaskRequest{TaskID: "missing"}, nil)
	if err != nil {
		t.Fatalf("getTask() error = %v, want failure in reply", err)
	}
	if !errors.Is(missing.Err(), ErrNotFound) {
		t.Errorf("getTask().Err() = %v, want ErrNotFound", missing.Err())
	}

	updated, err := m.updateTask(ctx, UpdateTaskRequest{
		TaskID: created.Task.ID,
		Patch:  TaskPatch{Status: statusPtr(domain.StatusInProgress)},
	}, nil)
	if err != nil {
		t.Fatalf("updateTask() error = %v", err)
	}
	if updated.Task.Status != domain.StatusInProgress {
		t.Errorf("updateTask().Task.Status = %v, want %v", updated.Task.Status, domain.StatusInProgress)
	}

	listed, err := m.listTasks(ctx, ListTasksRequest{UserID: "alice"}, nil)
	if err != nil {
		t.Fatalf("listTasks() error = %v", err)
	}
	if listed.Total != 1 {
		t.Errorf("listTasks().Total = %v, want 1", listed.Total)
	}

	deleted, err := m.deleteTask(ctx, DeleteTaskRequest{TaskID: created.Task.ID}, nil)
	if err != nil {
		t.Fatalf("deleteTask() error = %v", err)
	}
	if !deleted.Deleted {
		t.Error("deleteTask().Deleted = false, want true")
	}

	again, err := m.deleteTask(ctx, DeleteTaskRequest{TaskID: created.Task.ID}, nil)
	if err != nil {
		t.Fatalf("deleteTask() error = %v", err)
	}
	if !errors.Is(again.Err(), ErrNotFound) {
		t.Errorf("deleteTask() twice Err() = %v, want ErrNotFound", again.Err())
	}
}

func TestFailure_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "not found", err: ErrNotFound, want: ErrNotFound},
		{name: "invalid with detail", err: checkTitle(""), want: ErrInvalidTask},
		{name: "persistence", err: database.Wrap("list tasks", errors.New("locked")), want: database.ErrPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failure, err := toFailure(tt.err)
			if err != nil {
				t.Fatalf("toFailure() error = %v", err)
			}
			if got := failure.Err(); !errors.Is(got, tt.want) {
				t.Errorf("Err() = %v, want %v", got, tt.want)
			}
		})
	}
}
