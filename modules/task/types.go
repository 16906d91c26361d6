package task

import (
	"context"

	domain "github.com/example/task-api/domain/task"
)

// Failure carries an expected error across the service boundary.
// Code is empty on success.
type Failure struct {
	Code   string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// ListTasksRequest is the request for listing a user's tasks.
type ListTasksRequest struct {
	UserID  string        `json:"user_id"`
	Status  domain.Status `json:"status,omitempty"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks   []domain.Task `json:"tasks"`
	Total   int64         `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

// ListTasksResponse is the response for listing tasks.
type ListTasksResponse struct {
	TaskPage
	Failure
}

// CreateTaskRequest is the request for creating a task.
type CreateTaskRequest struct {
	UserID      string        `json:"user_id"`
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	Status      domain.Status `json:"status"`
}

// GetTaskRequest is the request for getting a task.
type GetTaskRequest struct {
	TaskID string `json:"task_id"`
}

// TaskPatch lists the fields an update changes. Nil fields are left alone.
type TaskPatch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *domain.Status `json:"status,omitempty"`
	// ClearDescription sets the description to null.
	ClearDescription bool `json:"clear_description,omitempty"`
}

// UpdateTaskRequest is the request for updating a task.
type UpdateTaskRequest struct {
	TaskID string    `json:"task_id"`
	Patch  TaskPatch `json:"patch"`
}

// DeleteTaskRequest is the request for deleting a task.
type DeleteTaskRequest struct {
	TaskID string `json:"task_id"`
}

// TaskResponse is the reply carrying a single task.
type TaskResponse struct {
	Task *domain.Task `json:"task,omitempty"`
	Failure
}

// DeleteTaskResponse is the response for deleting a task.
type DeleteTaskResponse struct {
	Deleted bool `json:"deleted"`
	Failure
}

// TaskPort defines the interface for task operations.
// Ownership is not checked here; callers resolve the task first and decide.
type TaskPort interface {
	ListTasks(ctx context.Context, req ListTasksRequest) (*TaskPage, error)
	CreateTask(ctx context.Context, req CreateTaskRequest) (*domain.Task, error)
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	UpdateTask(ctx context.Context, req UpdateTaskRequest) (*domain.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
}
