package task

import (
	"time"
)

// Status is the lifecycle state of a task. Transitions between states are unrestricted.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every accepted status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Task is a unit of work owned by a single user.
type Task struct {
	ID          string    `gorm:"primaryKey;type:text" json:"id"`
	UserID      string    `gorm:"not null;type:text;index:idx_tasks_user_created,priority:1" json:"user_id"`
	Title       string    `gorm:"not null;type:varchar(255)" json:"title"`
	Description *string   `gorm:"type:text" json:"description"`
	Status      Status    `gorm:"not null;type:varchar(20);default:pending;index" json:"status"`
	CreatedAt   time.Time `gorm:"index:idx_tasks_user_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// OwnedBy reports whether the task belongs to the given user.
func (t *Task) OwnedBy(userID string) bool {
	return t.UserID == userID
}
