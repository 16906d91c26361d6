package task

import (
	"context"
	"errors"

	domain "github.com/example/task-api/domain/task"
	"github.com/example/task-api/modules/database"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = errors.New("task not found")

// ListFilter narrows a task listing.
type ListFilter struct {
	UserID string
	Status domain.Status
	Offset int
	Limit  int
}

// Repository handles task persistence using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the tasks table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Task{})
}

// Create inserts a new task.
func (r *Repository) Create(ctx context.Context, t *domain.Task) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return database.Wrap("create task", err)
	}
	return nil
}

// FindByID finds a task by ID regardless of owner.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	result := r.db.WithContext(ctx).First(&t, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, database.Wrap("find task", result.Error)
	}
	return &t, nil
}

// List returns one page of a user's tasks, newest first, and the total match count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]domain.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Task{}).Where("user_id = ?", filter.UserID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, database.Wrap("count tasks", err)
	}

	tasks := make([]domain.Task, 0)
	if total == 0 || int64(filter.Offset) >= total {
		return tasks, total, nil
	}

	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&tasks).Error; err != nil {
		return nil, 0, database.Wrap("list tasks", err)
	}

	return tasks, total, nil
}

// Save writes the mutable columns of an existing task.
func (r *Repository) Save(ctx context.Context, t *domain.Task) error {
	result := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"title":       t.Title,
			"description": t.Description,
			"status":      t.Status,
			"updated_at":  t.UpdatedAt,
		})
	if result.Error != nil {
		return database.Wrap("update task", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a task permanently.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.Task{}, "id = ?", id)
	if result.Error != nil {
		return database.Wrap("delete task", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
