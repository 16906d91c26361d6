package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	domain "github.com/example/task-api/domain/task"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// ErrInvalidTask is returned when a write would break a task invariant.
var ErrInvalidTask = errors.New("invalid task")

const (
	// DefaultPerPage is the page size used when none is requested.
	DefaultPerPage = 15
	// MaxPerPage is the largest page size a listing accepts.
	MaxPerPage = 100
	// MaxTitleLength bounds task titles.
	MaxTitleLength = 255
)

// Cache is the read-through store consulted by GetTask. Entries are stamped
// with the generation read before the database load; Invalidate moves the
// generation on so an entry stored by a racing read is never served.
type Cache interface {
	Generation(ctx context.Context, taskID string) (int64, error)
	Get(ctx context.Context, taskID string) (*domain.Task, bool, error)
	Put(ctx context.Context, t *domain.Task, generation int64) error
	Invalidate(ctx context.Context, taskID string) error
}

type noopCache struct{}

func (noopCache) Generation(context.Context, string) (int64, error)       { return 0, nil }
func (noopCache) Get(context.Context, string) (*domain.Task, bool, error) { return nil, false, nil }
func (noopCache) Put(context.Context, *domain.Task, int64) error          { return nil }
func (noopCache) Invalidate(context.Context, string) error                { return nil }

// Service implements task operations on top of the repository.
type Service struct {
	repo    *Repository
	cache   Cache
	sfGroup singleflight.Group // Prevents cache stampede
	now     func() time.Time
}

var _ TaskPort = (*Service)(nil)

// NewService creates a new Service. A nil cache disables caching.
func NewService(repo *Repository, cache Cache) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	return &Service{
		repo:  repo,
		cache: cache,
		now:   time.Now,
	}
}

// NewServiceFromDB migrates the tasks table on db and wires a service over it.
func NewServiceFromDB(db *gorm.DB, cache Cache) (*Service, error) {
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate tasks table: %w", err)
	}
	return NewService(NewRepository(db), cache), nil
}

func flightKey(id string) string {
	return "task:" + id
}

// ListTasks returns one page of the user's tasks, newest first.
// Out-of-range paging values fall back to defaults.
func (s *Service) ListTasks(ctx context.Context, req ListTasksRequest) (*TaskPage, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, req.Status)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	perPage := req.PerPage
	if perPage < 1 || perPage > MaxPerPage {
		perPage = DefaultPerPage
	}

	tasks, total, err := s.repo.List(ctx, ListFilter{
		UserID: req.UserID,
		Status: req.Status,
		Offset: pageOffset(page, perPage),
		Limit:  perPage,
	})
	if err != nil {
		return nil, err
	}

	return &TaskPage{
		Tasks:   tasks,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

// pageOffset is the row offset of page. Pages whose offset does not fit in an
// int are past any real listing and map to math.MaxInt.
func pageOffset(page, perPage int) int {
	if page-1 > math.MaxInt/perPage {
		return math.MaxInt
	}
	return (page - 1) * perPage
}

// CreateTask stores a new task owned by req.UserID.
func (s *Service) CreateTask(ctx context.Context, req CreateTaskRequest) (*domain.Task, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidTask)
	}
	if err := checkTitle(req.Title); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = domain.StatusPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, status)
	}

	now := s.now()
	t := &domain.Task{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTask retrieves a task by ID with caching (cache-aside pattern).
func (s *Service) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	cached, found, err := s.cache.Get(ctx, taskID)
	if err != nil {
		// Continue to database on cache error
		log.Printf("[task] Cache error for ID=%s: %v", taskID, err)
	}
	if found {
		return cached, nil
	}

	// The generation must be read before the load so a write that lands in
	// between leaves our copy stale.
	gen, genErr := s.cache.Generation(ctx, taskID)
	if genErr != nil {
		log.Printf("[task] Cache generation error for ID=%s: %v", taskID, genErr)
	}

	val, err, _ := s.sfGroup.Do(flightKey(taskID), func() (any, error) {
		return s.repo.FindByID(ctx, taskID)
	})
	if err != nil {
		return nil, err
	}
	t := val.(*domain.Task)

	if genErr == nil {
		if err := s.cache.Put(ctx, t, gen); err != nil {
			log.Printf("[task] Warning: failed to cache task ID=%s: %v", taskID, err)
		}
	}

	// Callers may modify the result; singleflight shares one pointer between them.
	out := *t
	return &out, nil
}

// UpdateTask applies a partial update. Omitted fields keep their values.
func (s *Service) UpdateTask(ctx context.Context, req UpdateTaskRequest) (*domain.Task, error) {
	t, err := s.repo.FindByID(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	p := req.Patch
	if p.Title != nil {
		if err := checkTitle(*p.Title); err != nil {
			return nil, err
		}
		t.Title = *p.Title
	}
	if p.ClearDescription {
		t.Description = nil
	} else if p.Description != nil {
		t.Description = p.Description
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, *p.Status)
		}
		t.Status = *p.Status
	}
	t.UpdatedAt = s.now()

	if err := s.repo.Save(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(ctx, t.ID)

	return t, nil
}

// DeleteTask permanently removes a task.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	if err := s.repo.Delete(ctx, taskID); err != nil {
		return err
	}
	s.invalidate(ctx, taskID)
	return nil
}

// invalidate runs after the write is committed. Loads already in flight may
// hold the old row, so later readers must not join them.
func (s *Service) invalidate(ctx context.Context, taskID string) {
	s.sfGroup.Forget(flightKey(taskID))
	if err := s.cache.Invalidate(ctx, taskID); err != nil {
		log.Printf("[task] Warning: failed to invalidate cache for ID=%s: %v", taskID, err)
	}
}

func checkTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if len([]rune(title)) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidTask, MaxTitleLength)
	}
	return nil
}
