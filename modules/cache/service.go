// Package cache keeps recently read tasks in Redis behind the mono storage interface.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	domain "github.com/example/task-api/domain/task"
	"github.com/go-monolith/mono/pkg/storage"
)

// CacheService stores tasks stamped with the generation of their key.
//
// Readers take the generation before loading from the database and pass it to
// Put. Invalidate moves the generation on, and Get only serves entries whose
// stamp matches the current generation. A read that raced a write may still
// store its stale copy, but that copy is never served.
type CacheService interface {
	// Generation returns the current generation for taskID, zero if none was recorded.
	Generation(ctx context.Context, taskID string) (int64, error)

	// Get returns the cached task, or false on a miss or a stale entry.
	Get(ctx context.Context, taskID string) (*domain.Task, bool, error)

	// Put stores t stamped with generation.
	Put(ctx context.Context, t *domain.Task, generation int64) error

	// Invalidate drops the entry for taskID and moves its generation on.
	Invalidate(ctx context.Context, taskID string) error

	// Close closes the underlying storage connection.
	Close() error
}

// TaskEntry is the stored form of a cached task.
type TaskEntry struct {
	Generation int64       `json:"generation"`
	Task       domain.Task `json:"task"`
}

type cacheService struct {
	storage storage.Storage
	prefix  string
	ttl     time.Duration
	now     func() time.Time
}

// NewCacheService creates a CacheService over s. Every key is namespaced with
// prefix and entries expire after ttl.
func NewCacheService(s storage.Storage, prefix string, ttl time.Duration) CacheService {
	return &cacheService{
		storage: s,
		prefix:  prefix,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *cacheService) entryKey(taskID string) string {
	return c.prefix + "task:" + taskID
}

func (c *cacheService) generationKey(taskID string) string {
	return c.prefix + "task-gen:" + taskID
}

// generationTTL keeps a generation alive well past any entry stamped with it.
func (c *cacheService) generationTTL() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	return 2 * c.ttl
}

func (c *cacheService) Generation(ctx context.Context, taskID string) (int64, error) {
	data, err := c.storage.GetWithContext(ctx, c.generationKey(taskID))
	if err != nil {
		return 0, fmt.Errorf("cache generation error: %w", err)
	}
	if len(data) == 0 {
		return 0, nil
	}
	gen, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cache generation %q: %w", data, err)
	}
	return gen, nil
}

func (c *cacheService) Get(ctx context.Context, taskID string) (*domain.Task, bool, error) {
	data, err := c.storage.GetWithContext(ctx, c.entryKey(taskID))
	if err != nil {
		return nil, false, fmt.Errorf("cache get error: %w", err)
	}
	if len(data) == 0 {
		return nil, false, nil
	}

	var entry TaskEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	gen, err := c.Generation(ctx, taskID)
	if err != nil {
		return nil, false, err
	}
	if entry.Generation != gen {
		return nil, false, nil
	}
	return &entry.Task, true, nil
}

func (c *cacheService) Put(ctx context.Context, t *domain.Task, generation int64) error {
	data, err := json.Marshal(TaskEntry{Generation: generation, Task: *t})
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := c.storage.SetWithContext(ctx, c.entryKey(t.ID), data, c.ttl); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// Invalidate stamps a fresh generation before dropping the entry, so a copy
// written in between is already stale. Generations are wall-clock nanoseconds
// and never repeat across instances.
func (c *cacheService) Invalidate(ctx context.Context, taskID string) error {
	gen := strconv.FormatInt(c.now().UnixNano(), 10)
	if err := c.storage.SetWithContext(ctx, c.generationKey(taskID), []byte(gen), c.generationTTL()); err != nil {
		return fmt.Errorf("cache generation error: %w", err)
	}
	if err := c.storage.DeleteWithContext(ctx, c.entryKey(taskID)); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (c *cacheService) Close() error {
	return c.storage.Close()
}
