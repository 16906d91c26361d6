// Package activity records task and account events into a bounded in-memory
// activity feed.
package activity

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/task-api/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 500

// Entry is one recorded event.
type Entry struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	SubjectID  string    `json:"subject_id"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ActivityModule consumes domain events and keeps the most recent ones.
type ActivityModule struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	counts   map[string]int
}

var _ mono.Module = (*ActivityModule)(nil)
var _ mono.EventConsumerModule = (*ActivityModule)(nil)
var _ mono.HealthCheckableModule = (*ActivityModule)(nil)

// NewModule creates an ActivityModule keeping up to capacity entries.
func NewModule(capacity int) *ActivityModule {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ActivityModule{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		counts:   make(map[string]int),
	}
}

func (m *ActivityModule) Name() string {
	return "activity"
}

func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.UserRegisteredV1, m.handleUserRegistered, m); err != nil {
		return fmt.Errorf("failed to register UserRegistered consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}

	log.Printf("[activity] Registered event consumers: UserRegistered, TaskCreated, TaskUpdated, TaskDeleted")
	return nil
}

func (m *ActivityModule) handleUserRegistered(_ context.Context, event events.UserRegisteredEvent, _ *mono.Msg) error {
	log.Printf("[activity] User registered: %s", event.UserID)
	m.record(Entry{
		Type:       "user_registered",
		UserID:     event.UserID,
		SubjectID:  event.UserID,
		Message:    fmt.Sprintf("Account %s registered", event.Email),
		OccurredAt: event.RegisteredAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	log.Printf("[activity] Task created: %s by user %s", event.TaskID, event.UserID)
	m.record(Entry{
		Type:       "task_created",
		UserID:     event.UserID,
		SubjectID:  event.TaskID,
		Message:    fmt.Sprintf("Task '%s' created as %s", event.Title, event.Status),
		OccurredAt: event.CreatedAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskUpdated(_ context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	log.Printf("[activity] Task updated: %s by user %s", event.TaskID, event.UserID)
	message := fmt.Sprintf("Task %s updated", event.TaskID)
	if event.PreviousStatus != event.Status {
		message = fmt.Sprintf("Task %s moved from %s to %s", event.TaskID, event.PreviousStatus, event.Status)
	}
	m.record(Entry{
		Type:       "task_updated",
		UserID:     event.UserID,
		SubjectID:  event.TaskID,
		Message:    message,
		OccurredAt: event.UpdatedAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskDeleted(_ context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	log.Printf("[activity] Task deleted: %s by user %s", event.TaskID, event.UserID)
	m.record(Entry{
		Type:       "task_deleted",
		UserID:     event.UserID,
		SubjectID:  event.TaskID,
		Message:    fmt.Sprintf("Task %s deleted", event.TaskID),
		OccurredAt: event.DeletedAt,
	})
	return nil
}

// record appends e, dropping the oldest entry once the feed is full.
func (m *ActivityModule) record(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) == m.capacity {
		copy(m.entries, m.entries[1:])
		m.entries = m.entries[:len(m.entries)-1]
	}
	m.entries = append(m.entries, e)
	m.counts[e.Type]++
}

// Recent returns up to limit of the user's entries, newest first.
func (m *ActivityModule) Recent(userID string, limit int) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Entry, 0)
	for i := len(m.entries) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		if m.entries[i].UserID == userID {
			result = append(result, m.entries[i])
		}
	}
	return result
}

func (m *ActivityModule) Start(_ context.Context) error {
	log.Println("[activity] Module started - listening for task and user events")
	return nil
}

func (m *ActivityModule) Stop(_ context.Context) error {
	log.Println("[activity] Module stopped")
	return nil
}

func (m *ActivityModule) Health(_ context.Context) mono.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]any, len(m.counts))
	for k, v := range m.counts {
		counts[k] = v
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"buffered": len(m.entries),
			"capacity": m.capacity,
			"consumed": counts,
		},
	}
}
