package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	domain "github.com/example/task-api/domain/task"
	"github.com/example/task-api/events"
	"github.com/example/task-api/modules/cache"
	"github.com/example/task-api/modules/database"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// TaskModule provides task management services.
type TaskModule struct {
	dbPlugin    *database.PluginModule
	cachePlugin *cache.PluginModule
	service     *Service
	eventBus    mono.EventBus
}

var _ mono.Module = (*TaskModule)(nil)
var _ mono.ServiceProviderModule = (*TaskModule)(nil)
var _ mono.UsePluginModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)
var _ mono.HealthCheckableModule = (*TaskModule)(nil)

func NewModule() *TaskModule {
	return &TaskModule{}
}

func (m *TaskModule) Name() string {
	return "task"
}

// SetPlugin receives the database plugin and, when registered, the cache plugin.
func (m *TaskModule) SetPlugin(alias string, plugin mono.PluginModule) {
	switch alias {
	case "database":
		if p, ok := plugin.(*database.PluginModule); ok {
			m.dbPlugin = p
			log.Println("[task] Database plugin injected")
		}
	case "cache":
		if p, ok := plugin.(*cache.PluginModule); ok {
			m.cachePlugin = p
			log.Println("[task] Cache plugin injected")
		}
	}
}

func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
	}
}

func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-tasks", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-task", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-task", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	log.Printf("[task] Registered services: list-tasks, create-task, get-task, update-task, delete-task")
	return nil
}

func (m *TaskModule) Start(_ context.Context) error {
	if m.dbPlugin == nil || m.dbPlugin.DB() == nil {
		return fmt.Errorf("database plugin not set - ensure 'database' plugin is registered")
	}

	var c Cache
	if m.cachePlugin != nil && m.cachePlugin.Port() != nil {
		c = m.cachePlugin.Port()
	}

	service, err := NewServiceFromDB(m.dbPlugin.DB(), c)
	if err != nil {
		return err
	}
	m.service = service

	if m.eventBus == nil {
		log.Println("[task] Warning: eventBus not set, events will not be published")
	}
	log.Printf("[task] Module started (cache: %t)", c != nil)
	return nil
}

func (m *TaskModule) Stop(_ context.Context) error {
	log.Println("[task] Module stopped")
	return nil
}

func (m *TaskModule) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "service not initialized",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"cache": m.cachePlugin != nil,
		},
	}
}

func (m *TaskModule) listTasks(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	page, err := m.service.ListTasks(ctx, req)
	if err != nil {
		failure, err := toFailure(err)
		return ListTasksResponse{Failure: failure}, err
	}
	return ListTasksResponse{TaskPage: *page}, nil
}

func (m *TaskModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.CreateTask(ctx, req)
	if err != nil {
		failure, err := toFailure(err)
		return TaskResponse{Failure: failure}, err
	}

	m.publishCreated(t)

	return TaskResponse{Task: t}, nil
}

func (m *TaskModule) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.GetTask(ctx, req.TaskID)
	if err != nil {
		failure, err := toFailure(err)
		return TaskResponse{Failure: failure}, err
	}
	return TaskResponse{Task: t}, nil
}

func (m *TaskModule) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	before, err := m.service.GetTask(ctx, req.TaskID)
	if err != nil {
		failure, err := toFailure(err)
		return TaskResponse{Failure: failure}, err
	}

	t, err := m.service.UpdateTask(ctx, req)
	if err != nil {
		failure, err := toFailure(err)
		return TaskResponse{Failure: failure}, err
	}

	m.publishUpdated(before.Status, t)

	return TaskResponse{Task: t}, nil
}

func (m *TaskModule) deleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	t, err := m.service.GetTask(ctx, req.TaskID)
	if err != nil {
		failure, err := toFailure(err)
		return DeleteTaskResponse{Failure: failure}, err
	}

	if err := m.service.DeleteTask(ctx, req.TaskID); err != nil {
		failure, err := toFailure(err)
		return DeleteTaskResponse{Failure: failure}, err
	}

	m.publishDeleted(t.ID, t.UserID)

	return DeleteTaskResponse{Deleted: true}, nil
}

// Events are best-effort: a failed publish never fails the operation.

func (m *TaskModule) publishCreated(t *domain.Task) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskCreatedEvent{
		TaskID:    t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
	}
	if err := events.TaskCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskCreated event: %v", err)
	}
}

func (m *TaskModule) publishUpdated(previous domain.Status, t *domain.Task) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskUpdatedEvent{
		TaskID:         t.ID,
		UserID:         t.UserID,
		Status:         string(t.Status),
		PreviousStatus: string(previous),
		UpdatedAt:      t.UpdatedAt,
	}
	if err := events.TaskUpdatedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskUpdated event: %v", err)
	}
}

func (m *TaskModule) publishDeleted(taskID, userID string) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskDeletedEvent{
		TaskID:    taskID,
		UserID:    userID,
		DeletedAt: time.Now(),
	}
	if err := events.TaskDeletedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskDeleted event: %v", err)
	}
}
