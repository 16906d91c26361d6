package api

import (
	"errors"
	"strconv"
	"strings"

	taskdomain "github.com/example/task-api/domain/task"
	"github.com/example/task-api/modules/task"
	"github.com/gofiber/fiber/v2"
)

const (
	msgTasksRetrieved = "Tasks retrieved successfully"
	msgInvalidFilter  = "Invalid filter parameters"
	msgListError      = "An error occurred while retrieving tasks"
	msgTaskCreated    = "Task created successfully"
	msgCreateFailed   = "Task creation failed"
	msgCreateError    = "An error occurred while creating the task"
	msgTaskRetrieved  = "Task retrieved successfully"
	msgShowError      = "An error occurred while retrieving the task"
	msgTaskUpdated    = "Task updated successfully"
	msgUpdateFailed   = "Task update failed"
	msgUpdateError    = "An error occurred while updating the task"
	msgTaskDeleted    = "Task deleted successfully"
	msgDeleteError    = "An error occurred while deleting the task"
	msgTaskNotFound   = "Task not found"
)

// Actions named in ownership failures.
const (
	actionAccess = "access"
	actionUpdate = "update"
	actionDelete = "delete"
)

// ListTasks returns one page of the principal's tasks, newest first.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}

	query, fields := h.parseListQuery(c)
	if len(fields) > 0 {
		return validationFailed(msgInvalidFilter, fields)
	}

	page, err := h.tasks.ListTasks(c.UserContext(), task.ListTasksRequest{
		UserID:  principal.UserID,
		Status:  taskdomain.Status(query.Status),
		Page:    query.Page,
		PerPage: query.PerPage,
	})
	if err != nil {
		return serverError(msgListError, err)
	}

	tasks := page.Tasks
	if tasks == nil {
		tasks = []taskdomain.Task{}
	}
	return c.JSON(TaskListResponse{
		Success:    true,
		Message:    msgTasksRetrieved,
		Data:       tasks,
		Pagination: newPaginator(c).build(page.Page, page.PerPage, len(tasks), page.Total),
	})
}

// parseListQuery reads status, per_page and page. per_page must be an
// integer in range when given; page falls back to 1.
func (h *Handlers) parseListQuery(c *fiber.Ctx) (listTasksQuery, FieldErrors) {
	query := listTasksQuery{
		Status:  strings.TrimSpace(c.Query("status")),
		PerPage: task.DefaultPerPage,
		Page:    c.QueryInt("page", 1),
	}
	if query.Page < 1 {
		query.Page = 1
	}

	fields := FieldErrors{}
	if c.Context().QueryArgs().Has("per_page") {
		perPage, err := strconv.Atoi(strings.TrimSpace(c.Query("per_page")))
		if err != nil {
			fields.Add("per_page", "The per page field must be an integer.")
		} else {
			query.PerPage = perPage
		}
	}
	fields.Merge(h.validator.Struct(query))
	return query, fields
}

// CreateTask creates a task owned by the principal.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}

	var in createTaskInput
	_, fields, err := decodeBody(c, &in)
	if err != nil {
		return err
	}
	in.normalize()
	fields.Merge(h.validator.Struct(in))
	if len(fields) > 0 {
		return validationFailed(msgCreateFailed, fields)
	}

	t, err := h.tasks.CreateTask(c.UserContext(), task.CreateTaskRequest{
		UserID:      principal.UserID,
		Title:       in.Title,
		Description: in.Description,
		Status:      taskdomain.Status(in.Status),
	})
	if err != nil {
		return serverError(msgCreateError, err)
	}
	return created(c, msgTaskCreated, t)
}

// GetTask returns one of the principal's tasks.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	t, err := h.ownedTask(c, actionAccess, msgShowError)
	if err != nil {
		return err
	}
	return success(c, msgTaskRetrieved, t)
}

// UpdateTask applies the fields present in the body. Ownership is checked
// before the body is validated.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	t, err := h.ownedTask(c, actionUpdate, msgUpdateError)
	if err != nil {
		return err
	}

	var in updateTaskInput
	present, fields, err := decodeBody(c, &in)
	if err != nil {
		return err
	}
	in.normalize()

	var validate []string
	if present["title"] {
		validate = append(validate, "Title")
	}
	if present["status"] {
		validate = append(validate, "Status")
	}
	fields.Merge(h.validator.Partial(in, validate...))
	if len(fields) > 0 {
		return validationFailed(msgUpdateFailed, fields)
	}

	patch := task.TaskPatch{}
	if present["title"] {
		patch.Title = &in.Title
	}
	if present["status"] {
		status := taskdomain.Status(in.Status)
		patch.Status = &status
	}
	if present["description"] {
		if in.Description == nil {
			patch.ClearDescription = true
		} else {
			patch.Description = in.Description
		}
	}
	if patch == (task.TaskPatch{}) {
		return success(c, msgTaskUpdated, t)
	}

	updated, err := h.tasks.UpdateTask(c.UserContext(), task.UpdateTaskRequest{
		TaskID: t.ID,
		Patch:  patch,
	})
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return notFound(msgTaskNotFound)
		}
		return serverError(msgUpdateError, err)
	}
	return success(c, msgTaskUpdated, updated)
}

// DeleteTask permanently removes one of the principal's tasks.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	t, err := h.ownedTask(c, actionDelete, msgDeleteError)
	if err != nil {
		return err
	}

	if err := h.tasks.DeleteTask(c.UserContext(), t.ID); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return notFound(msgTaskNotFound)
		}
		return serverError(msgDeleteError, err)
	}
	return success(c, msgTaskDeleted, nil)
}
