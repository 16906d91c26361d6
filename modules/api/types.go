package api

import (
	"strings"
	"time"

	taskdomain "github.com/example/task-api/domain/task"
	userdomain "github.com/example/task-api/domain/user"
)

// registerInput is the body of POST /api/register.
type registerInput struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,eqfield=PasswordConfirmation"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func (in *registerInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
}

// loginInput is the body of POST /api/login.
type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (in *loginInput) normalize() {
	in.Email = strings.TrimSpace(in.Email)
}

// createTaskInput is the body of POST /api/tasks.
type createTaskInput struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description"`
	Status      string  `json:"status" validate:"required,oneof=pending in-progress completed"`
}

func (in *createTaskInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Status = strings.TrimSpace(in.Status)
	in.Description = blankToNil(in.Description)
}

// updateTaskInput is the body of PUT/PATCH /api/tasks/:id. Only the keys
// present in the body are validated and applied.
type updateTaskInput struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description"`
	Status      string  `json:"status" validate:"required,oneof=pending in-progress completed"`
}

func (in *updateTaskInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Status = strings.TrimSpace(in.Status)
	in.Description = blankToNil(in.Description)
}

// listTasksQuery holds the validated query of GET /api/tasks.
type listTasksQuery struct {
	Status  string `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	PerPage int    `json:"per_page" validate:"min=1,max=100"`
	Page    int    `json:"-"`
}

// blankToNil treats an empty or whitespace string as null.
func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// UserSummary is the user shape returned with a token.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SessionData is the data of a successful register or login.
type SessionData struct {
	User  UserSummary `json:"user"`
	Token string      `json:"token"`
}

func newSessionData(s *userdomain.Session) SessionData {
	return SessionData{
		User: UserSummary{
			ID:    s.User.ID,
			Name:  s.User.Name,
			Email: s.User.Email,
		},
		Token: s.Token,
	}
}

// MeData is the data of GET /api/me.
type MeData struct {
	User *userdomain.User `json:"user"`
}

// TaskListResponse is the body of GET /api/tasks: the envelope with the
// paginator fields alongside it.
type TaskListResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    []taskdomain.Task `json:"data"`
	Pagination
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string                  `json:"status"`
	App     string                  `json:"app"`
	Time    time.Time               `json:"time"`
	Modules map[string]ModuleHealth `json:"modules"`
}

// ModuleHealth is one module's entry in HealthResponse.
type ModuleHealth struct {
	Healthy bool           `json:"healthy"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
