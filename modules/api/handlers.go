package api

import (
	"github.com/example/task-api/modules/auth"
	"github.com/example/task-api/modules/task"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth      auth.AuthPort
	tasks     task.TaskPort
	validator *Validator
	policy    auth.PasswordPolicy
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authPort auth.AuthPort, taskPort task.TaskPort, policy auth.PasswordPolicy) *Handlers {
	return &Handlers{
		auth:      authPort,
		tasks:     taskPort,
		validator: NewValidator(),
		policy:    policy,
	}
}
