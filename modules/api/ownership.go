package api

import (
	"errors"
	"fmt"

	taskdomain "github.com/example/task-api/domain/task"
	userdomain "github.com/example/task-api/domain/user"
	"github.com/example/task-api/modules/task"
	"github.com/gofiber/fiber/v2"
)

// authorizeTask allows action on t only for its owner.
func authorizeTask(principal *userdomain.Claims, t *taskdomain.Task, action string) error {
	if principal != nil && t.OwnedBy(principal.UserID) {
		return nil
	}
	return forbidden(fmt.Sprintf("You do not have permission to %s this task", action))
}

// ownedTask resolves the task named in the route and checks the principal
// may perform action on it. Lookup failures other than not-found are
// reported with failure as the message.
func (h *Handlers) ownedTask(c *fiber.Ctx, action, failure string) (*taskdomain.Task, error) {
	principal, err := currentPrincipal(c)
	if err != nil {
		return nil, err
	}

	t, err := h.tasks.GetTask(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return nil, notFound(msgTaskNotFound)
		}
		return nil, serverError(failure, err)
	}

	if err := authorizeTask(principal, t, action); err != nil {
		return nil, err
	}
	return t, nil
}
