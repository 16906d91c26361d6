package api

import (
	"fmt"

	"github.com/example/task-api/modules/activity"
	"github.com/gofiber/fiber/v2"
)

const (
	msgActivityRetrieved = "Activity retrieved successfully"

	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// ActivityFeed is the read side of the activity module.
type ActivityFeed interface {
	Recent(userID string, limit int) []activity.Entry
}

// activityHandler lists the principal's most recent events, newest first.
func activityHandler(feed ActivityFeed) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := currentPrincipal(c)
		if err != nil {
			return err
		}

		limit := c.QueryInt("limit", defaultActivityLimit)
		if limit < 1 || limit > maxActivityLimit {
			return validationFailed(msgInvalidFilter, map[string][]string{
				"limit": {fmt.Sprintf("The limit field must be between 1 and %d.", maxActivityLimit)},
			})
		}

		return success(c, msgActivityRetrieved, feed.Recent(principal.UserID, limit))
	}
}
