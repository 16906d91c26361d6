package api

import (
	"github.com/gofiber/fiber/v2"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// Data is omitted, never null, when there is no payload.
	Data   any                 `json:"data,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
	Error  string              `json:"error,omitempty"`
	Debug  *DebugInfo          `json:"debug,omitempty"`
}

// success writes a 200 envelope. A nil data leaves the data key out.
func success(c *fiber.Ctx, message string, data any) error {
	return respond(c, fiber.StatusOK, message, data)
}

// created writes a 201 envelope.
func created(c *fiber.Ctx, message string, data any) error {
	return respond(c, fiber.StatusCreated, message, data)
}

// noContent writes an empty 204 response.
func noContent(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNoContent).Send(nil)
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}
