package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/task-api/modules/database"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// render sends a request to a route that fails with err and decodes the reply.
func render(t *testing.T, debug bool, handler fiber.Handler) (int, map[string]any) {
	t.Helper()

	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(debug)})
	app.Use(recover.New())
	app.Get("/fail", handler)

	resp, err := app.Test(httptest.NewRequest("GET", "/fail", nil), -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("response is not JSON: %s", raw)
	}
	return resp.StatusCode, body
}

func failWith(err error) fiber.Handler {
	return func(c *fiber.Ctx) error { return err }
}

func TestErrorHandler_Translation(t *testing.T) {
	dbErr := database.Wrap("find task", errors.New("disk I/O error"))

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantError   string
	}{
		{"validation", validationFailed("Task creation failed", FieldErrors{"title": {"The title field is required."}}), http.StatusUnprocessableEntity, "Task creation failed", ""},
		{"unauthenticated", unauthenticated(), http.StatusUnauthorized, "Unauthenticated.", "Please login to access this resource."},
		{"forbidden", forbidden("You do not have permission to access this task"), http.StatusForbidden, "You do not have permission to access this task", ""},
		{"not found", notFound("Task not found"), http.StatusNotFound, "Task not found", ""},
		{"route not found", fiber.ErrNotFound, http.StatusNotFound, "Not found.", "The requested endpoint does not exist."},
		{"method not allowed", fiber.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "Method not allowed.", "The HTTP method used is not supported for this endpoint."},
		{"rate limited", fiber.ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests.", "You have exceeded the rate limit. Please try again later."},
		{"fiber unauthorized", fiber.ErrUnauthorized, http.StatusUnauthorized, "Unauthenticated.", "Please login to access this resource."},
		{"other client error", fiber.NewError(http.StatusConflict, "duplicate request"), http.StatusConflict, "Conflict.", "duplicate request"},
		{"database", dbErr, http.StatusInternalServerError, "Database error.", "A database error occurred. Please try again later."},
		{"wrapped database", fmt.Errorf("list tasks: %w", dbErr), http.StatusInternalServerError, "Database error.", "A database error occurred. Please try again later."},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "Server error.", "An unexpected error occurred. Please try again later."},
		{"handler server error", serverError("An error occurred while creating the task", errors.New("boom")), http.StatusInternalServerError, "An error occurred while creating the task", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := render(t, false, failWith(tt.err))

			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if body["success"] != false {
				t.Errorf("success = %v, want false", body["success"])
			}
			if body["message"] != tt.wantMessage {
				t.Errorf("message = %v, want %q", body["message"], tt.wantMessage)
			}
			if tt.wantError == "" {
				if _, ok := body["error"]; ok {
					t.Errorf("error = %v, want it omitted", body["error"])
				}
			} else if body["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", body["error"], tt.wantError)
			}
			if _, ok := body["data"]; ok {
				t.Error("error responses must not carry data")
			}
			if _, ok := body["debug"]; ok {
				t.Error("debug must be omitted outside debug mode")
			}
		})
	}
}

func TestErrorHandler_FieldErrors(t *testing.T) {
	_, body := render(t, false, failWith(validationFailed("Task update failed", FieldErrors{
		"title":  {"The title field is required."},
		"status": {"The selected status is invalid."},
	})))

	errs, ok := body["errors"].(map[string]any)
	if !ok {
		t.Fatalf("errors = %v, want an object", body["errors"])
	}
	if len(errs) != 2 {
		t.Errorf("errors has %d fields, want 2", len(errs))
	}
	title := errs["title"].([]any)
	if len(title) != 1 || title[0] != "The title field is required." {
		t.Errorf("errors.title = %v", title)
	}
}

func TestErrorHandler_Panic(t *testing.T) {
	status, body := render(t, false, func(c *fiber.Ctx) error {
		panic("nil map write")
	})

	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
	if body["message"] != "Server error." {
		t.Errorf("message = %v, want Server error.", body["message"])
	}
}

func TestErrorHandler_DebugMode(t *testing.T) {
	dbErr := database.Wrap("find task", errors.New("disk I/O error"))
	status, body := render(t, true, failWith(dbErr))

	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
	if body["error"] != dbErr.Error() {
		t.Errorf("error = %v, want the underlying error %q", body["error"], dbErr.Error())
	}
	debug, ok := body["debug"].(map[string]any)
	if !ok {
		t.Fatalf("debug = %v, want an object", body["debug"])
	}
	if debug["exception"] == "" || debug["exception"] == nil {
		t.Error("debug.exception should name the error type")
	}
	trace, ok := debug["trace"].([]any)
	if !ok || len(trace) > debugTraceDepth {
		t.Errorf("debug.trace = %v, want at most %d frames", debug["trace"], debugTraceDepth)
	}

	// Client errors never carry debug details.
	_, body = render(t, true, failWith(notFound("Task not found")))
	if _, ok := body["debug"]; ok {
		t.Error("4xx responses must not carry debug details")
	}
}

func TestErrorHandler_DebugForHandlerServerError(t *testing.T) {
	_, body := render(t, true, func(c *fiber.Ctx) error {
		return serverError("An error occurred while retrieving tasks", errors.New("connection reset"))
	})

	if body["message"] != "An error occurred while retrieving tasks" {
		t.Errorf("message = %v", body["message"])
	}
	debug, ok := body["debug"].(map[string]any)
	if !ok {
		t.Fatalf("debug = %v, want an object", body["debug"])
	}
	if debug["message"] != "connection reset" {
		t.Errorf("debug.message = %v, want connection reset", debug["message"])
	}
	if debug["exception"] != "*errors.errorString" {
		t.Errorf("debug.exception = %v, want *errors.errorString", debug["exception"])
	}
	if debug["file"] == nil {
		t.Error("debug.file should point at the failing handler")
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := serverError("failed", cause)
	if !errors.Is(err, cause) {
		t.Error("serverError should wrap its cause")
	}
	if got := err.Error(); got != "500 failed: boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrorHandler_DebugOmitsLocationWithoutOrigin(t *testing.T) {
	tests := []struct {
		name    string
		handler fiber.Handler
	}{
		{"plain error", failWith(errors.New("connection reset"))},
		{"panic", func(c *fiber.Ctx) error { panic("nil map write") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := render(t, true, tt.handler)
			if status != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", status)
			}
			debug, ok := body["debug"].(map[string]any)
			if !ok {
				t.Fatalf("debug = %v, want an object", body["debug"])
			}
			if file, ok := debug["file"]; ok {
				t.Errorf("debug.file = %v, want none", file)
			}
			if line, ok := debug["line"]; ok {
				t.Errorf("debug.line = %v, want none", line)
			}
			if trace, _ := debug["trace"].([]any); len(trace) != 0 {
				t.Errorf("debug.trace = %v, want empty", trace)
			}
		})
	}
}

func TestErrorHandler_DebugLocatesAuthFailure(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(true)})
	app.Get("/fail", AuthMiddleware(rejectWith(errors.New("request timed out"))), func(c *fiber.Ctx) error {
		return c.SendString("unreachable")
	})

	req := httptest.NewRequest("GET", "/fail", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	debug, ok := body["debug"].(map[string]any)
	if !ok {
		t.Fatalf("debug = %v, want an object", body["debug"])
	}
	trace, _ := debug["trace"].([]any)
	if len(trace) == 0 {
		t.Fatal("debug.trace should not be empty")
	}
	if first, _ := trace[0].(string); !strings.Contains(first, "AuthMiddleware") || !strings.Contains(first, "middleware.go") {
		t.Errorf("debug.trace[0] = %q, want the auth middleware", first)
	}
	if file, _ := debug["file"].(string); !strings.HasSuffix(file, "middleware.go") {
		t.Errorf("debug.file = %q, want middleware.go", file)
	}
}
