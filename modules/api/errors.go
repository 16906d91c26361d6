package api

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"

	"github.com/example/task-api/modules/database"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// Messages rendered by the error handler.
const (
	msgUnauthenticated    = "Unauthenticated."
	detailUnauthenticated = "Please login to access this resource."
	msgForbidden          = "Forbidden."
	detailForbidden       = "You do not have permission to access this resource."
	msgRouteNotFound      = "Not found."
	detailRouteNotFound   = "The requested endpoint does not exist."
	msgMethodNotAllowed   = "Method not allowed."
	detailMethod          = "The HTTP method used is not supported for this endpoint."
	msgTooManyRequests    = "Too many requests."
	detailTooManyRequests = "You have exceeded the rate limit. Please try again later."
	msgMalformedBody      = "Malformed request body."
	msgDatabase           = "Database error."
	detailDatabase        = "A database error occurred. Please try again later."
	msgServer             = "Server error."
	detailServer          = "An unexpected error occurred. Please try again later."
)

// debugTraceDepth bounds the frames attached to debug payloads.
const debugTraceDepth = 5

// apiError is an error that already knows how it is rendered.
type apiError struct {
	Status  int
	Message string
	// Detail fills the envelope's error field.
	Detail string
	// Fields fills the envelope's errors field.
	Fields map[string][]string
	// Cause is logged and, in debug mode, described for 5xx responses.
	Cause error

	frames []uintptr
}

func (e *apiError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *apiError) Unwrap() error {
	return e.Cause
}

func (e *apiError) envelope() Envelope {
	return Envelope{
		Success: false,
		Message: e.Message,
		Errors:  e.Fields,
		Error:   e.Detail,
	}
}

func badRequest(message, detail string) *apiError {
	return &apiError{Status: fiber.StatusBadRequest, Message: message, Detail: detail}
}

// unauthorized is a 401 carrying only a message, as used for bad credentials.
func unauthorized(message string) *apiError {
	return &apiError{Status: fiber.StatusUnauthorized, Message: message}
}

// unauthenticated is the 401 for requests without a usable token.
func unauthenticated() *apiError {
	return &apiError{Status: fiber.StatusUnauthorized, Message: msgUnauthenticated, Detail: detailUnauthenticated}
}

func forbidden(message string) *apiError {
	return &apiError{Status: fiber.StatusForbidden, Message: message}
}

func notFound(message string) *apiError {
	return &apiError{Status: fiber.StatusNotFound, Message: message}
}

func validationFailed(message string, fields map[string][]string) *apiError {
	return &apiError{Status: fiber.StatusUnprocessableEntity, Message: message, Fields: fields}
}

// serverError is a 500 whose message is safe to show; cause is only logged.
func serverError(message string, cause error) *apiError {
	return &apiError{
		Status:  fiber.StatusInternalServerError,
		Message: message,
		Cause:   cause,
		frames:  callers(3),
	}
}

// NewErrorHandler returns the Fiber error handler that renders every error
// returned by middleware and handlers as an envelope. In debug mode 5xx
// bodies carry the underlying error and a short trace.
func NewErrorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		apiErr := translate(err, debug)

		if apiErr.Status >= fiber.StatusInternalServerError {
			log.Printf("[api] %s %s failed: %v", c.Method(), c.Path(), err)
		}

		body := apiErr.envelope()
		if debug && apiErr.Status >= fiber.StatusInternalServerError {
			body.Debug = newDebugInfo(apiErr)
		}
		return c.Status(apiErr.Status).JSON(body)
	}
}

// translate maps any error onto the response it should produce. Only errors
// built by serverError carry frames; anything else reaches here without a
// record of where it was raised, so its debug payload has no file or line.
func translate(err error, debug bool) *apiError {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromFiberError(fiberErr, debug)
	}

	detail := func(generic string) string {
		if debug {
			return err.Error()
		}
		return generic
	}
	if errors.Is(err, database.ErrPersistence) {
		return &apiError{
			Status:  fiber.StatusInternalServerError,
			Message: msgDatabase,
			Detail:  detail(detailDatabase),
			Cause:   err,
		}
	}
	return &apiError{
		Status:  fiber.StatusInternalServerError,
		Message: msgServer,
		Detail:  detail(detailServer),
		Cause:   err,
	}
}

func fromFiberError(e *fiber.Error, debug bool) *apiError {
	switch e.Code {
	case fiber.StatusNotFound:
		return &apiError{Status: e.Code, Message: msgRouteNotFound, Detail: detailRouteNotFound}
	case fiber.StatusMethodNotAllowed:
		return &apiError{Status: e.Code, Message: msgMethodNotAllowed, Detail: detailMethod}
	case fiber.StatusTooManyRequests:
		return &apiError{Status: e.Code, Message: msgTooManyRequests, Detail: detailTooManyRequests}
	case fiber.StatusUnauthorized:
		return unauthenticated()
	case fiber.StatusForbidden:
		return &apiError{Status: e.Code, Message: msgForbidden, Detail: detailForbidden}
	}

	if e.Code >= fiber.StatusInternalServerError {
		detail := detailServer
		if debug {
			detail = e.Message
		}
		return &apiError{Status: e.Code, Message: msgServer, Detail: detail, Cause: e}
	}
	return &apiError{Status: e.Code, Message: utils.StatusMessage(e.Code) + ".", Detail: e.Message}
}

// DebugInfo describes the failure behind a 5xx response in debug mode.
type DebugInfo struct {
	Exception string   `json:"exception"`
	Message   string   `json:"message"`
	File      string   `json:"file,omitempty"`
	Line      int      `json:"line,omitempty"`
	Trace     []string `json:"trace"`
}

func newDebugInfo(e *apiError) *DebugInfo {
	info := &DebugInfo{Trace: make([]string, 0, debugTraceDepth)}

	root := error(e)
	if e.Cause != nil {
		root = e.Cause
		for next := errors.Unwrap(root); next != nil; next = errors.Unwrap(root) {
			root = next
		}
		info.Message = e.Cause.Error()
	}
	info.Exception = fmt.Sprintf("%T", root)

	frames := runtime.CallersFrames(e.frames)
	for len(info.Trace) < debugTraceDepth {
		frame, more := frames.Next()
		if frame.Function != "" {
			if info.File == "" {
				info.File = frame.File
				info.Line = frame.Line
			}
			info.Trace = append(info.Trace, fmt.Sprintf("%s (%s:%d)", trimFunction(frame.Function), frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	return info
}

func callers(skip int) []uintptr {
	pcs := make([]uintptr, debugTraceDepth)
	n := runtime.Callers(skip, pcs)
	return pcs[:n]
}

// trimFunction drops the import path from a qualified function name.
func trimFunction(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
