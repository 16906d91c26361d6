package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/example/task-api/modules/auth"
	"github.com/example/task-api/modules/ratelimit"
	"github.com/example/task-api/modules/task"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Config holds HTTP API settings.
type Config struct {
	Port    int
	AppName string
	// Debug adds failure details to 5xx responses.
	Debug bool
	// AllowOrigins is the CORS allow list, "*" by default.
	AllowOrigins   string
	PasswordPolicy auth.PasswordPolicy
	// LogOutput receives request log lines. Nil means stdout.
	LogOutput io.Writer
}

// DefaultConfig returns the default API configuration.
func DefaultConfig() Config {
	return Config{
		Port:           8000,
		AppName:        "Task API",
		AllowOrigins:   "*",
		PasswordPolicy: auth.DefaultPasswordPolicy(),
	}
}

// HealthChecker is anything that can report its health on /health.
type HealthChecker interface {
	Health(ctx context.Context) mono.HealthStatus
}

// APIModule is the HTTP API module.
type APIModule struct {
	config    Config
	app       *fiber.App
	authPort  auth.AuthPort
	taskPort  task.TaskPort
	rateLimit *ratelimit.RateLimitModule
	activity  ActivityFeed

	mu     sync.RWMutex
	checks map[string]HealthChecker
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(config Config) *APIModule {
	return &APIModule{
		config: config,
		checks: make(map[string]HealthChecker),
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "task"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authPort = auth.NewAuthAdapter(container)
	case "task":
		m.taskPort = task.NewTaskAdapter(container)
	}
}

// SetRateLimitModule enables rate limiting backed by rlm. The module must be
// registered before the API so it is started first.
func (m *APIModule) SetRateLimitModule(rlm *ratelimit.RateLimitModule) {
	m.rateLimit = rlm
}

// SetActivityFeed serves feed on GET /api/activity.
func (m *APIModule) SetActivityFeed(feed ActivityFeed) {
	m.activity = feed
}

// AddHealthCheck reports checker under name on /health.
func (m *APIModule) AddHealthCheck(name string, checker HealthChecker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = checker
}

// Start builds the Fiber app and starts listening.
func (m *APIModule) Start(_ context.Context) error {
	if m.authPort == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.taskPort == nil {
		return fmt.Errorf("task dependency not set")
	}

	var limiter *ratelimit.Middleware
	if m.rateLimit != nil {
		if limiter = m.rateLimit.Middleware(); limiter == nil {
			log.Println("[api] Rate limit module not started, serving without rate limiting")
		}
	}

	m.app = NewApp(m.config, m.authPort, m.taskPort, limiter)
	m.app.Get("/health", m.healthHandler)
	if m.activity != nil {
		m.app.Get("/api/activity", withChain(protectedChain(m.authPort, limiter), activityHandler(m.activity))...)
	}

	addr := fmt.Sprintf(":%d", m.config.Port)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on %s", addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.Shutdown()
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port":         m.config.Port,
			"rate_limited": m.rateLimit != nil,
			"debug":        m.config.Debug,
		},
	}
}

// NewApp builds the Fiber application serving the task API. A nil limiter
// disables rate limiting.
func NewApp(config Config, authPort auth.AuthPort, taskPort task.TaskPort, limiter *ratelimit.Middleware) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               config.AppName,
		DisableStartupMessage: true,
		ErrorHandler:          NewErrorHandler(config.Debug),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: config.Debug}))
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		Output: config.LogOutput,
	}))
	allowOrigins := config.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(cors.New(cors.Config{AllowOrigins: allowOrigins}))

	setupRoutes(app, NewHandlers(authPort, taskPort, config.PasswordPolicy), authPort, limiter)
	return app
}

// publicChain is the middleware in front of routes open to anyone.
func publicChain(limiter *ratelimit.Middleware) []fiber.Handler {
	if limiter == nil {
		return nil
	}
	return []fiber.Handler{limiter.IPRateLimit()}
}

// protectedChain is the middleware in front of routes requiring a token.
// Requests are limited by client IP before the token is checked and by user
// afterwards, so requests with bad tokens are throttled too.
func protectedChain(authPort auth.AuthPort, limiter *ratelimit.Middleware) []fiber.Handler {
	if limiter == nil {
		return []fiber.Handler{AuthMiddleware(authPort)}
	}
	return []fiber.Handler{limiter.IPRateLimit(), AuthMiddleware(authPort), limiter.UserRateLimit()}
}

func withChain(middleware []fiber.Handler, handler fiber.Handler) []fiber.Handler {
	chain := make([]fiber.Handler, 0, len(middleware)+1)
	chain = append(chain, middleware...)
	return append(chain, handler)
}

// setupRoutes configures all API routes. Middleware is attached per route
// so unknown paths fall through to a 404 instead of a 401.
func setupRoutes(app *fiber.App, h *Handlers, authPort auth.AuthPort, limiter *ratelimit.Middleware) {
	public := publicChain(limiter)
	protected := protectedChain(authPort, limiter)

	api := app.Group("/api")

	// Public auth routes
	api.Post("/register", withChain(public, h.Register)...)
	api.Post("/login", withChain(public, h.Login)...)

	// Protected routes (require authentication)
	api.Post("/logout", withChain(protected, h.Logout)...)
	api.Get("/me", withChain(protected, h.Me)...)

	api.Get("/tasks", withChain(protected, h.ListTasks)...)
	api.Post("/tasks", withChain(protected, h.CreateTask)...)
	api.Get("/tasks/:id", withChain(protected, h.GetTask)...)
	api.Put("/tasks/:id", withChain(protected, h.UpdateTask)...)
	api.Patch("/tasks/:id", withChain(protected, h.UpdateTask)...)
	api.Delete("/tasks/:id", withChain(protected, h.DeleteTask)...)
}

// healthHandler reports every registered health check; any unhealthy
// check turns the response into a 503.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	m.mu.RLock()
	checks := make(map[string]HealthChecker, len(m.checks)+1)
	for name, checker := range m.checks {
		checks[name] = checker
	}
	m.mu.RUnlock()
	checks[m.Name()] = m

	resp := HealthResponse{
		Status:  "healthy",
		App:     m.config.AppName,
		Time:    time.Now().UTC(),
		Modules: make(map[string]ModuleHealth, len(checks)),
	}
	status := fiber.StatusOK
	for name, checker := range checks {
		h := checker.Health(ctx)
		resp.Modules[name] = ModuleHealth{Healthy: h.Healthy, Message: h.Message, Details: h.Details}
		if !h.Healthy {
			resp.Status = "unhealthy"
			status = fiber.StatusServiceUnavailable
		}
	}
	return c.Status(status).JSON(resp)
}
