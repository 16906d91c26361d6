// Task API - a per-user task management service built on the mono framework.
//
// This application provides:
// - Token authentication (register, login, logout, current user)
// - Task CRUD scoped to the authenticated owner
// - Paginated listings with page links and status filtering
// - Optional Redis-backed rate limiting and task caching
package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	domainratelimit "github.com/example/task-api/domain/ratelimit"
	"github.com/example/task-api/modules/activity"
	"github.com/example/task-api/modules/api"
	"github.com/example/task-api/modules/auth"
	"github.com/example/task-api/modules/cache"
	"github.com/example/task-api/modules/database"
	"github.com/example/task-api/modules/ratelimit"
	"github.com/example/task-api/modules/task"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Task API ===")

	dbConfig := database.Config{
		Driver: getEnv("DB_DRIVER", database.DriverSQLite),
		DSN:    getEnv("DB_DSN", "task_api.db"),
		Debug:  getEnvBool("DB_DEBUG", false),
	}

	authConfig := auth.DefaultConfig()
	authConfig.JWT.SecretKey = getEnv("JWT_SECRET_KEY", authConfig.JWT.SecretKey)
	authConfig.JWT.Issuer = getEnv("JWT_ISSUER", authConfig.JWT.Issuer)
	authConfig.JWT.TokenDuration = getEnvDuration("TOKEN_TTL", authConfig.JWT.TokenDuration)
	authConfig.BcryptCost = getEnvInt("BCRYPT_COST", authConfig.BcryptCost)

	apiConfig := api.DefaultConfig()
	apiConfig.Port = getEnvInt("HTTP_PORT", apiConfig.Port)
	apiConfig.AppName = getEnv("APP_NAME", apiConfig.AppName)
	apiConfig.Debug = getEnvBool("APP_DEBUG", false)
	apiConfig.AllowOrigins = getEnv("CORS_ALLOWED_ORIGINS", apiConfig.AllowOrigins)
	apiConfig.PasswordPolicy = auth.PasswordPolicy{
		MinLength:        getEnvInt("PASSWORD_MIN_LENGTH", apiConfig.PasswordPolicy.MinLength),
		RequireMixedCase: getEnvBool("PASSWORD_REQUIRE_MIXED_CASE", false),
		RequireNumbers:   getEnvBool("PASSWORD_REQUIRE_NUMBERS", false),
		RequireSymbols:   getEnvBool("PASSWORD_REQUIRE_SYMBOLS", false),
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	cacheAddr := os.Getenv("CACHE_REDIS_ADDR")

	log.Printf("Configuration:")
	log.Printf("  HTTP Port: %d", apiConfig.Port)
	log.Printf("  Database: %s (%s)", dbConfig.Driver, dbConfig.DSN)
	log.Printf("  Debug: %t", apiConfig.Debug)
	log.Printf("  Rate Limiting: %s", describeAddr(redisAddr))
	log.Printf("  Task Cache: %s", describeAddr(cacheAddr))

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Plugins start before modules and stop after them
	dbPlugin := database.NewPluginModule(dbConfig)
	if err := app.RegisterPlugin(dbPlugin, "database"); err != nil {
		log.Fatalf("Failed to register database plugin: %v", err)
	}

	var cachePlugin *cache.PluginModule
	if cacheAddr != "" {
		cacheConfig := cache.DefaultConfig(cacheAddr)
		cacheConfig.TTL = getEnvDuration("CACHE_TTL", cacheConfig.TTL)
		cachePlugin = cache.NewPluginModule(cacheConfig)
		if err := app.RegisterPlugin(cachePlugin, "cache"); err != nil {
			log.Fatalf("Failed to register cache plugin: %v", err)
		}
	}

	authModule := auth.NewModule(authConfig)
	taskModule := task.NewModule()
	activityModule := activity.NewModule(0)
	apiModule := api.NewModule(apiConfig)
	apiModule.SetActivityFeed(activityModule)

	var rateLimitModule *ratelimit.RateLimitModule
	if redisAddr != "" {
		perMinute := getEnvInt("RATE_LIMIT_PER_MINUTE", domainratelimit.DefaultIPConfig().RequestsPerWindow)
		rateLimitModule = ratelimit.NewModule(redisAddr, domainratelimit.PerMinute(perMinute))
		apiModule.SetRateLimitModule(rateLimitModule)
	}

	apiModule.AddHealthCheck("database", dbPlugin)
	apiModule.AddHealthCheck("auth", authModule)
	apiModule.AddHealthCheck("task", taskModule)
	apiModule.AddHealthCheck("activity", activityModule)
	if cachePlugin != nil {
		apiModule.AddHealthCheck("cache", cachePlugin)
	}
	if rateLimitModule != nil {
		apiModule.AddHealthCheck("ratelimit", rateLimitModule)
	}

	// Register modules with the framework
	// Order: independent modules first, then dependent modules
	modules := []mono.Module{authModule, taskModule, activityModule}
	if rateLimitModule != nil {
		modules = append(modules, rateLimitModule)
	}
	modules = append(modules, apiModule)
	for _, m := range modules {
		if err := app.Register(m); err != nil {
			log.Fatalf("Failed to register %s module: %v", m.Name(), err)
		}
	}

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(apiConfig.Port)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(port int) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%d):", port)
	log.Println("")
	log.Println("  Public Endpoints:")
	log.Println("  POST   /api/register   - Register a new user")
	log.Println("  POST   /api/login      - Login and get a token")
	log.Println("  GET    /health         - Health check")
	log.Println("")
	log.Println("  Protected Endpoints (require Bearer token):")
	log.Println("  POST   /api/logout     - Revoke the current token")
	log.Println("  GET    /api/me         - Current user")
	log.Println("  GET    /api/activity   - Recent account and task events (?limit=)")
	log.Println("  GET    /api/tasks      - List tasks (?status=&per_page=&page=)")
	log.Println("  POST   /api/tasks      - Create a task")
	log.Println("  GET    /api/tasks/:id  - Show a task")
	log.Println("  PUT    /api/tasks/:id  - Update a task")
	log.Println("  DELETE /api/tasks/:id  - Delete a task")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

func describeAddr(addr string) string {
	if addr == "" {
		return "disabled"
	}
	return addr
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
// Logs a warning if the value cannot be parsed as an integer.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
		log.Printf("Warning: invalid integer value for %s: %q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return result
		}
		log.Printf("Warning: invalid boolean value for %s: %q, using default %t", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90m") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: invalid duration value for %s: %q, using default %s", key, value, defaultValue)
	return defaultValue
}
