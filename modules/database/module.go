package database

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/gorm"
)

// PluginModule shares one database connection with every module that uses it.
// Plugins start first and stop last, so the connection outlives its consumers.
type PluginModule struct {
	container types.ServiceContainer
	config    Config
	db        *gorm.DB
}

// Compile-time interface checks.
var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates a new database plugin.
func NewPluginModule(config Config) *PluginModule {
	return &PluginModule{
		config: config,
	}
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "database"
}

// Start opens the connection pool.
func (m *PluginModule) Start(_ context.Context) error {
	db, err := Open(m.config)
	if err != nil {
		return err
	}
	m.db = db

	log.Printf("[database] Plugin started (driver: %s)", m.driver())
	return nil
}

// Stop closes the connection pool.
func (m *PluginModule) Stop(_ context.Context) error {
	if err := Close(m.db); err != nil {
		log.Printf("[database] Error closing connection: %v", err)
		return fmt.Errorf("failed to close database: %w", err)
	}
	log.Println("[database] Plugin stopped")
	return nil
}

// SetContainer sets the service container for this plugin.
func (m *PluginModule) SetContainer(container types.ServiceContainer) {
	m.container = container
}

// Container returns the service container for this plugin.
func (m *PluginModule) Container() types.ServiceContainer {
	return m.container
}

// DB returns the shared connection. It is nil until Start has run.
func (m *PluginModule) DB() *gorm.DB {
	return m.db
}

// Health pings the database.
func (m *PluginModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	stats := sqlDB.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver":           m.driver(),
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
		},
	}
}

func (m *PluginModule) driver() string {
	if m.config.Driver == "" {
		return DriverSQLite
	}
	return m.config.Driver
}
