package cache

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/storage"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/storage/redis/v3"
)

// Config configures the cache plugin.
type Config struct {
	RedisAddr string
	Prefix    string
	TTL       time.Duration
	PoolSize  int
}

// DefaultConfig returns the default cache configuration for redisAddr.
func DefaultConfig(redisAddr string) Config {
	return Config{
		RedisAddr: redisAddr,
		Prefix:    "task-api:",
		TTL:       5 * time.Minute,
		PoolSize:  50,
	}
}

// PluginModule provides caching services as a mono plugin module.
// Plugins start first and stop last, so the cache is ready before its consumers.
type PluginModule struct {
	container types.ServiceContainer
	storage   storage.Storage
	service   CacheService
	config    Config
}

// Compile-time interface checks.
var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates a new cache plugin module.
func NewPluginModule(config Config) *PluginModule {
	return &PluginModule{
		config: config,
	}
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "cache"
}

// Start connects to Redis.
func (m *PluginModule) Start(_ context.Context) error {
	// gofiber/storage/redis panics when it cannot connect, so ping it first.
	conn, err := net.DialTimeout("tcp", m.config.RedisAddr, 2*time.Second)
	if err != nil {
		return fmt.Errorf("cache: redis not reachable at %s: %w", m.config.RedisAddr, err)
	}
	conn.Close()

	host, port := parseRedisAddr(m.config.RedisAddr)
	m.storage = redis.New(redis.Config{
		Host:     host,
		Port:     port,
		PoolSize: m.config.PoolSize,
	})
	m.service = NewCacheService(m.storage, m.config.Prefix, m.config.TTL)

	log.Printf("[cache] Plugin started (redis: %s, prefix: %s, TTL: %s)", m.config.RedisAddr, m.config.Prefix, m.config.TTL)
	return nil
}

// Stop closes the Redis connection.
func (m *PluginModule) Stop(_ context.Context) error {
	if m.service != nil {
		if err := m.service.Close(); err != nil {
			log.Printf("[cache] Error closing connection: %v", err)
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	log.Println("[cache] Plugin stopped")
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

// Port returns the CacheService consumers use. It is nil until Start has run.
func (m *PluginModule) Port() CacheService {
	return m.service
}

// Health checks Redis with a lookup of a key that never exists.
func (m *PluginModule) Health(ctx context.Context) mono.HealthStatus {
	if m.storage == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "storage not initialized",
		}
	}

	if _, err := m.storage.GetWithContext(ctx, m.config.Prefix+"__health_check__"); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("health check failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis_addr": m.config.RedisAddr,
			"prefix":     m.config.Prefix,
			"ttl":        m.config.TTL.String(),
		},
	}
}

// parseRedisAddr parses "host:port" into host and port.
// Returns defaults (127.0.0.1:6379) for invalid or missing values.
func parseRedisAddr(addr string) (string, int) {
	const defaultHost = "127.0.0.1"
	const defaultPort = 6379

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	if host == "" {
		host = defaultHost
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = defaultPort
	}
	return host, port
}
