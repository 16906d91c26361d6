package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	domain "github.com/example/task-api/domain/user"
	"github.com/example/task-api/events"
	"github.com/example/task-api/modules/database"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthModule provides authentication services.
type AuthModule struct {
	config   Config
	dbPlugin *database.PluginModule
	service  *AuthService
	eventBus mono.EventBus
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)
var _ mono.UsePluginModule = (*AuthModule)(nil)
var _ mono.EventEmitterModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule.
func NewModule(config Config) *AuthModule {
	return &AuthModule{
		config: config,
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// SetPlugin receives the shared database plugin.
func (m *AuthModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "database" {
		return
	}
	if dbPlugin, ok := plugin.(*database.PluginModule); ok {
		m.dbPlugin = dbPlugin
		log.Println("[auth] Database plugin injected")
	}
}

// SetEventBus receives the event bus used to publish registrations.
func (m *AuthModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *AuthModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserRegisteredV1.ToBase(),
	}
}

// Start migrates the auth tables and wires the service.
func (m *AuthModule) Start(_ context.Context) error {
	if m.dbPlugin == nil || m.dbPlugin.DB() == nil {
		return fmt.Errorf("database plugin not set - ensure 'database' plugin is registered")
	}

	service, err := NewAuthServiceFromDB(m.dbPlugin.DB(), m.config)
	if err != nil {
		return err
	}
	m.service = service

	log.Printf("[auth] Module started (token lifetime: %s)", lifetime(m.config.JWT.TokenDuration))
	return nil
}

// Stop shuts down the module. The connection belongs to the database plugin.
func (m *AuthModule) Stop(_ context.Context) error {
	log.Println("[auth] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "service not initialized",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"token_lifetime": lifetime(m.config.JWT.TokenDuration),
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "register", json.Unmarshal, json.Marshal, m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "login", json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "logout", json.Unmarshal, json.Marshal, m.handleLogout,
	); err != nil {
		return fmt.Errorf("failed to register logout service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-token", json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-user", json.Unmarshal, json.Marshal, m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}

	log.Printf("[auth] Registered services: register, login, logout, validate-token, get-user")
	return nil
}

// Expected failures are returned inside the reply, not as errors, so the
// caller can tell them apart from transport problems.

func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (SessionResponse, error) {
	session, err := m.service.Register(ctx, req)
	if err != nil {
		failure, err := toFailure(err)
		return SessionResponse{Failure: failure}, err
	}

	m.publishRegistered(session)

	return SessionResponse{User: session.User, Token: session.Token}, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (SessionResponse, error) {
	session, err := m.service.Login(ctx, req)
	if err != nil {
		failure, err := toFailure(err)
		return SessionResponse{Failure: failure}, err
	}
	return SessionResponse{User: session.User, Token: session.Token}, nil
}

func (m *AuthModule) handleLogout(ctx context.Context, req LogoutRequest, _ *mono.Msg) (LogoutResponse, error) {
	if err := m.service.Logout(ctx, req.TokenID); err != nil {
		failure, err := toFailure(err)
		return LogoutResponse{Failure: failure}, err
	}
	return LogoutResponse{Revoked: true}, nil
}

func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		failure, err := toFailure(err)
		return ValidateTokenResponse{Valid: false, Failure: failure}, err
	}

	return ValidateTokenResponse{
		Valid:   true,
		UserID:  claims.UserID,
		Email:   claims.Email,
		TokenID: claims.TokenID,
	}, nil
}

func (m *AuthModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (GetUserResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		failure, err := toFailure(err)
		return GetUserResponse{Failure: failure}, err
	}
	return GetUserResponse{User: user}, nil
}

// publishRegistered is best-effort: a registration never fails because of the bus.
func (m *AuthModule) publishRegistered(session *domain.Session) {
	if m.eventBus == nil || session == nil || session.User == nil {
		return
	}
	event := events.UserRegisteredEvent{
		UserID:       session.User.ID,
		Email:        session.User.Email,
		RegisteredAt: session.User.CreatedAt,
	}
	if err := events.UserRegisteredV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[auth] Warning: failed to publish UserRegistered event: %v", err)
	}
}

func lifetime(d time.Duration) string {
	if d <= 0 {
		return "until revoked"
	}
	return d.String()
}
