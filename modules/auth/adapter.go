package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/task-api/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort defines the interface for authentication operations.
// This is the port that other modules use to access auth functionality.
type AuthPort interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Session, error)
	Login(ctx context.Context, req LoginRequest) (*domain.Session, error)
	Logout(ctx context.Context, tokenID string) error
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{
		container: container,
	}
}

// Register creates an account via the register service.
func (a *AuthAdapter) Register(ctx context.Context, req RegisterRequest) (*domain.Session, error) {
	var resp SessionResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"register",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return &domain.Session{User: resp.User, Token: resp.Token}, nil
}

// Login authenticates via the login service.
func (a *AuthAdapter) Login(ctx context.Context, req LoginRequest) (*domain.Session, error) {
	var resp SessionResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"login",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return &domain.Session{User: resp.User, Token: resp.Token}, nil
}

// Logout revokes a token via the logout service.
func (a *AuthAdapter) Logout(ctx context.Context, tokenID string) error {
	req := LogoutRequest{TokenID: tokenID}
	var resp LogoutResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"logout",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return resp.Err()
}

// ValidateToken validates a bearer token and returns claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"validate-token",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("validate-token request failed: %w", err)
	}

	if !resp.Valid {
		if err := resp.Err(); err != nil {
			return nil, err
		}
		return nil, ErrInvalidToken
	}

	return &domain.Claims{
		UserID:  resp.UserID,
		Email:   resp.Email,
		TokenID: resp.TokenID,
	}, nil
}

// GetUser retrieves a user by ID.
func (a *AuthAdapter) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	req := GetUserRequest{UserID: userID}
	var resp GetUserResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-user",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-user request failed: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.User, nil
}
