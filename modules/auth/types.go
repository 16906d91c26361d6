package auth

import (
	domain "github.com/example/task-api/domain/user"
)

// Failure carries an expected error across the service boundary.
// Code is empty on success.
type Failure struct {
	Code   string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is the reply to register and login.
type SessionResponse struct {
	User  *domain.User `json:"user,omitempty"`
	Token string       `json:"token,omitempty"`
	Failure
}

// LogoutRequest represents a logout request for a single token.
type LogoutRequest struct {
	TokenID string `json:"token_id"`
}

// LogoutResponse represents a logout response.
type LogoutResponse struct {
	Revoked bool `json:"revoked"`
	Failure
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Valid   bool   `json:"valid"`
	UserID  string `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
	TokenID string `json:"token_id,omitempty"`
	Failure
}

// GetUserRequest represents a get user request.
type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// GetUserResponse represents a get user response.
type GetUserResponse struct {
	User *domain.User `json:"user,omitempty"`
	Failure
}
