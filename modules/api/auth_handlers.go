package api

import (
	"errors"

	"github.com/example/task-api/modules/auth"
	"github.com/gofiber/fiber/v2"
)

const (
	msgRegistered         = "User registered successfully"
	msgRegistrationFailed = "Registration failed"
	msgRegistrationError  = "An error occurred during registration"
	msgLoggedIn           = "Login successful"
	msgLoginFailed        = "Login failed"
	msgBadCredentials     = "The provided credentials are incorrect"
	msgLoginError         = "An error occurred during login"
	msgLoggedOut          = "Logged out successfully"
	msgLogoutError        = "An error occurred during logout"
	msgMe                 = "User details retrieved successfully"
	msgMeError            = "An error occurred while retrieving user details"
	msgEmailTaken         = "The email has already been taken."
)

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var in registerInput
	_, fields, err := decodeBody(c, &in)
	if err != nil {
		return err
	}
	in.normalize()
	fields.Merge(h.validator.Struct(in))
	if in.Password != "" {
		if violations := h.policy.Violations(in.Password); len(violations) > 0 {
			fields.Add("password", violations...)
		}
	}
	if len(fields) > 0 {
		return validationFailed(msgRegistrationFailed, fields)
	}

	session, err := h.auth.Register(c.UserContext(), auth.RegisterRequest{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return validationFailed(msgRegistrationFailed, FieldErrors{"email": {msgEmailTaken}})
		}
		return serverError(msgRegistrationError, err)
	}

	return created(c, msgRegistered, newSessionData(session))
}

// Login handles user login. Unknown emails and wrong passwords get the
// same response.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var in loginInput
	_, fields, err := decodeBody(c, &in)
	if err != nil {
		return err
	}
	in.normalize()
	fields.Merge(h.validator.Struct(in))
	if len(fields) > 0 {
		return validationFailed(msgLoginFailed, fields)
	}

	session, err := h.auth.Login(c.UserContext(), auth.LoginRequest{
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return unauthorized(msgBadCredentials)
		}
		return serverError(msgLoginError, err)
	}

	return success(c, msgLoggedIn, newSessionData(session))
}

// Logout revokes the token the request was authenticated with. Other
// sessions of the same user stay valid.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.auth.Logout(c.UserContext(), principal.TokenID); err != nil {
		return serverError(msgLogoutError, err)
	}
	return success(c, msgLoggedOut, nil)
}

// Me returns the authenticated user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.auth.GetUser(c.UserContext(), principal.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return unauthenticated()
		}
		return serverError(msgMeError, err)
	}
	return success(c, msgMe, MeData{User: user})
}
