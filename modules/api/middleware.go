package api

import (
	"errors"
	"strings"

	userdomain "github.com/example/task-api/domain/user"
	"github.com/example/task-api/modules/auth"
	"github.com/example/task-api/modules/ratelimit"
	"github.com/gofiber/fiber/v2"
)

const (
	// UserContextKey is the key used to store user claims in the Fiber context.
	UserContextKey = "user"
)

// AuthMiddleware resolves the bearer token into the request's principal.
// Requests without a valid token stop here with a 401; failures reaching
// the auth service are passed on as server errors.
func AuthMiddleware(authPort auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return unauthenticated()
		}

		claims, err := authPort.ValidateToken(c.UserContext(), token)
		if err != nil {
			if isTokenRejection(err) {
				return unauthenticated()
			}
			return serverError(msgServer, err)
		}

		// Store claims in context for use in handlers
		c.Locals(UserContextKey, claims)
		c.Locals(ratelimit.UserIDKey, claims.UserID)

		return c.Next()
	}
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func isTokenRejection(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrExpiredToken) ||
		errors.Is(err, auth.ErrTokenRevoked) ||
		errors.Is(err, auth.ErrUserNotFound)
}

// currentPrincipal returns the claims stored by AuthMiddleware.
func currentPrincipal(c *fiber.Ctx) (*userdomain.Claims, error) {
	claims, ok := c.Locals(UserContextKey).(*userdomain.Claims)
	if !ok || claims == nil {
		return nil, unauthenticated()
	}
	return claims, nil
}
