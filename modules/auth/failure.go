package auth

import (
	"errors"
	"fmt"

	"github.com/example/task-api/modules/database"
)

const codePersistence = "persistence"

var failureCodes = []struct {
	code string
	err  error
}{
	{"email_taken", ErrEmailTaken},
	{"invalid_credentials", ErrInvalidCredentials},
	{"invalid_token", ErrInvalidToken},
	{"expired_token", ErrExpiredToken},
	{"token_revoked", ErrTokenRevoked},
	{"user_not_found", ErrUserNotFound},
}

// toFailure converts an expected error into a reply payload. Errors it does not
// know about are returned unchanged so the caller can fail the request.
func toFailure(err error) (Failure, error) {
	for _, fc := range failureCodes {
		if errors.Is(err, fc.err) {
			return Failure{Code: fc.code}, nil
		}
	}
	if errors.Is(err, database.ErrPersistence) {
		return Failure{Code: codePersistence, Detail: err.Error()}, nil
	}
	return Failure{}, err
}

// Err rebuilds the error a reply carries, or nil.
func (f Failure) Err() error {
	if f.Code == "" {
		return nil
	}
	if f.Code == codePersistence {
		return fmt.Errorf("%w: %s", database.ErrPersistence, f.Detail)
	}
	for _, fc := range failureCodes {
		if fc.code == f.Code {
			return fc.err
		}
	}
	return fmt.Errorf("auth: unknown failure %q", f.Code)
}
