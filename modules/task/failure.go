package task

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/task-api/modules/database"
)

const codePersistence = "persistence"

var failureCodes = []struct {
	code string
	err  error
}{
	{"not_found", ErrNotFound},
	{"invalid_task", ErrInvalidTask},
}

// toFailure converts an expected error into a reply payload. Errors it does not
// know about are returned unchanged so the caller can fail the request.
func toFailure(err error) (Failure, error) {
	for _, fc := range failureCodes {
		if errors.Is(err, fc.err) {
			return Failure{Code: fc.code, Detail: err.Error()}, nil
		}
	}
	if errors.Is(err, database.ErrPersistence) {
		return Failure{Code: codePersistence, Detail: err.Error()}, nil
	}
	return Failure{}, err
}

// Err rebuilds the error a reply carries, or nil.
func (f Failure) Err() error {
	switch f.Code {
	case "":
		return nil
	case codePersistence:
		return fmt.Errorf("%w: %s", database.ErrPersistence, f.Detail)
	}
	for _, fc := range failureCodes {
		if fc.code == f.Code {
			detail := strings.TrimPrefix(f.Detail, fc.err.Error()+": ")
			if detail == "" || detail == fc.err.Error() {
				return fc.err
			}
			return fmt.Errorf("%w: %s", fc.err, detail)
		}
	}
	return fmt.Errorf("task: unknown failure %q", f.Code)
}
