package auth

import (
	"errors"
	"testing"

	"github.com/example/task-api/modules/database"
)

func TestFailure_RoundTrip(t *testing.T) {
	for _, fc := range failureCodes {
		t.Run(fc.code, func(t *testing.T) {
			failure, err := toFailure(fc.err)
			if err != nil {
				t.Fatalf("toFailure() error = %v", err)
			}
			if failure.Code != fc.code {
				t.Errorf("Code = %v, want %v", failure.Code, fc.code)
			}
			if got := failure.Err(); !errors.Is(got, fc.err) {
				t.Errorf("Err() = %v, want %v", got, fc.err)
			}
		})
	}
}

func TestFailure_Persistence(t *testing.T) {
	failure, err := toFailure(database.Wrap("find user", errors.New("database is locked")))
	if err != nil {
		t.Fatalf("toFailure() error = %v", err)
	}
	if !errors.Is(failure.Err(), database.ErrPersistence) {
		t.Errorf("Err() = %v, want ErrPersistence", failure.Err())
	}
}

func TestFailure_UnknownErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	failure, err := toFailure(boom)
	if err != boom {
		t.Errorf("toFailure() error = %v, want %v", err, boom)
	}
	if failure.Err() != nil {
		t.Errorf("Err() = %v, want nil", failure.Err())
	}
}
