package auth

import (
	"fmt"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost is the default cost for bcrypt hashing.
	// A cost of 12 provides good security while keeping hashing time reasonable.
	DefaultBcryptCost = 12

	// maxBcryptBytes is the longest input bcrypt accepts.
	maxBcryptBytes = 72

	dummyPassword = "task-api:no-such-account"
)

// PasswordHasher provides password hashing and verification functionality.
type PasswordHasher struct {
	cost    int
	compare func(hash, password []byte) error

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordHasher creates a new PasswordHasher. A cost outside bcrypt's
// accepted range falls back to DefaultBcryptCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{
		cost:    cost,
		compare: bcrypt.CompareHashAndPassword,
	}
}

// Hash generates a bcrypt hash of the given password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify checks if the provided password matches the hash.
func (h *PasswordHasher) Verify(password, hash string) bool {
	err := h.compare([]byte(hash), []byte(password))
	return err == nil
}

// VerifyMissing does the work of Verify against a fixed hash of the
// configured cost and always reports false. Logins for unknown accounts call
// it so they take as long as logins with a wrong password.
func (h *PasswordHasher) VerifyMissing(password string) bool {
	h.dummyOnce.Do(func() {
		h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(dummyPassword), h.cost)
	})
	_ = h.compare(h.dummyHash, []byte(password))
	return false
}

// PasswordPolicy describes the strength rules a new password must satisfy.
type PasswordPolicy struct {
	MinLength        int
	RequireMixedCase bool
	RequireNumbers   bool
	RequireSymbols   bool
}

// DefaultPasswordPolicy requires eight characters and nothing else.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength: 8,
	}
}

// Violations returns one message per rule the password breaks, or nil.
func (p PasswordPolicy) Violations(password string) []string {
	var out []string

	if p.MinLength > 0 && utf8.RuneCountInString(password) < p.MinLength {
		out = append(out, fmt.Sprintf("The password field must be at least %d characters.", p.MinLength))
	}
	if len(password) > maxBcryptBytes {
		out = append(out, fmt.Sprintf("The password field must not be greater than %d characters.", maxBcryptBytes))
	}

	var upper, lower, number, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsNumber(r):
			number = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	if p.RequireMixedCase && !(upper && lower) {
		out = append(out, "The password field must contain at least one uppercase and one lowercase letter.")
	}
	if p.RequireNumbers && !number {
		out = append(out, "The password field must contain at least one number.")
	}
	if p.RequireSymbols && !symbol {
		out = append(out, "The password field must contain at least one symbol.")
	}

	return out
}
