package user

import (
	"time"
)

// User represents a registered account. Every task belongs to exactly one User.
type User struct {
	ID           string    `gorm:"primaryKey;type:text" json:"id"`
	Name         string    `gorm:"not null;type:varchar(255)" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null;type:varchar(255)" json:"email"`
	PasswordHash string    `gorm:"not null;type:text" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// AccessToken is a persisted session. The bearer token handed to a client
// is only accepted while its row exists.
type AccessToken struct {
	ID         string `gorm:"primaryKey;type:varchar(32)"`
	UserID     string `gorm:"index;not null;type:text"`
	Name       string `gorm:"not null;type:varchar(255)"`
	LastUsedAt *time.Time
	ExpiresAt  *time.Time
	CreatedAt  time.Time
}

// TableName returns the table name for the AccessToken entity.
func (AccessToken) TableName() string {
	return "personal_access_tokens"
}

// Expired reports whether the token carries an expiry that has passed.
func (t *AccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// Session is the result of a successful register or login.
type Session struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// Claims identifies the authenticated principal of a request.
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	TokenID string `json:"token_id"`
}
