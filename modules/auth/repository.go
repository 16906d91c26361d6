package auth

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/task-api/domain/user"
	"github.com/example/task-api/modules/database"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when another account already uses the email.
	ErrEmailTaken = errors.New("email has already been taken")
	// ErrTokenNotFound is returned when no access token row matches.
	ErrTokenNotFound = errors.New("access token not found")
)

// UserRepository handles user persistence using GORM.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return database.Wrap("create user", result.Error)
	}
	return nil
}

// FindByID finds a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	result := r.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, database.Wrap("find user", result.Error)
	}
	return &user, nil
}

// FindByEmail finds a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	result := r.db.WithContext(ctx).First(&user, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, database.Wrap("find user by email", result.Error)
	}
	return &user, nil
}

// EmailExists checks if a user with the given email exists.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Count(&count)
	if result.Error != nil {
		return false, database.Wrap("count users by email", result.Error)
	}
	return count > 0, nil
}

// TokenRepository persists issued access tokens.
type TokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{
		db: db,
	}
}

// Create stores a freshly issued token.
func (r *TokenRepository) Create(ctx context.Context, token *domain.AccessToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return database.Wrap("create access token", err)
	}
	return nil
}

// FindByID finds a token by its id.
func (r *TokenRepository) FindByID(ctx context.Context, id string) (*domain.AccessToken, error) {
	var token domain.AccessToken
	result := r.db.WithContext(ctx).First(&token, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, database.Wrap("find access token", result.Error)
	}
	return &token, nil
}

// Touch records that the token was just used.
func (r *TokenRepository) Touch(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.AccessToken{}).
		Where("id = ?", id).
		Update("last_used_at", at)
	if result.Error != nil {
		return database.Wrap("touch access token", result.Error)
	}
	return nil
}

// Delete removes a single token. Deleting an unknown token is not an error.
func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&domain.AccessToken{}, "id = ?", id).Error; err != nil {
		return database.Wrap("delete access token", err)
	}
	return nil
}

// Migrate creates or updates the auth tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{}, &domain.AccessToken{})
}
