package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	domain "github.com/example/task-api/domain/user"
	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	// Unknown emails and wrong passwords both produce it.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrTokenRevoked is returned for a well-formed token whose session was logged out.
	ErrTokenRevoked = errors.New("token has been revoked")
)

const (
	tokenIDLength = 21
	tokenName     = "auth_token"
)

// Config holds auth module settings.
type Config struct {
	JWT        JWTConfig
	BcryptCost int
}

// DefaultConfig returns the default auth configuration.
func DefaultConfig() Config {
	return Config{
		JWT:        DefaultJWTConfig(),
		BcryptCost: DefaultBcryptCost,
	}
}

// AuthService handles authentication business logic.
type AuthService struct {
	users      *UserRepository
	tokens     *TokenRepository
	hasher     *PasswordHasher
	jwt        *JWTManager
	newTokenID func() string
	now        func() time.Time
}

// Compile-time check that the service can be used directly as a port.
var _ AuthPort = (*AuthService)(nil)

// NewAuthService creates a new AuthService.
func NewAuthService(users *UserRepository, tokens *TokenRepository, hasher *PasswordHasher, jwt *JWTManager) *AuthService {
	gen, err := nanoid.Standard(tokenIDLength)
	if err != nil {
		panic(fmt.Sprintf("auth: token id generator: %v", err))
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		hasher:     hasher,
		jwt:        jwt,
		newTokenID: gen,
		now:        time.Now,
	}
}

// NewAuthServiceFromDB migrates the auth tables on db and wires a service over them.
func NewAuthServiceFromDB(db *gorm.DB, config Config) (*AuthService, error) {
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate auth tables: %w", err)
	}
	return NewAuthService(
		NewUserRepository(db),
		NewTokenRepository(db),
		NewPasswordHasher(config.BcryptCost),
		NewJWTManager(config.JWT),
	), nil
}

// Register creates a new user account and signs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.Session, error) {
	exists, err := s.users.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// A concurrent registration can still win the race; the unique index reports it.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issue(ctx, user)
}

// Login authenticates a user and issues an additional token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*domain.Session, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.hasher.VerifyMissing(req.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

// Logout revokes the token identified by tokenID. Other tokens of the same user stay valid.
func (s *AuthService) Logout(ctx context.Context, tokenID string) error {
	if err := s.tokens.Delete(ctx, tokenID); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// ValidateToken resolves a bearer token to the principal it was issued for.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	stored, err := s.tokens.FindByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	if stored.UserID != claims.UserID {
		return nil, ErrInvalidToken
	}

	now := s.now()
	if stored.Expired(now) {
		return nil, ErrExpiredToken
	}

	if err := s.tokens.Touch(ctx, stored.ID, now); err != nil {
		log.Printf("[auth] Warning: failed to record token use: %v", err)
	}

	return &domain.Claims{
		UserID:  claims.UserID,
		Email:   claims.Email,
		TokenID: stored.ID,
	}, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

// issue persists a new access token for user and signs the bearer string for it.
func (s *AuthService) issue(ctx context.Context, user *domain.User) (*domain.Session, error) {
	now := s.now()
	record := &domain.AccessToken{
		ID:        s.newTokenID(),
		UserID:    user.ID,
		Name:      tokenName,
		ExpiresAt: s.jwt.ExpiresAt(now),
		CreatedAt: now,
	}

	signed, err := s.jwt.GenerateToken(user.ID, user.Email, record.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	return &domain.Session{
		User:  user,
		Token: signed,
	}, nil
}
