package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/example/barachat/domain/chat"
)

var (
	// ErrInvalidCredentials is returned when login credentials do not match.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidUsername is returned when the username is empty or too long.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrWeakPassword is returned when the password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when the password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// Service handles registration, login and token verification.
type Service struct {
	repo   *UserRepository
	hasher *PasswordHasher
	tokens *TokenManager
}

// NewService creates an auth Service.
func NewService(repo *UserRepository, hasher *PasswordHasher, tokens *TokenManager) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register creates a new user account.
func (s *Service) Register(_ context.Context, username, password, email string) (*chat.User, error) {
	if username == "" || len(username) > chat.MaxUsernameLength || !utf8.ValidString(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}
	if len(password) > 72 {
		return nil, ErrPasswordTooLong
	}

	exists, err := s.repo.UsernameExists(username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &chat.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login authenticates a user and issues a bearer token.
func (s *Service) Login(_ context.Context, username, password string) (string, error) {
	user, err := s.repo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

// Verify validates a bearer token and returns the identity it carries.
func (s *Service) Verify(_ context.Context, token string) (*chat.Claims, error) {
	return s.tokens.Verify(token)
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(_ context.Context, userID string) (*chat.User, error) {
	return s.repo.FindByID(userID)
}
