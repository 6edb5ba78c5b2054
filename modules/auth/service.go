package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/lugezz/git-test/domain/user"
)

var (
	// ErrInvalidCredentials is the single deterministic login failure.
	// Unknown usernames and wrong passwords produce the same error so
	// the login page never leaks which of the two was wrong.
	ErrInvalidCredentials = errors.New("username and password do not match")
	// ErrInvalidUsername is returned when the username is empty or malformed.
	ErrInvalidUsername = errors.New("username must not be empty")
	// ErrInvalidEmail is returned when the email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrWeakPassword is returned when the password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when the password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// Service handles account registration, login, and profile updates.
type Service struct {
	repo     *UserRepository
	hasher   *PasswordHasher
	sessions *SessionManager
}

// NewService creates a new auth Service.
func NewService(repo *UserRepository, hasher *PasswordHasher, sessions *SessionManager) *Service {
	return &Service{
		repo:     repo,
		hasher:   hasher,
		sessions: sessions,
	}
}

// Register creates a new account. The username is lower-cased before
// storage so later logins are case-insensitive.
func (s *Service) Register(ctx context.Context, username, email, password string) (*user.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, ErrInvalidUsername
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, ErrInvalidEmail
		}
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}
	if len(password) > 72 {
		return nil, ErrPasswordTooLong
	}

	taken, err := s.repo.UsernameTaken(ctx, username, "")
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUserExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks the credentials and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueSession creates a session token for the user.
func (s *Service) IssueSession(u *user.User) (string, error) {
	return s.sessions.Issue(u.ID, u.Username)
}

// ResolveSession validates a session token and loads its user.
func (s *Service) ResolveSession(ctx context.Context, token string) (*user.User, error) {
	claims, err := s.sessions.Validate(token)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, claims.UserID)
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateUser validates and saves the user's editable profile fields.
// Validation is enforced before saving; nothing is written when any
// field is invalid.
func (s *Service) UpdateUser(ctx context.Context, id, username, email, name, bio string) (*user.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, ErrInvalidUsername
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, ErrInvalidEmail
		}
	}

	taken, err := s.repo.UsernameTaken(ctx, username, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUserExists
	}

	u.Username = username
	u.Email = email
	u.Name = name
	u.Bio = bio
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SessionMaxAge returns the session lifetime for cookie expiry.
func (s *Service) SessionMaxAge() int {
	return int(s.sessions.Duration().Seconds())
}
