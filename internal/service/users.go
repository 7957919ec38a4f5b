// Package service provides the account business logic, delegating
// persistence to a UserRepository and credential work to the security
// package.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mkrylov/identityd/internal/mailer"
	"github.com/mkrylov/identityd/internal/models"
	"github.com/mkrylov/identityd/internal/repository"
	"github.com/mkrylov/identityd/internal/security"
)

var (
	// ErrUsernameTaken is returned when the requested username collides
	// with an existing account, whether caught by the pre-check or by the
	// storage constraint.
	ErrUsernameTaken = errors.New("service: username already taken")
	// ErrEmailTaken is the email counterpart of ErrUsernameTaken.
	ErrEmailTaken = errors.New("service: email already registered")
	// ErrInvalidCredentials is returned on any login failure. It does not
	// distinguish an unknown username from a wrong password.
	ErrInvalidCredentials = errors.New("service: invalid username or password")
	// ErrInvalidResetToken is returned when a reset token fails
	// verification for any reason.
	ErrInvalidResetToken = errors.New("service: invalid or expired reset token")
	// ErrMissingFields is returned when a required input is blank.
	ErrMissingFields = errors.New("service: missing required fields")
)

// UserRepository defines the persistence operations required by the user
// service.
type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindByUsername(ctx context.Context, canonical string) (*models.User, error)
	FindByEmail(ctx context.Context, canonical string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateProfile(ctx context.Context, u *models.User) error
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
	CanonicalUsernames(ctx context.Context) ([]string, error)
	CanonicalEmails(ctx context.Context) ([]string, error)
}

// PasswordHasher is the hash/verify contract the service depends on.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}

// ResetTokens issues and verifies password reset tokens.
type ResetTokens interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, bool)
}

// UserService implements account operations.
type UserService struct {
	repo     UserRepository
	hasher   PasswordHasher
	strength security.StrengthPolicy
	tokens   ResetTokens
	mail     mailer.Mailer
	log      *zap.Logger
}

// NewUserService constructs a UserService from its collaborators.
func NewUserService(
	repo UserRepository,
	hasher PasswordHasher,
	strength security.StrengthPolicy,
	tokens ResetTokens,
	mail mailer.Mailer,
	log *zap.Logger,
) *UserService {
	return &UserService{
		repo:     repo,
		hasher:   hasher,
		strength: strength,
		tokens:   tokens,
		mail:     mail,
		log:      log,
	}
}

// IsUsernameUnique reports whether candidate is free among all existing
// usernames, exempting the caller's own original value during edits.
func (s *UserService) IsUsernameUnique(ctx context.Context, candidate, original string) (bool, error) {
	existing, err := s.repo.CanonicalUsernames(ctx)
	if err != nil {
		return false, err
	}
	return security.IsUnique(candidate, existing, original), nil
}

// IsEmailUnique is the email counterpart of IsUsernameUnique.
func (s *UserService) IsEmailUnique(ctx context.Context, candidate, original string) (bool, error) {
	existing, err := s.repo.CanonicalEmails(ctx)
	if err != nil {
		return false, err
	}
	return security.IsUnique(candidate, existing, original), nil
}

// Register creates a new account. The uniqueness pre-check narrows the
// race window; the storage constraint is authoritative, and its duplicate
// errors map to the same taken outcomes.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	if err := s.strength.Validate(password); err != nil {
		return nil, err
	}

	if free, err := s.IsUsernameUnique(ctx, username, ""); err != nil {
		return nil, err
	} else if !free {
		return nil, ErrUsernameTaken
	}
	if free, err := s.IsEmailUnique(ctx, email, ""); err != nil {
		return nil, err
	} else if !free {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.NewUser(username, email)
	user.PasswordHash = hash
	user.LastSeen = time.Now().UTC()

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, mapDuplicateErr(err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Authenticate verifies a username/password pair and returns the account.
// All failure modes collapse into ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.FindByUsername(ctx, security.Canonical(username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.TouchLastSeen(ctx, user.ID, time.Now().UTC()); err != nil {
		s.log.Warn("failed to record last seen", zap.Error(err))
	}
	return user, nil
}

// ChangePassword replaces the password of an authenticated user after
// re-verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(user.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if err := s.strength.Validate(next); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePasswordHash(ctx, userID, hash)
}

// UpdateProfile edits the identity and profile fields of an account.
// Fields left unchanged from their original value are exempt from the
// uniqueness check.
func (s *UserService) UpdateProfile(ctx context.Context, userID, username, email, about string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, ErrMissingFields
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if free, err := s.IsUsernameUnique(ctx, username, user.UsernameCanonical); err != nil {
		return nil, err
	} else if !free {
		return nil, ErrUsernameTaken
	}
	if free, err := s.IsEmailUnique(ctx, email, user.EmailCanonical); err != nil {
		return nil, err
	} else if !free {
		return nil, ErrEmailTaken
	}

	user.Username = username
	user.UsernameCanonical = security.Canonical(username)
	user.Email = email
	user.EmailCanonical = security.Canonical(email)
	user.About = about

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, mapDuplicateErr(err)
	}
	return user, nil
}

// RequestPasswordReset issues a reset token and mails it to the account's
// address. An unknown email is not an error: the response is identical
// either way so the endpoint cannot be used to probe for accounts.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, security.Canonical(email))
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	body := fmt.Sprintf("Use this token to reset your password: %s", token)
	if err := s.mail.Send(ctx, user.Email, "Password reset", body); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// ResetPassword verifies a reset token and sets a new password for the
// user it binds.
func (s *UserService) ResetPassword(ctx context.Context, token, next string) error {
	userID, ok := s.tokens.Verify(token)
	if !ok {
		return ErrInvalidResetToken
	}
	if err := s.strength.Validate(next); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	s.log.Info("password reset completed", zap.String("user_id", userID))
	return nil
}

// mapDuplicateErr translates repository duplicate errors into the
// user-facing taken outcomes, matching what the pre-check would have
// reported.
func mapDuplicateErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateUsername):
		return ErrUsernameTaken
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrEmailTaken
	default:
		return err
	}
}
