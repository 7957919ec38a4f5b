// Package models defines the core data structures for user accounts.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkrylov/identityd/internal/security"
)

// User represents an application user with credentials. The canonical
// username and email are lowercase folds used only for uniqueness and
// lookup; the display forms preserve the casing the user typed and never
// participate in comparisons.
type User struct {
	// ID is the unique identifier for the user.
	ID string
	// Username is the login name as the user typed it.
	Username string
	// UsernameCanonical is the lowercase fold of Username.
	UsernameCanonical string
	// Email is the contact address as the user typed it.
	Email string
	// EmailCanonical is the lowercase fold of Email.
	EmailCanonical string
	// PasswordHash is the encoded hash of the user's password.
	PasswordHash string
	// About holds the user's profile text.
	About string
	// LastSeen is the time of the user's last authenticated request.
	LastSeen time.Time
}

// NewUser builds a user with a fresh ID and canonical forms derived from
// the display forms. The password hash is set separately.
func NewUser(username, email string) *User {
	return &User{
		ID:                uuid.NewString(),
		Username:          username,
		UsernameCanonical: security.Canonical(username),
		Email:             email,
		EmailCanonical:    security.Canonical(email),
	}
}
