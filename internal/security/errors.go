// Package security implements the credential-integrity core of the identity
// backend: validated cost and strength policies, the hashing algorithm
// registry, the hasher facade, canonical uniqueness checks, and stateless
// password-reset tokens.
package security

import (
	"errors"
	"fmt"
)

// PolicyError reports a hard policy violation: a configuration value below
// an algorithm floor, or a submitted password that breaks a strength rule.
// Soft-threshold violations never produce a PolicyError; they are reported
// through the warning logger instead.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return "security: " + e.Reason
}

func policyErrorf(format string, args ...any) *PolicyError {
	return &PolicyError{Reason: fmt.Sprintf(format, args...)}
}

var (
	// ErrUnsupportedAlgorithm is returned when a hashing algorithm name does
	// not match any registered implementation.
	ErrUnsupportedAlgorithm = errors.New("security: unsupported algorithm")

	// ErrEmptyPassword is returned when a hash is requested for an empty
	// password.
	ErrEmptyPassword = errors.New("security: password cannot be empty")
)
