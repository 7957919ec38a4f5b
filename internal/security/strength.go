package security

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	recommendedMinLength = 12
	maxSaneMinLength     = 128
)

// StrengthPolicy holds the complexity rules a submitted password must meet.
// Built once from configuration; Validate is called per submission.
type StrengthPolicy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// NewStrengthPolicy validates p and returns it unchanged. A minimum length
// below 1 is a construction error; unusual-but-legal lengths are flagged
// through log.
func NewStrengthPolicy(p StrengthPolicy, log *zap.Logger) (StrengthPolicy, error) {
	if p.MinLength < 1 {
		return StrengthPolicy{}, policyErrorf("password min length must be at least 1")
	}
	if p.MinLength > maxSaneMinLength {
		log.Warn("password min length is unusually high",
			zap.Int("min_length", p.MinLength),
			zap.Int("ceiling", maxSaneMinLength))
	}
	if p.MinLength < recommendedMinLength {
		log.Warn("password min length is below the recommended minimum",
			zap.Int("min_length", p.MinLength),
			zap.Int("recommended", recommendedMinLength))
	}
	return p, nil
}

// Validate rejects password with a *PolicyError naming the first unmet
// rule. Rules are checked in a fixed order (length, then uppercase,
// lowercase, digit, special) so rejection messages are deterministic.
func (p StrengthPolicy) Validate(password string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return policyErrorf("password must be at least %d characters long", p.MinLength)
	}
	if p.RequireUpper && !strings.ContainsFunc(password, unicode.IsUpper) {
		return policyErrorf("password must contain at least one uppercase letter")
	}
	if p.RequireLower && !strings.ContainsFunc(password, unicode.IsLower) {
		return policyErrorf("password must contain at least one lowercase letter")
	}
	if p.RequireDigit && !strings.ContainsFunc(password, unicode.IsDigit) {
		return policyErrorf("password must contain at least one digit")
	}
	if p.RequireSpecial && !strings.ContainsFunc(password, isSpecial) {
		return policyErrorf("password must contain at least one special character")
	}
	return nil
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
