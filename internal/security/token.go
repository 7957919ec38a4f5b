package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// resetClaims binds a user identifier to an absolute expiry instant. The
// claim name matches the "reset_password" payload the recovery flow
// understands.
type resetClaims struct {
	UserID string `json:"reset_password"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and validates stateless password-reset tokens signed
// with a single process-wide secret (HS256). No server-side state is kept:
// a token is valid iff its signature verifies against the current secret
// and its expiry has not passed. Rotating the secret is the only way to
// invalidate outstanding tokens early.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer returns an issuer signing with secret; ttl is the default
// lifetime applied by Issue.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue signs a token for userID that expires after the configured TTL.
func (t *TokenIssuer) Issue(userID string) (string, error) {
	return t.IssueFor(userID, t.ttl)
}

// IssueFor signs a token for userID with an explicit lifetime.
func (t *TokenIssuer) IssueFor(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := resetClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses token and returns the embedded user identifier. It fails
// closed: a bad signature, a malformed token, or an expiry not strictly in
// the future all yield ok == false, and no decoding error ever propagates.
func (t *TokenIssuer) Verify(token string) (userID string, ok bool) {
	parsed, err := jwt.ParseWithClaims(token, &resetClaims{},
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", false
	}
	claims, validClaims := parsed.Claims.(*resetClaims)
	if !validClaims || claims.UserID == "" {
		return "", false
	}
	return claims.UserID, true
}
