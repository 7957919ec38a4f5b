// Package http provides HTTP handlers for account registration, login and
// password management.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mkrylov/identityd/internal/models"
	"github.com/mkrylov/identityd/internal/security"
	"github.com/mkrylov/identityd/internal/service"
)

// UserService defines the interface for account operations required by the
// HTTP handlers.
type UserService interface {
	// Register creates a new account from a username, email and password.
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	// Authenticate verifies a username/password pair.
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	// ChangePassword replaces an authenticated user's password.
	ChangePassword(ctx context.Context, userID, current, next string) error
	// RequestPasswordReset mails a reset token to the given address.
	RequestPasswordReset(ctx context.Context, email string) error
	// ResetPassword verifies a reset token and sets a new password.
	ResetPassword(ctx context.Context, token, next string) error
}

// AuthHandler handles HTTP requests for registration, login and password
// management.
type AuthHandler struct {
	// UserService performs the underlying account operations.
	UserService UserService
}

// RegisterRequest represents the JSON payload for user registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents the JSON payload for a password change.
// The current password re-authenticates the caller.
type ChangePasswordRequest struct {
	Username        string `json:"username"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ResetRequest represents the JSON payload asking for a reset mail.
type ResetRequest struct {
	Email string `json:"email"`
}

// ResetConfirmRequest represents the JSON payload completing a reset.
type ResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// userResponse is the JSON shape returned for an account. The password
// hash never leaves the server.
type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Register handles POST /api/register. It expects a JSON body with
// username, email and password, and returns the created account with 201.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.UserService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(userResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// Login handles POST /api/login. On success it returns the account.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.UserService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(userResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// ChangePassword handles POST /api/password/change. The caller proves
// their identity with the current password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.UserService.Authenticate(r.Context(), req.Username, req.CurrentPassword)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.UserService.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestReset handles POST /api/password/reset. The response is 202
// whether or not the email matches an account, so the endpoint cannot be
// used to probe for registered addresses.
func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.UserService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ConfirmReset handles POST /api/password/reset/confirm.
func (h *AuthHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req ResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.UserService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps service errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var policyErr *security.PolicyError
	switch {
	case errors.Is(err, service.ErrMissingFields), errors.As(err, &policyErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrEmailTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidResetToken):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
