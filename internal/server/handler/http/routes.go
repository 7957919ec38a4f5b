// Package http provides HTTP routing and middleware configuration
// for the identity service.
package http

import (
	"net/http"

	"github.com/mkrylov/identityd/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// identity API. It applies JSON content-type enforcement and request
// logging, and mounts the account endpoints under /api.
//
// Routes:
//
//	POST /api/register               → authHandler.Register
//	POST /api/login                  → authHandler.Login
//	POST /api/password/change        → authHandler.ChangePassword
//	POST /api/password/reset         → authHandler.RequestReset
//	POST /api/password/reset/confirm → authHandler.ConfirmReset
func NewRouter(authHandler *AuthHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	// Mount API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Route("/password", func(r chi.Router) {
			r.Post("/change", authHandler.ChangePassword)
			r.Post("/reset", authHandler.RequestReset)
			r.Post("/reset/confirm", authHandler.ConfirmReset)
		})
	})

	return r
}
