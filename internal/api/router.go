// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"userstore/internal/api/handler"
)

// NewRouter sets up and returns a new HTTP router. Handlers running longer than
// requestTimeout get a 504; a non-positive value means handler.DefaultTimeout.
func NewRouter(userHandler *handler.UserHandler, logger *slog.Logger, requestTimeout time.Duration) http.Handler {
	if requestTimeout <= 0 {
		requestTimeout = handler.DefaultTimeout
	}
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer) // Recover from panics and return 500
	r.Use(middleware.Timeout(requestTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// User API routes
	r.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.CreateUser)
		r.Get("/", userHandler.ListUsers)
		r.Get("/count", userHandler.CountUsers)
		r.Get("/by-username/{username}", userHandler.GetUserByUsername)
		r.Get("/by-email/{email}", userHandler.GetUserByEmail)
		r.Get("/{userID}", userHandler.GetUser)
		r.Put("/{userID}", userHandler.UpdateUser)
		r.Delete("/{userID}", userHandler.DeleteUser)
	})

	logger.Debug("Routes registered", "prefix", "/users", "request_timeout", requestTimeout)
	return r
}
