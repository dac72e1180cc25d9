// Package httpapi exposes the authentication flows over a thin JSON API.
// Handlers translate between HTTP and the auth service; all business rules
// live behind it.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"authd/internal/logging"
	"authd/internal/server/config"
	"authd/internal/server/services"
	"authd/internal/server/session"
)

// Server hosts the JSON API.
type Server struct {
	address  string
	domain   string
	logger   logging.Logger
	auth     *services.AuthService
	sessions *session.Manager
	validate *validator.Validate
}

// NewServer constructs a Server around the auth service and session manager.
func NewServer(cfg *config.Config, l logging.Logger, auth *services.AuthService, sessions *session.Manager) *Server {
	return &Server{
		address:  cfg.EndpointAddr,
		domain:   cfg.AppDomain,
		logger:   l.With("module", "http_server"),
		auth:     auth,
		sessions: sessions,
		validate: validator.New(),
	}
}

// routes assembles the chi router.
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Post("/reset-password/request", s.handleResetPasswordRequest)
		r.Post("/reset-password", s.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(s.sessionAuth)
			r.Post("/verify-email", s.handleVerifyEmail)
			r.Get("/me", s.handleMe)
		})
	})

	return r
}

// Run starts the HTTP server and shuts it down gracefully when ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
