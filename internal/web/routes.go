package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facegate/internal/password"
	"github.com/kozaktomas/facegate/internal/web/handlers"
	"github.com/kozaktomas/facegate/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.deps.Store)
	configHandler := handlers.NewConfigHandler(s.config)
	passwordHandler := handlers.NewPasswordHandler(password.RulesFromConfig(s.config.Password))
	authHandler := handlers.NewAuthHandler(s.sessionManager, s.deps.Signer)
	facesHandler := handlers.NewFacesHandler(
		s.config, s.sessionManager, s.deps.Store, s.deps.Backend, s.deps.Signer, s.deps.SyncSource)
	usersHandler := handlers.NewUsersHandler(s.deps.Backend, s.deps.Store)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)
		r.Get("/config", configHandler.Get)
		r.Post("/password/strength", passwordHandler.Strength)
		r.Post("/register", facesHandler.Register)

		// Face matching, failed attempts lock the client out for a while
		r.Group(func(r chi.Router) {
			r.Use(middleware.LimitAttempts(s.limiter))

			r.Post("/faces/identify", facesHandler.Identify)
			r.Post("/attendance/check-in", facesHandler.CheckIn)
			r.Post("/attendance/check-out", facesHandler.CheckOut)
		})

		// Auth
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// Everything else requires a face session
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager))

			r.Get("/users", usersHandler.List)
			r.Get("/faces", facesHandler.List)
			r.Put("/me/face", facesHandler.Enroll)
			r.Delete("/me/face", facesHandler.Unenroll)
			r.Post("/faces/sync", facesHandler.Sync)
		})
	})
}
