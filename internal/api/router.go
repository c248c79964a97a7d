package api

import (
	"net/http"
	"time"

	"tenderscan/internal/auth"
	"tenderscan/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Minute))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.tokens.Authenticator)

			r.With(auth.RequireRole(domain.RoleAdmin, domain.RoleOwner)).Post("/parse", s.handleParse)
			r.With(auth.RequireRole(domain.RoleAdmin, domain.RoleOwner)).Post("/analyze", s.handleAnalyze)
			r.With(auth.RequireRole(domain.RoleAdmin, domain.RoleOwner)).Post("/sessions/assign", s.handleAssignSession)
			r.Get("/sessions/last", s.handleLastSession)

			r.Post("/admin-requests", s.handleCreateAdminRequest)
			r.With(auth.RequireRole(domain.RoleOwner)).Get("/admin-requests", s.handleListAdminRequests)
			r.With(auth.RequireRole(domain.RoleOwner)).Post("/admin-requests/{id}/resolve", s.handleResolveAdminRequest)
		})
	})

	return r
}
