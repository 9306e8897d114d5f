package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-school-portal/internal/config"
	"go-school-portal/internal/handler"
	"go-school-portal/internal/metrics"
	"go-school-portal/internal/middleware"
	"go-school-portal/internal/model"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	Audit  *handler.AuditHandler
	Health *handler.HealthHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, handlers Handlers, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM, cfg.TrustedProxies)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	if m != nil {
		r.Use(middleware.Metrics(m))
	}
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", handlers.Health.Health)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/{entity}", func(entity chi.Router) {
			entity.Post("/register", handlers.Auth.Register)
			entity.Post("/login", handlers.Auth.Login)

			entity.Group(func(protected chi.Router) {
				protected.Use(authMiddleware.RequireAuth, authMiddleware.RequireEntity)

				protected.Get("/me", handlers.Auth.Me)
				protected.Put("/me/password", handlers.Auth.ChangePassword)

				protected.Group(func(admin chi.Router) {
					admin.Use(authMiddleware.RequireRoles(model.RoleAdmin))

					admin.Get("/", handlers.Auth.List)
					admin.Get("/audit", handlers.Audit.List)
				})
			})
		})
	})

	return r
}
