package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/agency-backoffice/internal/analytics"
	"github.com/wolfman30/agency-backoffice/internal/contact"
	httpmiddleware "github.com/wolfman30/agency-backoffice/internal/http/middleware"
	"github.com/wolfman30/agency-backoffice/internal/leads"
	"github.com/wolfman30/agency-backoffice/internal/notify"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ContactHandler     *contact.Handler
	AnalyticsHandler   *analytics.Handler
	LeadsHandler       *leads.Handler
	NotifyHandler      *notify.Handler
	StreamHandler      http.Handler
	MetricsHandler     http.Handler
	RateLimiter        *httpmiddleware.RateLimiter
	AdminAuthSecret    string
	CORSAllowedOrigins []string
	HealthChecks       map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	// Public endpoints (marketing site, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Group(func(site chi.Router) {
			if cfg.RateLimiter != nil {
				site.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
			}
			site.Use(middleware.Compress(5, "application/json"))
			if cfg.ContactHandler != nil {
				cfg.ContactHandler.Routes(site)
			}
			if cfg.AnalyticsHandler != nil {
				cfg.AnalyticsHandler.PublicRoutes(site)
			}
		})
	})

	// Admin routes (protected by JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.StreamHandler != nil {
				admin.Handle("/notifications/stream", cfg.StreamHandler)
			}
			admin.Group(func(api chi.Router) {
				api.Use(middleware.Compress(5, "application/json", "text/csv"))
				if cfg.LeadsHandler != nil {
					cfg.LeadsHandler.Routes(api)
				}
				if cfg.NotifyHandler != nil {
					cfg.NotifyHandler.Routes(api)
				}
				if cfg.AnalyticsHandler != nil {
					cfg.AnalyticsHandler.Routes(api)
				}
			})
		})
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		response := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				response[name] = err.Error()
				response["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			response[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}
}
