package api

import (
	"net/http"
	"strings"
	"time"

	"secret.share/config"
	"secret.share/internal/gate"
	"secret.share/internal/logging"
	"secret.share/internal/secrets"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
)

func SetupRouter(svc *secrets.Service, g *gate.Gate, cfg *config.Config, log *logging.Logger) http.Handler {
	h := NewHandler(svc, g, cfg, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	r.Use(CORS(CORSConfig{
		AllowedOrigins: []string{strings.TrimRight(cfg.Server.BaseURL, "/")},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))

	// Health
	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		reveal := func(next http.Handler) http.Handler { return next }
		if cfg.RateLimit.Enabled {
			apiLimiter := NewRateLimiter(cfg.RateLimit.RequestsPerMin, time.Minute)
			revealLimiter := NewRateLimiter(cfg.RateLimit.RevealPerMin, time.Minute)

			r.Use(apiLimiter.Middleware)
			reveal = revealLimiter.Middleware
		}
		r.Use(BodyLimit(cfg.Server.MaxBodyBytes))
		r.Use(JSONOnly)

		r.Get("/stats", h.Stats)
		r.Route("/secrets", func(r chi.Router) {
			r.Post("/", h.CreateSecret)
			r.With(reveal).Post("/{id}/view", h.ViewSecret)
			r.Get("/{id}/status", h.GetStatus)
		})
	})

	return gzhttp.GzipHandler(r)
}
