package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"chartly/internal/domain"
	"chartly/internal/middleware"
)

// RouterConfig carries the transport-level settings the router needs.
type RouterConfig struct {
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter assembles the HTTP surface: request plumbing, auth, rate limiting,
// and the query execution routes.
func NewRouter(h *Handler, users domain.UserRepository, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))
	r.Use(middleware.Auth(cfg.JWTSecret, users, logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/query/{queryID}", h.RunQuery)
		r.Post("/query/{queryID}", h.RunQuery)
		r.Post("/query_interactive", h.RunInteractive)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
