package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/plotsearch/internal/api"
	"github.com/cloo-solutions/plotsearch/internal/api/handlers"
	"github.com/cloo-solutions/plotsearch/internal/api/middleware"
	"github.com/cloo-solutions/plotsearch/internal/metrics"
)

const (
	maxBodyBytes  int64 = 1 << 20
	healthTimeout       = 2 * time.Second
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// TokenValidator may be nil, in which case authenticated routes answer
	// 503.
	TokenValidator middleware.TokenValidator
	Database       Pinger

	SearchHandler      *handlers.SearchHandler
	GeoHandler         *handlers.GeoHandler
	SavedSearchHandler *handlers.SavedSearchHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Sentry)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Database != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := cfg.Database.Ping(ctx); err != nil {
				api.Error(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Get("/properties/search", cfg.SearchHandler.Search)

	r.Route("/geo", func(r chi.Router) {
		r.Get("/radius", cfg.GeoHandler.Radius)
		r.Get("/bbox", cfg.GeoHandler.BoundingBox)
		r.Get("/clusters", cfg.GeoHandler.Clusters)
		r.Get("/distance", cfg.GeoHandler.Distance)
		r.Post("/route", cfg.GeoHandler.Route)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.UserAuth(cfg.TokenValidator))

		r.Get("/me/properties", cfg.SearchHandler.MyProperties)

		r.Route("/saved-searches", func(r chi.Router) {
			r.Post("/", cfg.SavedSearchHandler.Create)
			r.Get("/", cfg.SavedSearchHandler.List)
			r.Get("/{id}", cfg.SavedSearchHandler.Get)
			r.Patch("/{id}", cfg.SavedSearchHandler.Update)
			r.Delete("/{id}", cfg.SavedSearchHandler.Delete)
			r.Get("/{id}/results", cfg.SavedSearchHandler.Results)
			r.Get("/{id}/count", cfg.SavedSearchHandler.Count)
			r.Post("/{id}/toggle-notification", cfg.SavedSearchHandler.ToggleNotification)
		})
	})

	return r
}
