package app

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/technopolis/careers-portal/internal/applications"
	"github.com/technopolis/careers-portal/internal/auth"
	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/listings"
	"github.com/technopolis/careers-portal/internal/moderation"
	"github.com/technopolis/careers-portal/internal/observability"
	"github.com/technopolis/careers-portal/internal/platform/httpx"
	"github.com/technopolis/careers-portal/internal/profile"
	"github.com/technopolis/careers-portal/internal/shared"
	"github.com/technopolis/careers-portal/web"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Hub            *authstore.Hub
	Metrics        *observability.Metrics
	Health         HealthCheck

	AuthHandler         *auth.Handler
	ListingsHandler     *listings.Handler
	ApplicationsHandler *applications.Handler
	ProfileHandler      *profile.Handler
	ModerationHandler   *moderation.Handler
	LiveFeed            http.Handler
}

// NewRouter constructs the chi.Router with the portal defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mwCfg := MiddlewareConfig{
		Logger:         logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Hub:            params.Hub,
		Metrics:        params.Metrics,
	}

	r := chi.NewRouter()
	r.Use(BaseStack()...)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Health != nil {
			if err := params.Health(r.Context()); err != nil {
				logger.Warn("health check failed", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		r.Use(SessionStack(mwCfg)...)
		if params.LiveFeed != nil {
			r.Method(http.MethodGet, "/ws/session", params.LiveFeed)
		}

		r.Group(func(r chi.Router) {
			r.Use(RequestLogger(logger))
			r.Use(PageStack(mwCfg)...)

			mount := []interface{ MountRoutes(chi.Router) }{}
			if params.AuthHandler != nil {
				mount = append(mount, params.AuthHandler)
			}
			if params.ListingsHandler != nil {
				mount = append(mount, params.ListingsHandler)
			}
			if params.ApplicationsHandler != nil {
				mount = append(mount, params.ApplicationsHandler)
			}
			if params.ProfileHandler != nil {
				mount = append(mount, params.ProfileHandler)
			}
			if params.ModerationHandler != nil {
				mount = append(mount, params.ModerationHandler)
			}
			for _, h := range mount {
				h.MountRoutes(r)
			}
		})
	})

	return r
}

// staticCacheHandler caches embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
