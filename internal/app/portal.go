package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/technopolis/careers-portal/internal/applications"
	"github.com/technopolis/careers-portal/internal/auth"
	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/listings"
	"github.com/technopolis/careers-portal/internal/moderation"
	"github.com/technopolis/careers-portal/internal/observability"
	"github.com/technopolis/careers-portal/internal/platform/backend"
	"github.com/technopolis/careers-portal/internal/platform/cache"
	"github.com/technopolis/careers-portal/internal/profile"
	"github.com/technopolis/careers-portal/internal/rbac"
	"github.com/technopolis/careers-portal/internal/realtime"
	"github.com/technopolis/careers-portal/internal/shared"
	"github.com/technopolis/careers-portal/internal/view"
)

const (
	sessionCookie     = "portal_session"
	submitGuardTTL    = 5 * time.Minute
	sweepInterval     = time.Minute
	moderationIdleTTL = 30 * time.Minute
)

// PortalParams are the external resources the portal is built from.
type PortalParams struct {
	Logger  *slog.Logger
	Config  *Config
	Redis   *redis.Client
	Metrics *observability.Metrics
}

// Portal is the wired application.
type Portal struct {
	Handler http.Handler
	Hub     *authstore.Hub
	Queue   *moderation.Queue
	Backend *backend.Client

	idleTTL time.Duration
}

// NewPortal wires sessions, the backend client, every feature handler and the
// router.
func NewPortal(params PortalParams) (*Portal, error) {
	cfg := params.Config
	if cfg == nil {
		return nil, fmt.Errorf("portal: config required")
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := params.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	templates, err := view.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("portal: parse templates: %w", err)
	}
	csrfKey, err := cfg.CSRFKey()
	if err != nil {
		return nil, err
	}

	sessions := shared.NewSessionManager(params.Redis, sessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrf := shared.NewCSRFManager(csrfKey)
	hub := authstore.NewHub(
		authstore.NewRedisPersister(params.Redis, cfg.SessionTTL),
		authstore.WithLogger(logger),
		authstore.WithObserver(metrics.ObserveSession),
	)
	client := backend.NewClient(cfg.BackendURL, authstore.ContextTokens{},
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithObserver(metrics),
		backend.WithLogger(logger),
	)
	guard := rbac.Middleware{Logger: logger, Metrics: metrics}
	idempotency := shared.NewIdempotencyStore(params.Redis, submitGuardTTL)
	queue := moderation.NewQueue()

	listingSvc := listings.NewService(client)
	applicationSvc := applications.NewService(client, cfg.ResumeMaxBytes)

	router := NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessions,
		CSRFManager:    csrf,
		Hub:            hub,
		Metrics:        metrics,
		Health:         cache.Ping(params.Redis),
		AuthHandler:         auth.NewHandler(logger, auth.NewService(client), templates, csrf),
		ListingsHandler:     listings.NewHandler(logger, listingSvc, templates, csrf, guard),
		ApplicationsHandler: applications.NewHandler(logger, applicationSvc, templates, csrf, guard, idempotency),
		ProfileHandler: profile.NewHandler(logger, profile.NewService(listingSvc, applicationSvc), applicationSvc,
			templates, csrf, guard),
		ModerationHandler: moderation.NewHandler(logger, moderation.NewService(client, metrics), queue,
			templates, csrf, guard),
		LiveFeed: realtime.NewFeed(logger, metrics),
	})

	return &Portal{
		Handler: router,
		Hub:     hub,
		Queue:   queue,
		Backend: client,
		idleTTL: cfg.StoreIdleTTL,
	}, nil
}

// RunSweepers evicts idle auth stores and moderation boards until ctx is done.
func (p *Portal) RunSweepers(ctx context.Context) {
	go p.Hub.Run(ctx, sweepInterval, p.idleTTL)
	go p.Queue.Run(ctx, sweepInterval, moderationIdleTTL)
}
