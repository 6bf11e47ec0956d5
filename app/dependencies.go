// Package app is the central wiring point for dependency injection.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aeonforge/generation-engine/auth"
	"github.com/aeonforge/generation-engine/config"
	"github.com/aeonforge/generation-engine/handlers"
	"github.com/aeonforge/generation-engine/middleware"
	"github.com/aeonforge/generation-engine/repositories"
	"github.com/aeonforge/generation-engine/repositories/postgres"
	"github.com/aeonforge/generation-engine/services/cascade"
	"github.com/aeonforge/generation-engine/services/catalog"
	"github.com/aeonforge/generation-engine/services/generation"
	"github.com/aeonforge/generation-engine/services/ledger"
	"github.com/aeonforge/generation-engine/services/moderation"
	"github.com/aeonforge/generation-engine/services/profile"
	"github.com/aeonforge/generation-engine/services/prompt"
	"github.com/aeonforge/generation-engine/services/providers"
	"github.com/aeonforge/generation-engine/services/providers/local"
	"github.com/aeonforge/generation-engine/services/providers/remote"
	"github.com/aeonforge/generation-engine/services/retrieval"
	"github.com/aeonforge/generation-engine/services/selector"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	RequestLogs repositories.RequestLogRepository

	// Services
	Registry   *providers.Registry
	Catalog    *catalog.Cache
	Generation *generation.Service

	// HTTP layer
	AuthMiddleware *middleware.AuthMiddleware
	ChatHandler    *handlers.ChatHandler
	StreamHandler  *handlers.StreamHandler
	ModelsHandler  *handlers.ModelsHandler
	UsageHandler   *handlers.UsageHandler
	HealthHandler  *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.initProviders(cfg)
	deps.initServices(cfg)
	deps.initHTTP(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase connects the optional request-log database. When none is
// configured the ledger runs without persistence.
func (d *Dependencies) initDatabase(cfg *config.Config) error {
	if !cfg.Database.Enabled() {
		d.Logger.Warn("no ledger database configured, request logs will not persist")
		return nil
	}

	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return err
	}
	d.DB = db
	d.RequestLogs = postgres.NewRequestLogRepository(db, d.Logger)
	return nil
}

// initProviders registers the generation backends. The echo backend is
// always present so the cascade can never run out of candidates.
func (d *Dependencies) initProviders(cfg *config.Config) {
	registry := providers.NewRegistry()

	if cfg.Providers.Remote.APIKey != "" {
		registry.Register(remote.NewAdapter(cfg.Providers.Remote, d.Logger))
		d.Logger.Info("registered remote provider",
			zap.String("base_url", cfg.Providers.Remote.BaseURL))
	} else {
		d.Logger.Warn("no remote provider credentials, cloud generation disabled")
	}

	if cfg.Providers.Local.BaseURL != "" {
		registry.Register(local.NewAdapter(cfg.Providers.Local, d.Logger))
		d.Logger.Info("registered local provider",
			zap.String("base_url", cfg.Providers.Local.BaseURL))
	}

	registry.Register(providers.NewEcho())
	d.Registry = registry
}

func (d *Dependencies) initServices(cfg *config.Config) {
	d.Catalog = catalog.NewCache(
		catalog.NewRemoteSource(cfg.Providers.Remote, d.Logger),
		cfg.Engine.CatalogTTL,
		d.Logger,
	)

	var guardClient providers.Client
	if client, err := d.Registry.Get(remote.Backend); err == nil {
		guardClient = client
	}
	mod := moderation.NewService(guardClient, cfg.Engine.ModerationModel, cfg.Engine.ModerationFailClosed, d.Logger)

	var retriever retrieval.Retriever
	if cfg.Engine.RetrievalURL != "" {
		retriever = retrieval.NewHTTPRetriever(cfg.Engine.RetrievalURL, d.Logger)
	}
	ret := retrieval.NewService(retriever, cfg.Engine.RetrievalTimeout, cfg.Engine.RetrievalMinChars, d.Logger)

	d.Generation = generation.NewService(
		profile.NewClassifier(cfg.Engine.LongFormThreshold),
		d.Catalog,
		selector.NewSelector(cfg.Engine.MaxAttempts, cfg.Engine.AllowReasoning),
		cascade.New(d.Registry, cascade.Config{
			AttemptTimeout: cfg.Engine.AttemptTimeout,
			BackoffBase:    cfg.Engine.BackoffBase,
		}, d.Logger),
		mod,
		ret,
		prompt.NewBuilder(cfg.Engine.BriefMaxWords),
		ledger.NewService(d.RequestLogs, d.Catalog, d.Logger),
		cfg.Engine,
		d.Logger,
	)

	if cfg.Engine.HeartbeatInterval <= 0 {
		d.Logger.Warn("stream heartbeat disabled")
	}
}

func (d *Dependencies) initHTTP(cfg *config.Config) {
	var validator middleware.TokenValidator
	if cfg.Auth.JWTSecret != "" {
		validator = auth.NewValidator(cfg.Auth, d.Logger)
	} else {
		d.Logger.Warn("JWT secret not configured, protected routes will reject all requests")
		validator = &rejectAllValidator{}
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)

	d.ChatHandler = handlers.NewChatHandler(d.Generation, d.Logger)
	d.StreamHandler = handlers.NewStreamHandler(d.Generation, cfg.Engine.HeartbeatInterval, d.Logger)
	d.ModelsHandler = handlers.NewModelsHandler(d.Catalog, d.Logger)
	d.UsageHandler = handlers.NewUsageHandler(d.RequestLogs, d.Logger)

	d.HealthHandler = handlers.NewHealthHandler(d.sqlDB(), d.Logger)
}

func (d *Dependencies) sqlDB() *sql.DB {
	if d.DB == nil {
		return nil
	}
	return d.DB.DB
}

// rejectAllValidator rejects all tokens (used when no secret is configured)
type rejectAllValidator struct{}

func (*rejectAllValidator) ValidateToken(context.Context, string) (*middleware.Claims, error) {
	return nil, fmt.Errorf("authentication not configured")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
