package application

import (
	"context"
	"fmt"

	"github.com/ngoclaw/relaygate/internal/domain/repository"
	"github.com/ngoclaw/relaygate/internal/infrastructure/config"
	"github.com/ngoclaw/relaygate/internal/infrastructure/credential"
	"github.com/ngoclaw/relaygate/internal/infrastructure/customapi"
	"github.com/ngoclaw/relaygate/internal/infrastructure/monitoring"
	"github.com/ngoclaw/relaygate/internal/infrastructure/persistence"
	"github.com/ngoclaw/relaygate/internal/infrastructure/streamengine"
	"github.com/ngoclaw/relaygate/internal/infrastructure/upstreamclient"
	httpServer "github.com/ngoclaw/relaygate/internal/interfaces/http"
	"github.com/ngoclaw/relaygate/internal/interfaces/http/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the gateway's dependency-injection container: repositories,
// the credential allocator, the Upstream/delegate HTTP clients, and
// the HTTP server that exposes the OpenAI- and Anthropic-compatible
// endpoints.
type App struct {
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB

	credentialRepo      repository.CredentialRepository
	externalAccountRepo repository.ExternalAPIAccountRepository

	managerCache   *credential.ManagerCache
	allocator      *credential.Allocator
	healthChecker  *credential.HealthChecker
	upstreamClient *upstreamclient.Client
	delegateClient *customapi.Client
	streamEngine   *streamengine.Engine
	gatewayMetrics *monitoring.GatewayMetrics
	gatewayHandler *handlers.GatewayHandler

	httpServer *httpServer.Server
}

// NewApp wires the full gateway: repositories, credential allocator,
// Upstream client, streaming engine, and the HTTP server.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		config: cfg,
		logger: logger,
	}

	if err := app.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := app.initRelayGateway(); err != nil {
		return nil, fmt.Errorf("failed to init relay gateway: %w", err)
	}

	if err := app.initInterfaces(); err != nil {
		return nil, fmt.Errorf("failed to init interfaces: %w", err)
	}

	return app, nil
}

// initRepositories connects to the database and opens the credential
// and external-account repositories used by the allocator.
func (app *App) initRepositories() error {
	app.logger.Info("Initializing repositories")

	db, err := persistence.NewDBConnection(&app.config.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.db = db

	encryptionKey := config.ResolveEncryptionKey(app.config.Relay.EncryptionKey, app.logger)
	credentialRepo, err := persistence.NewGormCredentialRepository(db, encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to init credential repository: %w", err)
	}
	app.credentialRepo = credentialRepo

	externalAccountRepo, err := persistence.NewGormExternalAPIAccountRepository(db, encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to init external API account repository: %w", err)
	}
	app.externalAccountRepo = externalAccountRepo

	return nil
}

// initRelayGateway wires the credential allocator, the Upstream and
// external-account HTTP clients, and the streaming engine into a
// GatewayHandler serving /v1/chat/completions, /v1/messages, and
// /cc/v1/messages.
func (app *App) initRelayGateway() error {
	app.logger.Info("Initializing relay gateway")

	app.managerCache = credential.NewManagerCache(app.config.Relay.AuthManagerCacheMaxSize, app.logger)
	app.allocator = credential.NewAllocator(app.credentialRepo, app.externalAccountRepo, app.managerCache, app.logger)
	app.allocator.MinSuccessRate = app.config.Relay.TokenMinSuccessRate

	app.healthChecker = credential.NewHealthChecker(app.credentialRepo, app.managerCache, app.logger, app.config.Relay.TokenHealthCheckInterval)

	app.upstreamClient = upstreamclient.New(app.config.Relay.UpstreamBaseURL, app.logger)
	app.delegateClient = customapi.New(app.logger)

	engineCfg := streamengine.DefaultConfig()
	if app.config.Relay.FirstTokenTimeout > 0 {
		engineCfg.FirstTokenTimeout = app.config.Relay.FirstTokenTimeout
	}
	if app.config.Relay.FirstTokenMaxRetries > 0 {
		engineCfg.FirstTokenMaxRetries = app.config.Relay.FirstTokenMaxRetries
	}
	if app.config.Relay.StreamReadTimeout > 0 {
		engineCfg.StreamReadTimeout = app.config.Relay.StreamReadTimeout
	}
	app.streamEngine = streamengine.New(engineCfg, app.logger)
	app.gatewayMetrics = monitoring.NewGatewayMetrics(prometheus.DefaultRegisterer)

	app.gatewayHandler = handlers.NewGatewayHandler(
		app.allocator,
		app.upstreamClient,
		app.delegateClient,
		app.streamEngine,
		app.gatewayMetrics,
		handlers.GatewayConfig{
			ProfileArn:               app.config.Relay.ProfileArn,
			ToolDescriptionMaxLength: app.config.Relay.ToolDescriptionMaxLength,
		},
		app.logger,
	)

	return nil
}

// initInterfaces builds the HTTP server around the gateway handler.
func (app *App) initInterfaces() error {
	app.logger.Info("Initializing interfaces")

	app.httpServer = httpServer.NewServer(
		httpServer.Config{
			Host: app.config.Gateway.Host,
			Port: app.config.Gateway.Port,
			Mode: app.config.Gateway.Mode,
		},
		app.gatewayHandler,
		app.logger,
	)

	return nil
}

// Start starts the credential health checker and the HTTP server.
func (app *App) Start(ctx context.Context) error {
	app.logger.Info("Starting application")

	app.healthChecker.Start()

	if err := app.httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	app.logger.Info("Application started successfully")
	return nil
}

// Stop stops the HTTP server, the health checker, and closes the
// database connection.
func (app *App) Stop(ctx context.Context) error {
	app.logger.Info("Stopping application")

	app.healthChecker.Stop()

	if err := app.httpServer.Stop(ctx); err != nil {
		app.logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	if app.db != nil {
		sqlDB, err := app.db.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				app.logger.Error("Failed to close database connection", zap.Error(err))
			}
		}
	}

	app.logger.Info("Application stopped successfully")
	return nil
}

// Logger returns the application logger.
func (app *App) Logger() *zap.Logger {
	return app.logger
}

// AppConfig returns the application config.
func (app *App) AppConfig() *config.Config {
	return app.config
}
