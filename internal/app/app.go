package app

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"climate-harvester/internal/config"
	"climate-harvester/internal/rawstore"
	"climate-harvester/internal/repository"
	"climate-harvester/internal/services"
	"climate-harvester/pkg/database"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
	"climate-harvester/pkg/objectstore"
	"climate-harvester/pkg/upstream"
)

// Version is reported in every log entry
const Version = "1.0.0"

// App holds the components shared by the command-line programs.
// DB is nil when the database could not be reached at startup; Remote is nil when no
// provider is configured or the client could not be created.
type App struct {
	Config  *config.Config
	Logger  *logging.StructuredLogger
	Metrics *metrics.Collector
	DB      *database.PostgresDB
	Repo    repository.WeatherRepository
	Raw     *rawstore.Store
	Remote  objectstore.Store
	Clock   clockwork.Clock
}

// NewLogger builds the file-backed logger for service from cfg.
func NewLogger(cfg *config.Config, service string) (*logging.StructuredLogger, error) {
	return logging.NewFileLogger(service, Version, logging.ParseLevel(cfg.LogLevel), cfg.LogDir)
}

// New connects every backing store. A database or remote store that cannot be reached is
// logged instead of failing startup: DB is left nil and Repo fails each call with the
// connection error, and Remote is left nil, so a run still saves whatever it can.
func New(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*App, error) {
	raw, err := rawstore.New(cfg.DataDir, cfg.StationDataFile, logger)
	if err != nil {
		return nil, err
	}

	var repo repository.WeatherRepository
	db, err := database.NewPostgresDB(DatabaseConfig(cfg), logger, metricsCollector)
	if err != nil {
		logger.Error(ctx, "[STARTUP_DB] Database unavailable, database steps will fail for this run", logging.Fields{
			"host":     cfg.Database.Host,
			"database": cfg.Database.Name,
		}, err)
		db = nil
		repo = repository.NewUnavailableRepository(err)
	} else {
		repo = repository.NewWeatherRepository(db, logger, metricsCollector)
	}

	remote, err := objectstore.New(ctx, ObjectStoreConfig(cfg))
	if err != nil {
		logger.Warn(ctx, "[STARTUP_REMOTE] Remote store unavailable, continuing without it", logging.Fields{
			"provider": cfg.Remote.Provider,
			"bucket":   cfg.Remote.Bucket,
			"error":    err.Error(),
		})
		remote = nil
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metricsCollector,
		DB:      db,
		Repo:    repo,
		Raw:     raw,
		Remote:  remote,
		Clock:   clockwork.NewRealClock(),
	}, nil
}

// DatabaseConfig maps the configuration onto the database layer
func DatabaseConfig(cfg *config.Config) *database.Config {
	return &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}
}

// ObjectStoreConfig maps the configuration onto the remote store layer
func ObjectStoreConfig(cfg *config.Config) objectstore.Config {
	return objectstore.Config{
		Provider:        cfg.Remote.Provider,
		Bucket:          cfg.Remote.Bucket,
		CredentialsFile: cfg.Remote.CredentialsFile,
		Endpoint:        cfg.Remote.Endpoint,
		AccessKey:       cfg.Remote.AccessKey,
		SecretKey:       cfg.Remote.SecretKey,
		UseSSL:          cfg.Remote.UseSSL,
	}
}

func upstreamOptions(cfg *config.Config, urlTemplate string) upstream.Options {
	return upstream.Options{
		URLTemplate:     urlTemplate,
		Timeout:         cfg.Upstream.Timeout,
		BreakerFailures: cfg.Upstream.BreakerFailures,
		BreakerTimeout:  cfg.Upstream.BreakerTimeout,
	}
}

// Extraction wires the extraction service against the live upstream services.
func (a *App) Extraction() *services.ExtractionService {
	return services.NewExtractionService(
		services.NewCoverageService(a.Repo, a.Logger, a.Metrics),
		upstream.NewClimateClient(upstreamOptions(a.Config, a.Config.Upstream.WeatherURL), a.Metrics),
		upstream.NewGeonamesClient(upstreamOptions(a.Config, a.Config.Upstream.GeonamesURL), a.Metrics),
		a.Raw,
		a.Remote,
		a.Clock,
		a.Logger,
		a.Metrics,
	)
}

// Transformation wires the transformation service; the published file lands in the data directory.
func (a *App) Transformation() *services.TransformationService {
	publisher := services.NewPublisher(a.Repo, a.Remote, a.Config.DataDir, a.Logger, a.Metrics)
	return services.NewTransformationService(a.Raw, publisher, a.Clock, a.Logger, a.Metrics)
}

// PushMetrics sends the collected metrics to the configured pushgateway, if any.
func (a *App) PushMetrics(ctx context.Context) {
	if err := a.Metrics.Push(a.Config.Metrics.PushGatewayURL); err != nil {
		a.Logger.Warn(ctx, "[METRICS_PUSH] Failed to push metrics", logging.Fields{
			"gateway": a.Config.Metrics.PushGatewayURL,
			"error":   err.Error(),
		})
	}
}

// Close releases every connection held by the app.
func (a *App) Close() error {
	var firstErr error
	if a.Remote != nil {
		if err := a.Remote.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close remote store: %w", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
