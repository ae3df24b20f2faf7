package app

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "liveboard/backend/libs/redis"
	"liveboard/backend/services/liveboard-ingest/internal/clients"
	"liveboard/backend/services/liveboard-ingest/internal/config"
	"liveboard/backend/services/liveboard-ingest/internal/db"
	httpserver "liveboard/backend/services/liveboard-ingest/internal/http"
	"liveboard/backend/services/liveboard-ingest/internal/http/handlers"
	"liveboard/backend/services/liveboard-ingest/internal/http/middleware"
	redisstore "liveboard/backend/services/liveboard-ingest/internal/redis"
	"liveboard/backend/services/liveboard-ingest/internal/repository"
	"liveboard/backend/services/liveboard-ingest/internal/service"
)

// headroom added on top of the worst-case ingest duration for the response write deadline.
const writeHeadroom = 30 * time.Second

// App wires liveboard ingest dependencies.
type App struct {
	ingest *service.IngestService
	server *httpserver.Server
	redis  *goredis.Client
	logger *zap.Logger
}

// New constructs application graph. Redis is optional: when it is not configured or
// not reachable the run summary endpoint is disabled and ingests still run.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	httpClient := clients.NewDefaultHTTPClient(cfg.IRail.Timeout)
	irail := clients.NewIRailClient(clients.IRailConfig{
		BaseURL:   cfg.IRail.BaseURL,
		UserAgent: cfg.IRail.UserAgent,
		Language:  cfg.IRail.Language,
	}, httpClient)

	connector := db.NewConnector(db.OpenSQLSession, db.ConnectorConfig{
		MaxAttempts:    cfg.Database.MaxRetries,
		RetryDelay:     cfg.Database.RetryDelay,
		AttemptTimeout: cfg.Database.ConnectTimeout,
	}, logger.Named("sql"))
	writer := repository.NewDepartureWriter(cfg.Database.Table, cfg.Database.BatchSize, logger.Named("sql"))

	a := &App{logger: logger}

	var (
		runs       service.RunStore
		runHandler *handlers.LastRunHandler
	)
	redisOpts := libredis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	if redisOpts.Enabled() {
		client, err := libredis.NewRedisClient(ctx, redisOpts)
		if err != nil {
			logger.Warn("redis unavailable, run summaries disabled", zap.String("addr", redisOpts.Addr), zap.Error(err))
		} else {
			a.redis = client
			store := redisstore.NewRunStore(client, cfg.Redis.RunTTL)
			runs = store
			runHandler = handlers.NewLastRunHandler(store, cfg.IRail.Station, logger)
		}
	}

	a.ingest = service.NewIngestService(
		service.IngestConfig{Station: cfg.IRail.Station, DSN: cfg.Database.DSN},
		irail,
		connector,
		writer,
		runs,
		logger,
	)

	deps := httpserver.RouterDeps{
		IngestHandler: handlers.NewIngestHandler(a.ingest, logger),
		HealthHandler: handlers.NewHealthHandler(),
	}
	if runHandler != nil {
		deps.LastRunHandler = runHandler
	}
	router := httpserver.NewRouter(deps, middleware.TriggerAuth(cfg.Auth.Mode, cfg.Auth.KeyHash, cfg.Auth.JWTSecret))

	a.server = httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		writeTimeout(cfg),
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	return a, nil
}

// writeTimeout bounds one trigger request: the fetch, every connection attempt
// and the sleeps between them.
func writeTimeout(cfg *config.Config) time.Duration {
	attempts := time.Duration(cfg.Database.MaxRetries)
	return cfg.IRail.Timeout +
		attempts*cfg.Database.ConnectTimeout +
		(attempts-1)*cfg.Database.RetryDelay +
		writeHeadroom
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// RunOnce executes a single ingest without starting the HTTP server.
func (a *App) RunOnce(ctx context.Context) (service.Result, error) {
	return a.ingest.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
