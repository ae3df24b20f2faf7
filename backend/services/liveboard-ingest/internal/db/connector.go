package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	libdb "liveboard/backend/libs/db"
	"liveboard/backend/services/liveboard-ingest/internal/repository"
)

const (
	DefaultMaxAttempts    = 5
	DefaultRetryDelay     = 10 * time.Second
	DefaultAttemptTimeout = 5 * time.Second

	// ConnectionStringKey names the setting that carries the connection descriptor.
	ConnectionStringKey = "SQL_CONNECTION_STRING"
)

// ConfigurationError reports a missing or unusable required setting. Err is nil
// when the setting is absent.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s is invalid: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("configuration: %s is not set", e.Key)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// CheckDSN rejects connection strings that no attempt could ever open.
func CheckDSN(dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		return &ConfigurationError{Key: ConnectionStringKey}
	}
	if _, err := libdb.ParseDSN(dsn); err != nil {
		return &ConfigurationError{Key: ConnectionStringKey, Err: err}
	}
	return nil
}

// ConnectionUnavailableError is returned once every connection attempt has failed.
type ConnectionUnavailableError struct {
	Attempts int
	Err      error
}

func (e *ConnectionUnavailableError) Error() string {
	return fmt.Sprintf("database unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConnectionUnavailableError) Unwrap() error {
	return e.Err
}

// OpenFunc opens one database session.
type OpenFunc func(ctx context.Context, dsn string) (repository.Session, error)

// OpenSQLSession opens a pinned database/sql session for dsn.
func OpenSQLSession(ctx context.Context, dsn string) (repository.Session, error) {
	session, err := libdb.OpenSession(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return repository.NewSQLSession(session), nil
}

// ConnectorConfig is the retry policy.
type ConnectorConfig struct {
	MaxAttempts    int
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
}

// Connector establishes sessions with a fixed-delay retry loop.
type Connector struct {
	open           OpenFunc
	maxAttempts    int
	retryDelay     time.Duration
	attemptTimeout time.Duration
	sleep          func(time.Duration)
	logger         *zap.Logger
}

// NewConnector returns connector. Zero config values fall back to defaults.
func NewConnector(open OpenFunc, cfg ConnectorConfig, logger *zap.Logger) *Connector {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{
		open:           open,
		maxAttempts:    cfg.MaxAttempts,
		retryDelay:     cfg.RetryDelay,
		attemptTimeout: cfg.AttemptTimeout,
		sleep:          time.Sleep,
		logger:         logger,
	}
}

// Connect tries up to maxAttempts times, sleeping retryDelay between attempts but not
// after the last one. A started sleep always runs to completion; ctx is checked only
// between attempts and its error is returned as is. An unparseable dsn fails with
// *ConfigurationError before the first attempt.
func (c *Connector) Connect(ctx context.Context, dsn string) (repository.Session, error) {
	if err := CheckDSN(dsn); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("connect canceled after %d attempts: %w", attempt-1, err)
			}
		}

		c.logger.Info("sql connection attempt",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
		)

		session, err := c.openOnce(ctx, dsn)
		if err == nil {
			c.logger.Info("sql connection established", zap.Int("attempt", attempt))
			return session, nil
		}

		lastErr = err
		c.logger.Warn("sql connection failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Error(err),
		)

		if attempt < c.maxAttempts {
			c.sleep(c.retryDelay)
		}
	}

	return nil, &ConnectionUnavailableError{Attempts: c.maxAttempts, Err: lastErr}
}

func (c *Connector) openOnce(ctx context.Context, dsn string) (repository.Session, error) {
	attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.attemptTimeout)
	defer cancel()
	return c.open(attemptCtx, dsn)
}
