package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"liveboard/backend/services/liveboard-ingest/internal/db"
	"liveboard/backend/services/liveboard-ingest/internal/models"
	"liveboard/backend/services/liveboard-ingest/internal/repository"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusNoData  = "no_data"
	StatusFailed  = "failed"
)

// LiveboardFetcher fetches the upstream liveboard.
type LiveboardFetcher interface {
	Liveboard(ctx context.Context, station string) (*models.Liveboard, error)
}

// SessionConnector establishes a database session.
type SessionConnector interface {
	Connect(ctx context.Context, dsn string) (repository.Session, error)
}

// RowWriter persists rows and closes the session it is given.
type RowWriter interface {
	Write(ctx context.Context, session repository.Session, rows []models.DepartureRow) (int, error)
}

// RunStore keeps the summary of the most recent run.
type RunStore interface {
	SaveLastRun(ctx context.Context, result Result) error
}

// Result summarizes one ingest invocation.
type Result struct {
	RunID        string    `json:"run_id"`
	Station      string    `json:"station"`
	Status       string    `json:"status"`
	Departures   int       `json:"departures"`
	RowsInserted int       `json:"rows_inserted"`
	FetchedAt    time.Time `json:"fetched_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Error        string    `json:"error,omitempty"`
}

// IngestConfig holds per-deployment ingest settings.
type IngestConfig struct {
	Station string
	DSN     string
}

// IngestService runs fetch, transform, connect and write for one station.
type IngestService struct {
	fetcher   LiveboardFetcher
	connector SessionConnector
	writer    RowWriter
	runs      RunStore
	cfg       IngestConfig
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewIngestService builds service. runs may be nil.
func NewIngestService(
	cfg IngestConfig,
	fetcher LiveboardFetcher,
	connector SessionConnector,
	writer RowWriter,
	runs RunStore,
	logger *zap.Logger,
) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		fetcher:   fetcher,
		connector: connector,
		writer:    writer,
		runs:      runs,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Station returns the configured station name.
func (s *IngestService) Station() string {
	return s.cfg.Station
}

// Run executes one invocation. A board without departures is not an error: it yields
// StatusNoData and never touches the database. Failures are returned as the typed errors
// of the producing component, with Result still describing how far the run got.
func (s *IngestService) Run(ctx context.Context) (Result, error) {
	result := Result{RunID: s.newID(), Station: s.cfg.Station}
	logger := s.logger.With(zap.String("run_id", result.RunID), zap.String("station", s.cfg.Station))
	logger.Info("liveboard ingest started")

	if err := db.CheckDSN(s.cfg.DSN); err != nil {
		logger.Error("sql connection string is not usable", zap.Error(err))
		return s.finish(ctx, logger, result, err)
	}

	board, err := s.fetcher.Liveboard(ctx, s.cfg.Station)
	if err != nil {
		logger.Error("error calling irail api", zap.Error(err))
		return s.finish(ctx, logger, result, err)
	}

	records := board.DepartureList()
	result.Departures = len(records)
	if len(records) == 0 {
		result.Status = StatusNoData
		logger.Info("no departures found")
		return s.finish(ctx, logger, result, nil)
	}

	result.FetchedAt = s.now().UTC()
	rows, err := Transform(s.cfg.Station, records, result.FetchedAt)
	if err != nil {
		logger.Error("invalid departure record", zap.Error(err))
		return s.finish(ctx, logger, result, err)
	}

	session, err := s.connector.Connect(ctx, s.cfg.DSN)
	if err != nil {
		logger.Error("sql database unavailable", zap.Error(err))
		return s.finish(ctx, logger, result, err)
	}

	result.RowsInserted, err = s.writer.Write(ctx, session, rows)
	if err != nil {
		return s.finish(ctx, logger, result, err)
	}

	result.Status = StatusSuccess
	return s.finish(ctx, logger, result, nil)
}

func (s *IngestService) finish(ctx context.Context, logger *zap.Logger, result Result, err error) (Result, error) {
	result.FinishedAt = s.now().UTC()
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
	}

	logger.Info("liveboard ingest finished",
		zap.String("status", result.Status),
		zap.Int("departures", result.Departures),
		zap.Int("rows_inserted", result.RowsInserted),
	)

	if s.runs != nil {
		if serr := s.runs.SaveLastRun(context.WithoutCancel(ctx), result); serr != nil {
			logger.Warn("failed to store run summary", zap.Error(serr))
		}
	}
	return result, err
}
