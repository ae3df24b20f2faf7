package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"liveboard/backend/services/liveboard-ingest/internal/clients"
	"liveboard/backend/services/liveboard-ingest/internal/db"
	"liveboard/backend/services/liveboard-ingest/internal/repository"
	"liveboard/backend/services/liveboard-ingest/internal/service"
)

const (
	msgNoDepartures   = "No departures found."
	msgMisconfigured  = "Server misconfigured: missing SQL connection string."
	msgInvalidDSN     = "Server misconfigured: unsupported SQL connection string."
	msgDBUnavailable  = "SQL database unavailable after retries."
	msgInternalError  = "Internal error."
	prefixAPIError    = "API error: "
	prefixInsertError = "Insert error: "
	prefixBadPayload  = "Invalid upstream payload: "
)

// Ingester runs one ingest invocation.
type Ingester interface {
	Run(ctx context.Context) (service.Result, error)
}

// IngestHandler triggers a liveboard ingest and maps the outcome to a response.
type IngestHandler struct {
	ingester Ingester
	logger   *zap.Logger
}

// NewIngestHandler returns handler.
func NewIngestHandler(ingester Ingester, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		ingester: ingester,
		logger:   logger,
	}
}

type ingestResponse struct {
	Status       string `json:"status"`
	RowsInserted int    `json:"rows_inserted"`
}

// ServeHTTP handles GET|POST /api/liveboard/scrape.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result, err := h.ingester.Run(r.Context())
	if err != nil {
		status, message := classify(err)
		if status == http.StatusInternalServerError && message == msgInternalError {
			h.logger.Error("unclassified ingest failure", zap.Error(err))
		}
		writeText(w, status, message)
		return
	}

	if result.Status == service.StatusNoData {
		writeText(w, http.StatusOK, msgNoDepartures)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Status:       service.StatusSuccess,
		RowsInserted: result.RowsInserted,
	})
}

// classify maps ingest errors to status and plain-text body. Partial commits on a
// write failure are not reported back; callers must inspect the table.
func classify(err error) (int, string) {
	var (
		cfgErr  *db.ConfigurationError
		upErr   *clients.UpstreamError
		connErr *db.ConnectionUnavailableError
		trErr   *service.TransformError
		wrErr   *repository.WriteError
	)

	switch {
	case errors.As(err, &cfgErr):
		if cfgErr.Err != nil {
			return http.StatusInternalServerError, msgInvalidDSN
		}
		return http.StatusInternalServerError, msgMisconfigured
	case errors.As(err, &upErr):
		return http.StatusInternalServerError, prefixAPIError + upErr.Error()
	case errors.As(err, &connErr):
		return http.StatusInternalServerError, msgDBUnavailable
	case errors.As(err, &trErr):
		return http.StatusInternalServerError, prefixBadPayload + trErr.Error()
	case errors.As(err, &wrErr):
		return http.StatusInternalServerError, prefixInsertError + wrErr.Err.Error()
	default:
		return http.StatusInternalServerError, msgInternalError
	}
}
