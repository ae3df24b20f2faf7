package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	redisstore "liveboard/backend/services/liveboard-ingest/internal/redis"
	"liveboard/backend/services/liveboard-ingest/internal/service"
)

// RunReader returns cached run summaries.
type RunReader interface {
	LastRun(ctx context.Context, station string) (*service.Result, error)
}

// LastRunHandler serves the most recent run summary for the configured station.
type LastRunHandler struct {
	runs    RunReader
	station string
	logger  *zap.Logger
}

// NewLastRunHandler returns handler.
func NewLastRunHandler(runs RunReader, station string, logger *zap.Logger) *LastRunHandler {
	return &LastRunHandler{
		runs:    runs,
		station: station,
		logger:  logger,
	}
}

// ServeHTTP handles GET /api/liveboard/runs/last.
func (h *LastRunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result, err := h.runs.LastRun(r.Context(), h.station)
	if errors.Is(err, redisstore.ErrNoRun) {
		writeError(w, http.StatusNotFound, "no run recorded")
		return
	}
	if err != nil {
		h.logger.Error("failed to read run summary", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "run summary unavailable")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
