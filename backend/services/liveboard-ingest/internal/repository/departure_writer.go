package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"liveboard/backend/services/liveboard-ingest/internal/models"
)

const (
	DefaultBatchSize = 20
	DefaultTable     = "train_departures"
)

// WriteError reports the batch that failed. Batches before it stay committed.
type WriteError struct {
	Batch     int
	Committed int
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("batch %d failed after %d committed rows: %v", e.Batch, e.Committed, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Chunk partitions items into consecutive slices of at most size elements.
// A non-positive size yields a single batch.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		j := i + size
		if j > len(items) {
			j = len(items)
		}
		batches = append(batches, items[i:j:j])
	}
	return batches
}

// DepartureWriter inserts departure rows in independently committed batches.
type DepartureWriter struct {
	table     string
	batchSize int
	logger    *zap.Logger
}

// NewDepartureWriter returns writer for table. Zero values fall back to defaults.
func NewDepartureWriter(table string, batchSize int, logger *zap.Logger) *DepartureWriter {
	if strings.TrimSpace(table) == "" {
		table = DefaultTable
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartureWriter{
		table:     table,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Write takes ownership of session and closes it on every path. Each batch is its own
// transaction; on the first failure the remaining batches are skipped and the rows
// committed so far are returned alongside a *WriteError. Cancellation of ctx is only
// observed between batches, never inside a running insert or commit.
func (w *DepartureWriter) Write(ctx context.Context, session Session, rows []models.DepartureRow) (inserted int, err error) {
	defer func() {
		if cerr := session.Close(); cerr != nil {
			w.logger.Warn("failed to close sql session", zap.Error(cerr))
		}
	}()

	batchCtx := context.WithoutCancel(ctx)
	for i, batch := range Chunk(rows, w.batchSize) {
		if cerr := ctx.Err(); cerr != nil {
			return inserted, &WriteError{Batch: i + 1, Committed: inserted, Err: cerr}
		}
		if berr := w.writeBatch(batchCtx, session, batch); berr != nil {
			w.logger.Error("insert failed",
				zap.Int("batch", i+1),
				zap.Int("committed_rows", inserted),
				zap.Error(berr),
			)
			return inserted, &WriteError{Batch: i + 1, Committed: inserted, Err: berr}
		}
		inserted += len(batch)
		w.logger.Info("inserted batch", zap.Int("batch", i+1), zap.Int("rows", len(batch)))
	}
	return inserted, nil
}

func (w *DepartureWriter) writeBatch(ctx context.Context, session Session, batch []models.DepartureRow) (err error) {
	tx, err := session.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rerr := tx.Rollback(); rerr != nil && err != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rerr))
		}
	}()

	query, args := w.insertStatement(session, batch)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// insertStatement builds one parameterized multi-row INSERT for the batch.
func (w *DepartureWriter) insertStatement(session Session, batch []models.DepartureRow) (string, []any) {
	width := len(models.DepartureColumns)
	args := make([]any, 0, len(batch)*width)

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(quoteTable(w.table))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(models.DepartureColumns, ", "))
	sb.WriteString(") VALUES ")

	n := 1
	for i, row := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := 0; c < width; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(session.Placeholder(n))
			n++
		}
		sb.WriteByte(')')
		args = append(args, row.Values()...)
	}
	return sb.String(), args
}

// quoteTable quotes each part of an optionally schema-qualified table name.
func quoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, part := range parts {
		parts[i] = quoteIdentifier(strings.TrimSpace(part))
	}
	return strings.Join(parts, ".")
}

func quoteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
