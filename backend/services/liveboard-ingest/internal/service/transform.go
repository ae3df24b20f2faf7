package service

import (
	"fmt"
	"strings"
	"time"

	"liveboard/backend/services/liveboard-ingest/internal/models"
)

// TransformError marks a departure record that cannot be normalized.
// One bad record fails the whole invocation; records are never skipped.
type TransformError struct {
	Index int
	Field string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("departure %d: field %q: %v", e.Index, e.Field, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// Transform maps raw departures to rows in input order. Every row carries the same
// station and fetchedAt. Missing or non-numeric delays become 0, negative delays are clamped.
func Transform(station string, records []models.DepartureRecord, fetchedAt time.Time) ([]models.DepartureRow, error) {
	fetchedAt = fetchedAt.UTC()
	rows := make([]models.DepartureRow, 0, len(records))

	for i, rec := range records {
		epoch, err := rec.Time.Int64()
		if err != nil {
			return nil, &TransformError{Index: i, Field: "time", Err: err}
		}

		rows = append(rows, models.DepartureRow{
			Station:       station,
			Destination:   strings.TrimSpace(rec.Station),
			Vehicle:       strings.TrimSpace(rec.Vehicle),
			DepartureTime: time.Unix(epoch, 0).UTC(),
			DelaySeconds:  delaySeconds(rec.Delay),
			Platform:      rec.Platform.StringPtr(),
			FetchedAt:     fetchedAt,
		})
	}

	return rows, nil
}

func delaySeconds(v models.RawValue) int {
	delay, err := v.Int64()
	if err != nil || delay < 0 {
		return 0
	}
	return int(delay)
}
