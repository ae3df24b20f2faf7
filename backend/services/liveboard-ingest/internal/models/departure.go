package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrMissingValue is returned when a scalar field was absent, null or empty.
var ErrMissingValue = errors.New("value missing")

// RawValue keeps a scalar exactly as sent upstream. iRail encodes numbers as
// JSON strings, so both "60" and 60 decode to the same value.
type RawValue string

// UnmarshalJSON accepts strings, numbers and booleans; null leaves the value empty.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = RawValue(s)
		return nil
	}
	*v = RawValue(data)
	return nil
}

// IsZero reports whether the value is absent or blank.
func (v RawValue) IsZero() bool {
	return strings.TrimSpace(string(v)) == ""
}

// Int64 parses the value as a base-10 integer.
func (v RawValue) Int64() (int64, error) {
	if v.IsZero() {
		return 0, ErrMissingValue
	}
	return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
}

// StringPtr returns nil for blank values.
func (v RawValue) StringPtr() *string {
	if v.IsZero() {
		return nil
	}
	s := strings.TrimSpace(string(v))
	return &s
}

// Liveboard is the iRail liveboard response for one station.
type Liveboard struct {
	Version    string          `json:"version"`
	Timestamp  RawValue        `json:"timestamp"`
	Station    string          `json:"station"`
	Departures *DepartureBoard `json:"departures"`
}

// DepartureBoard wraps the departure list; iRail omits the list when the board is empty.
type DepartureBoard struct {
	Number    RawValue          `json:"number"`
	Departure []DepartureRecord `json:"departure"`
}

// DepartureList returns the departure records, or nil when the board is absent.
func (l *Liveboard) DepartureList() []DepartureRecord {
	if l == nil || l.Departures == nil {
		return nil
	}
	return l.Departures.Departure
}

// DepartureRecord is a raw departure entry. Station is the train's destination.
type DepartureRecord struct {
	ID       string   `json:"id"`
	Station  string   `json:"station"`
	Vehicle  string   `json:"vehicle"`
	Time     RawValue `json:"time"`
	Delay    RawValue `json:"delay"`
	Platform RawValue `json:"platform"`
	Canceled RawValue `json:"canceled"`
}

// DepartureColumns is the fixed column order of the departures table.
var DepartureColumns = []string{
	"station",
	"destination",
	"vehicle",
	"departure_time",
	"delay_seconds",
	"platform",
	"fetched_at",
}

// DepartureRow is a normalized departure ready for insertion.
type DepartureRow struct {
	Station       string    `json:"station"`
	Destination   string    `json:"destination"`
	Vehicle       string    `json:"vehicle"`
	DepartureTime time.Time `json:"departure_time"`
	DelaySeconds  int       `json:"delay_seconds"`
	Platform      *string   `json:"platform"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Values returns the bind arguments in DepartureColumns order.
func (r DepartureRow) Values() []any {
	var platform any
	if r.Platform != nil {
		platform = *r.Platform
	}
	return []any{
		r.Station,
		r.Destination,
		r.Vehicle,
		r.DepartureTime,
		r.DelaySeconds,
		platform,
		r.FetchedAt,
	}
}
