package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name       string
		dsn        string
		driver     string
		dataSource string
		wantErr    bool
	}{
		{"postgres url", "postgres://user:pw@db:5432/trains", DriverPostgres, "postgres://user:pw@db:5432/trains", false},
		{"postgresql url", "postgresql://db/trains?sslmode=disable", DriverPostgres, "postgresql://db/trains?sslmode=disable", false},
		{"key value", "host=db user=ingest dbname=trains", DriverPostgres, "host=db user=ingest dbname=trains", false},
		{"sqlite scheme", "sqlite:///var/lib/liveboard.db", DriverSQLite, "/var/lib/liveboard.db", false},
		{"sqlite file uri", "file:liveboard.db?cache=shared", DriverSQLite, "file:liveboard.db?cache=shared", false},
		{"sqlite memory", ":memory:", DriverSQLite, ":memory:", false},
		{"trimmed", "  postgres://db/trains  ", DriverPostgres, "postgres://db/trains", false},
		{"empty", "   ", "", "", true},
		{"odbc", "Driver={ODBC Driver 18 for SQL Server};Server=tcp:x.database.windows.net", "", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target, err := ParseDSN(tc.dsn)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.driver, target.Driver)
			assert.Equal(t, tc.dataSource, target.DataSource)
		})
	}
}

func TestOpenSessionSQLite(t *testing.T) {
	session, err := OpenSession(context.Background(), ":memory:")
	require.NoError(t, err)

	var one int
	require.NoError(t, session.Conn.QueryRowContext(context.Background(), "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
	assert.Equal(t, DriverSQLite, session.Driver)

	require.NoError(t, session.Close())
	assert.Error(t, session.DB.Ping())
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "$3", Placeholder(DriverPostgres, 3))
	assert.Equal(t, "?", Placeholder(DriverSQLite, 3))
}

func TestCloseNilSession(t *testing.T) {
	var s *Session
	assert.NoError(t, s.Close())
}
