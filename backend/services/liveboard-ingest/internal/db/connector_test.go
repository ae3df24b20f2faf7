package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"liveboard/backend/services/liveboard-ingest/internal/repository"
)

type stubSession struct{}

func (stubSession) BeginTx(context.Context) (repository.Tx, error) { return nil, errors.New("not used") }
func (stubSession) Placeholder(int) string { return "?" }
func (stubSession) Close() error { return nil }

type scriptedOpener struct {
	failures int
	calls    int
}

func (o *scriptedOpener) open(ctx context.Context, dsn string) (repository.Session, error) {
	o.calls++
	if o.calls <= o.failures {
		return nil, errors.New("login timeout expired")
	}
	return stubSession{}, nil
}

func newTestConnector(opener *scriptedOpener, maxAttempts int, delay time.Duration) (*Connector, *[]time.Duration, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	c := NewConnector(opener.open, ConnectorConfig{MaxAttempts: maxAttempts, RetryDelay: delay}, zap.New(core))
	var sleeps []time.Duration
	c.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return c, &sleeps, logs
}

func TestConnectFirstAttempt(t *testing.T) {
	opener := &scriptedOpener{}
	c, sleeps, _ := newTestConnector(opener, 5, 10*time.Second)

	session, err := c.Connect(context.Background(), "postgres://db/trains")
	require.NoError(t, err)
	assert.NotNil(t, session)
	assert.Equal(t, 1, opener.calls)
	assert.Empty(t, *sleeps)
}

func TestConnectRecoversAfterTransientFailures(t *testing.T) {
	opener := &scriptedOpener{failures: 2}
	c, sleeps, logs := newTestConnector(opener, 5, 10*time.Second)

	session, err := c.Connect(context.Background(), "postgres://db/trains")
	require.NoError(t, err)
	assert.NotNil(t, session)
	assert.Equal(t, 3, opener.calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, *sleeps)
	assert.Equal(t, 2, logs.FilterMessage("sql connection failed").FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestConnectExhaustsAttempts(t *testing.T) {
	opener := &scriptedOpener{failures: 100}
	c, sleeps, logs := newTestConnector(opener, 5, 10*time.Second)

	session, err := c.Connect(context.Background(), "postgres://db/trains")
	require.Error(t, err)
	assert.Nil(t, session)

	var unavailable *ConnectionUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, 5, unavailable.Attempts)
	assert.Contains(t, err.Error(), "login timeout expired")

	assert.Equal(t, 5, opener.calls, "no sixth attempt")
	assert.Len(t, *sleeps, 4, "no sleep after the final attempt")

	var total time.Duration
	for _, d := range *sleeps {
		total += d
	}
	assert.Equal(t, 40*time.Second, total)
	assert.Equal(t, 5, logs.FilterMessage("sql connection failed").Len())
}

func TestConnectMissingDSN(t *testing.T) {
	opener := &scriptedOpener{}
	c, _, _ := newTestConnector(opener, 5, time.Second)

	_, err := c.Connect(context.Background(), "  ")
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ConnectionStringKey, cfgErr.Key)
	assert.Zero(t, opener.calls)
}

func TestConnectStopsBetweenAttemptsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opener := &scriptedOpener{failures: 100}
	c, sleeps, _ := newTestConnector(opener, 5, time.Second)
	c.sleep = func(d time.Duration) {
		*sleeps = append(*sleeps, d)
		cancel()
	}

	_, err := c.Connect(ctx, "postgres://db/trains")
	require.ErrorIs(t, err, context.Canceled)
	var unavailable *ConnectionUnavailableError
	assert.False(t, errors.As(err, &unavailable), "retries were not exhausted")
	assert.Equal(t, 1, opener.calls)
	assert.Len(t, *sleeps, 1)
}

func TestConnectRejectsUnsupportedDSNWithoutRetrying(t *testing.T) {
	opener := &scriptedOpener{}
	c, sleeps, logs := newTestConnector(opener, 5, 10*time.Second)

	odbc := "Driver={ODBC Driver 18 for SQL Server};Server=tcp:trains.database.windows.net,1433;Database=trains;Uid=ingest;Pwd=secret;Encrypt=yes"
	session, err := c.Connect(context.Background(), odbc)
	assert.Nil(t, session)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ConnectionStringKey, cfgErr.Key)
	assert.Error(t, cfgErr.Err)
	assert.Contains(t, err.Error(), "is invalid")

	var unavailable *ConnectionUnavailableError
	assert.False(t, errors.As(err, &unavailable))
	assert.Zero(t, opener.calls)
	assert.Empty(t, *sleeps)
	assert.Zero(t, logs.FilterMessage("sql connection attempt").Len())
}

func TestCheckDSN(t *testing.T) {
	assert.NoError(t, CheckDSN("postgres://db/trains"))
	assert.NoError(t, CheckDSN("sqlite://liveboard.db"))

	var cfgErr *ConfigurationError
	require.True(t, errors.As(CheckDSN(""), &cfgErr))
	assert.NoError(t, cfgErr.Err)

	require.True(t, errors.As(CheckDSN("mysql://db/trains"), &cfgErr))
	assert.Error(t, cfgErr.Err)
}

func TestNewConnectorDefaults(t *testing.T) {
	c := NewConnector(OpenSQLSession, ConnectorConfig{}, nil)
	assert.Equal(t, DefaultMaxAttempts, c.maxAttempts)
	assert.Equal(t, DefaultRetryDelay, c.retryDelay)
	assert.Equal(t, DefaultAttemptTimeout, c.attemptTimeout)
}

func TestConnectOpensSQLiteSession(t *testing.T) {
	c := NewConnector(OpenSQLSession, ConnectorConfig{MaxAttempts: 1}, nil)

	session, err := c.Connect(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "liveboard.db"))
	require.NoError(t, err)
	assert.Equal(t, "?", session.Placeholder(1))
	assert.NoError(t, session.Close())
}
