package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver names registered by the imported database/sql drivers.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

const (
	defaultConnLifetime = time.Hour
	defaultPingTimeout  = 5 * time.Second
)

// Target is a resolved connection descriptor.
type Target struct {
	Driver     string
	DataSource string
}

// ParseDSN picks the driver from the connection descriptor. Postgres URLs and
// key=value strings go to pgx; sqlite://, file: and :memory: go to sqlite.
func ParseDSN(dsn string) (Target, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return Target{}, errors.New("db: empty DSN")
	}

	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Target{Driver: DriverPostgres, DataSource: dsn}, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return Target{Driver: DriverSQLite, DataSource: dsn[len("sqlite://"):]}, nil
	case strings.HasPrefix(lower, "file:"), lower == ":memory:":
		return Target{Driver: DriverSQLite, DataSource: dsn}, nil
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname="):
		return Target{Driver: DriverPostgres, DataSource: dsn}, nil
	default:
		return Target{}, errors.New("db: unsupported DSN, expected postgres:// URL, key=value string or sqlite:// path")
	}
}

// Session pins a single connection of a one-connection pool. Closing it releases both.
type Session struct {
	Driver string
	DB     *sql.DB
	Conn   *sql.Conn
}

// OpenSession opens the pool for dsn, validates it with a ping and pins one connection.
func OpenSession(ctx context.Context, dsn string) (*Session, error) {
	target, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(target.Driver, target.DataSource)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(defaultConnLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	conn, err := db.Conn(pingCtx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Session{Driver: target.Driver, DB: db, Conn: conn}, nil
}

// Close releases the pinned connection and the pool.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.Conn != nil {
		if err := s.Conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, fmt.Errorf("db: close conn: %w", err))
		}
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("db: close pool: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Placeholder returns the n-th (1-based) bind parameter for the driver.
func Placeholder(driver string, n int) string {
	if driver == DriverSQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}
