package repository

import (
	"context"
	"database/sql"

	libdb "liveboard/backend/libs/db"
)

// Tx is the transaction subset the writer needs. *sql.Tx satisfies it.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Commit() error
	Rollback() error
}

// Session is an exclusively owned database session.
type Session interface {
	BeginTx(ctx context.Context) (Tx, error)
	Placeholder(n int) string
	Close() error
}

// SQLSession adapts a pinned database/sql connection to Session.
type SQLSession struct {
	session *libdb.Session
}

// NewSQLSession wraps an open session.
func NewSQLSession(session *libdb.Session) *SQLSession {
	return &SQLSession{session: session}
}

// BeginTx starts a transaction on the pinned connection.
func (s *SQLSession) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.session.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Placeholder returns the driver's n-th bind parameter.
func (s *SQLSession) Placeholder(n int) string {
	return libdb.Placeholder(s.session.Driver, n)
}

// Close releases the connection and its pool.
func (s *SQLSession) Close() error {
	return s.session.Close()
}
