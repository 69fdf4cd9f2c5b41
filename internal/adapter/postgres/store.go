package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wikifarm/farmd/internal/domain"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// uniqueViolation is the SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// wrapErr classifies a query error: missing rows become domain.ErrNotFound,
// connection failures become domain.ErrStoreUnavailable, everything else is
// wrapped as-is.
func wrapErr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	case isUnavailable(err):
		return fmt.Errorf("%s: %v: %w", msg, err, domain.ErrStoreUnavailable)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

// isUnavailable reports whether err indicates the backing storage cannot be
// reached, as opposed to a query-level failure.
func isUnavailable(err error) bool {
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// execExpectOne verifies that an Exec affected exactly one row. If not
// (and err is nil), it returns domain.ErrNotFound with the given message.
func execExpectOne(tag pgconn.CommandTag, err error, format string, args ...any) error {
	if err != nil {
		return wrapErr(err, format, args...)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", domain.ErrNotFound)
	}
	return nil
}
