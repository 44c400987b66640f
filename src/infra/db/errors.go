package db

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned by the pool, executor and transactor.
// Backend errors (for example *pgconn.PgError) are never wrapped in these;
// they reach the caller exactly as the backend produced them.
var (
	// ErrPoolExhausted is returned when no connection became available within
	// the configured connection timeout.
	ErrPoolExhausted = errors.New("db: connection pool exhausted")

	// ErrPoolUnavailable is returned once the pool has begun shutting down.
	ErrPoolUnavailable = errors.New("db: connection pool unavailable")

	// ErrConnectionBroken is returned when a leased connection can no longer
	// be used.
	ErrConnectionBroken = errors.New("db: connection broken")

	// ErrTxDone is returned by Tx.Execute after the transaction has finished.
	ErrTxDone = errors.New("db: transaction already finished")

	// ErrNestedTx is returned when RunInTx is called from inside a transaction.
	ErrNestedTx = errors.New("db: nested transactions are not supported")

	// ErrLeaseReleased is returned when a statement is run on a released lease.
	ErrLeaseReleased = errors.New("db: lease already released")
)

// IsConnectionError reports whether err means the connection that produced it
// must not be reused.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	// A statement interrupted by its context may still be running server side.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrConnectionBroken) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is connection exception, 57P0x is operator intervention
		// (admin_shutdown, crash_shutdown, cannot_connect_now).
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsPoolError reports whether err came from the pool rather than the backend.
func IsPoolError(err error) bool {
	return errors.Is(err, ErrPoolExhausted) || errors.Is(err, ErrPoolUnavailable)
}
