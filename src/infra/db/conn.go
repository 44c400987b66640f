package db

import (
	"context"
	"slices"
)

// Conn is a single backend connection.
// A Conn is used by at most one goroutine at a time; the pool guarantees that.
type Conn interface {
	// Query runs sql with positional ($1, $2, ...) arguments and collects
	// every returned row.
	Query(ctx context.Context, sql string, args ...any) (*Result, error)

	// Exec runs a statement that takes no arguments and returns no rows,
	// such as BEGIN or COMMIT.
	Exec(ctx context.Context, sql string) error

	// Close terminates the connection.
	Close(ctx context.Context) error

	// IsClosed reports whether the backend side of the connection is gone.
	IsClosed() bool
}

// Connector opens new backend connections.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (Conn, error)

// Connect calls f(ctx).
func (f ConnectorFunc) Connect(ctx context.Context) (Conn, error) {
	return f(ctx)
}

// Row is a single result row keyed by column name.
type Row map[string]any

// Result holds the rows and affected-row count of one statement.
type Result struct {
	Rows     []Row
	RowCount int64
}

// First returns the first row, or nil when the result is empty.
func (r *Result) First() Row {
	if r == nil || len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[0]
}

// Statement is a parameterized SQL statement.
// Operation is a short, bounded name used as the metrics label; it must not
// contain user input.
type Statement struct {
	Operation string
	SQL       string
	Args      []any
}

// NewStatement builds a Statement. The argument slice is copied so later
// changes by the caller do not affect a submitted statement.
func NewStatement(operation, sql string, args ...any) Statement {
	return Statement{
		Operation: operation,
		SQL:       sql,
		Args:      slices.Clone(args),
	}
}
