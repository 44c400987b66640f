// Package dbtest provides an in-memory backend and a recording sink for
// testing code built on package db without a PostgreSQL server.
//
// The backend understands transaction control (BEGIN, COMMIT, ROLLBACK), the
// connectivity probe and a handful of commands:
//
//	PUT <key>       stores args[0] under key (staged until COMMIT inside a transaction)
//	GET <key>       returns {key, value}, or no rows
//	BREAK           drops the connection and fails with io.ErrUnexpectedEOF
//	FAIL [code]     fails with a *pgconn.PgError (default code 42601)
//	SLEEP <dur>     waits for dur or until the context is done
//
// Anything else can be answered by a Handler.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"fluxocaixa/src/infra/db"
)

// ServerVersion is what the connectivity probe reports.
const ServerVersion = "PostgreSQL 16.3 (dbtest), compiled in memory"

// ErrSkip is returned by a Handler to fall through to the built-in commands.
var ErrSkip = errors.New("dbtest: statement not handled")

// Handler answers statements the backend does not know. Exec statements are
// passed with nil args and their result is ignored.
type Handler func(ctx context.Context, sql string, args []any) (*db.Result, error)

// Backend is an in-memory database implementing db.Connector.
type Backend struct {
	mu         sync.Mutex
	committed  map[string]any
	statements []string
	handler    Handler
	dialErr    error
	dialDelay  time.Duration
	dials      int
	closes     int
	open       int
	overlaps   int
	nextID     int
}

// New creates an empty Backend.
func New() *Backend {
	return &Backend{committed: make(map[string]any)}
}

// Handle installs h. It replaces any previous handler.
func (b *Backend) Handle(h Handler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// FailDials makes every following Connect fail with err. Pass nil to recover.
func (b *Backend) FailDials(err error) {
	b.mu.Lock()
	b.dialErr = err
	b.mu.Unlock()
}

// DelayDials makes Connect wait d before answering.
func (b *Backend) DelayDials(d time.Duration) {
	b.mu.Lock()
	b.dialDelay = d
	b.mu.Unlock()
}

// Connect implements db.Connector.
func (b *Backend) Connect(ctx context.Context) (db.Conn, error) {
	b.mu.Lock()
	dialErr, delay := b.dialErr, b.dialDelay
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if dialErr != nil {
		return nil, dialErr
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.dials++
	b.open++
	b.nextID++
	return &Conn{backend: b, id: b.nextID}, nil
}

// Get returns a committed value.
func (b *Backend) Get(key string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.committed[key]
	return v, ok
}

// Set stores a committed value directly.
func (b *Backend) Set(key string, value any) {
	b.mu.Lock()
	b.committed[key] = value
	b.mu.Unlock()
}

// Committed returns a copy of all committed values.
func (b *Backend) Committed() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.committed)
}

// Statements returns every statement received, in order.
func (b *Backend) Statements() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.statements...)
}

// Dials is the number of successful connects.
func (b *Backend) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

// Closes is the number of connections closed.
func (b *Backend) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// OpenConns is the number of connections not yet closed.
func (b *Backend) OpenConns() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Overlaps counts statements that started on a connection while another
// statement was still running on it.
func (b *Backend) Overlaps() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overlaps
}

func (b *Backend) log(sql string) Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statements = append(b.statements, sql)
	return b.handler
}

// Conn is one in-memory connection.
type Conn struct {
	backend *Backend
	id      int
	busy    atomic.Int32

	mu     sync.Mutex
	closed bool
	inTx   bool
	staged map[string]any
}

// ID returns the connection number, starting at 1.
func (c *Conn) ID() int { return c.id }

// Query implements db.Conn.
func (c *Conn) Query(ctx context.Context, sql string, args ...any) (*db.Result, error) {
	if c.busy.Add(1) > 1 {
		c.backend.mu.Lock()
		c.backend.overlaps++
		c.backend.mu.Unlock()
	}
	defer c.busy.Add(-1)

	if c.IsClosed() {
		return nil, net.ErrClosed
	}

	if h := c.backend.log(sql); h != nil {
		res, err := h(ctx, sql, args)
		if !errors.Is(err, ErrSkip) {
			return res, err
		}
	}
	return c.builtin(ctx, sql, args)
}

// Exec implements db.Conn.
func (c *Conn) Exec(ctx context.Context, sql string) error {
	if c.IsClosed() {
		return net.ErrClosed
	}

	if h := c.backend.log(sql); h != nil {
		if _, err := h(ctx, sql, nil); !errors.Is(err, ErrSkip) {
			return err
		}
	}

	switch strings.ToUpper(strings.TrimSpace(sql)) {
	case "BEGIN":
		c.mu.Lock()
		c.inTx = true
		c.staged = make(map[string]any)
		c.mu.Unlock()
		return nil
	case "COMMIT":
		c.mu.Lock()
		staged := c.staged
		c.inTx, c.staged = false, nil
		c.mu.Unlock()

		c.backend.mu.Lock()
		maps.Copy(c.backend.committed, staged)
		c.backend.mu.Unlock()
		return nil
	case "ROLLBACK":
		c.mu.Lock()
		c.inTx, c.staged = false, nil
		c.mu.Unlock()
		return nil
	}

	_, err := c.builtin(ctx, sql, nil)
	return err
}

// Close implements db.Conn.
func (c *Conn) Close(context.Context) error {
	c.drop()
	return nil
}

// IsClosed implements db.Conn.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// InTx reports whether a transaction is open on the connection.
func (c *Conn) InTx() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inTx
}

func (c *Conn) drop() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.inTx, c.staged = false, nil
	c.mu.Unlock()

	c.backend.mu.Lock()
	c.backend.closes++
	c.backend.open--
	c.backend.mu.Unlock()
}

func (c *Conn) builtin(ctx context.Context, sql string, args []any) (*db.Result, error) {
	if strings.Contains(sql, "version()") {
		return &db.Result{
			Rows:     []db.Row{{"now": time.Now(), "version": ServerVersion}},
			RowCount: 1,
		}, nil
	}

	cmd, rest, _ := strings.Cut(strings.TrimSpace(sql), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToUpper(cmd) {
	case "PUT":
		if len(args) == 0 {
			return nil, &pgconn.PgError{Severity: "ERROR", Code: "08P01", Message: "bind message supplies 0 parameters"}
		}
		c.mu.Lock()
		inTx := c.inTx
		if inTx {
			c.staged[rest] = args[0]
		}
		c.mu.Unlock()
		if !inTx {
			c.backend.Set(rest, args[0])
		}
		return &db.Result{RowCount: 1}, nil

	case "GET":
		c.mu.Lock()
		v, ok := c.staged[rest]
		c.mu.Unlock()
		if !ok {
			v, ok = c.backend.Get(rest)
		}
		if !ok {
			return &db.Result{}, nil
		}
		return &db.Result{Rows: []db.Row{{"key": rest, "value": v}}, RowCount: 1}, nil

	case "BREAK":
		c.drop()
		return nil, io.ErrUnexpectedEOF

	case "FAIL":
		code := rest
		if code == "" {
			code = "42601"
		}
		return nil, &pgconn.PgError{Severity: "ERROR", Code: code, Message: "dbtest: forced failure"}

	case "SLEEP":
		d, err := time.ParseDuration(rest)
		if err != nil {
			return nil, fmt.Errorf("dbtest: bad SLEEP duration %q: %w", rest, err)
		}
		select {
		case <-time.After(d):
			return &db.Result{}, nil
		case <-ctx.Done():
			// pgx gives up on the connection when a query is interrupted.
			c.drop()
			return nil, ctx.Err()
		}
	}

	return nil, &pgconn.PgError{Severity: "ERROR", Code: "42601", Message: fmt.Sprintf("dbtest: unknown statement %q", sql)}
}
