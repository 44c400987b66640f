package db

import (
	"context"
	"log/slog"
	"time"

	"fluxocaixa/src/infra/logger"
)

// Executor runs single statements and reports each one to the Sink.
type Executor struct {
	pool          *Pool
	sink          Sink
	log           *slog.Logger
	slowThreshold time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithSlowThreshold logs statements slower than d at warn level.
// Zero disables slow statement logging.
func WithSlowThreshold(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.slowThreshold = d }
}

// NewExecutor creates an Executor over pool.
func NewExecutor(pool *Pool, sink Sink, log *slog.Logger, opts ...ExecutorOption) *Executor {
	if log == nil {
		log = logger.Discard()
	}
	e := &Executor{
		pool: pool,
		sink: sinkOrNop(sink),
		log:  log.With("component", "db.executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute leases a connection, runs stmt and releases the connection, also
// when the statement fails. Exactly one sample is recorded per call, covering
// the lease wait. Errors are returned as produced.
func (e *Executor) Execute(ctx context.Context, stmt Statement) (*Result, error) {
	start := time.Now()

	lease, err := e.pool.Lease(ctx)
	if err != nil {
		e.finish(ctx, stmt, start, err)
		return nil, err
	}
	defer lease.Release()

	res, err := e.run(ctx, lease, stmt)
	e.finish(ctx, stmt, start, err)
	return res, err
}

// ExecuteOn runs stmt on a lease the caller already holds. The lease is not
// released. Exactly one sample is recorded per call.
func (e *Executor) ExecuteOn(ctx context.Context, lease *Lease, stmt Statement) (*Result, error) {
	start := time.Now()
	res, err := e.run(ctx, lease, stmt)
	e.finish(ctx, stmt, start, err)
	return res, err
}

func (e *Executor) run(ctx context.Context, lease *Lease, stmt Statement) (*Result, error) {
	conn, done, err := lease.conn()
	if err != nil {
		return nil, err
	}
	defer done()

	ctx, cancel := lease.bind(ctx)
	defer cancel()

	res, err := conn.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil && (IsConnectionError(err) || conn.IsClosed()) {
		lease.MarkBroken()
	}
	return res, err
}

// finish logs through the request-scoped logger when ctx carries one.
func (e *Executor) finish(ctx context.Context, stmt Statement, start time.Time, err error) {
	d := time.Since(start)
	e.sink.RecordOperation(stmt.Operation, d, err == nil)

	log := logger.FromContext(ctx, e.log)

	if err != nil {
		log.Debug("query failed", "operation", stmt.Operation, "duration", d, "error", err)
		return
	}
	if e.slowThreshold > 0 && d >= e.slowThreshold {
		log.Warn("slow query", "operation", stmt.Operation, "duration", d)
		return
	}
	log.Debug("query executed", "operation", stmt.Operation, "duration", d)
}
