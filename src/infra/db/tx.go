package db

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fluxocaixa/src/infra/logger"
)

// TxOperation is the operation label recorded once per RunInTx call.
const TxOperation = "transaction"

const rollbackTimeout = 5 * time.Second

type txKey struct{}

// Tx is a sequence of statements bound to one leased connection.
// It is valid only inside the work function passed to RunInTx.
type Tx struct {
	exec  *Executor
	lease *Lease

	mu   sync.Mutex
	done bool
}

// Execute runs stmt inside the transaction. Calls are serialized; the
// connection is never used by two statements at once.
func (tx *Tx) Execute(ctx context.Context, stmt Statement) (*Result, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return nil, ErrTxDone
	}
	return tx.exec.ExecuteOn(ctx, tx.lease, stmt)
}

func (tx *Tx) finish() {
	tx.mu.Lock()
	tx.done = true
	tx.mu.Unlock()
}

// Transactor wraps statement sequences in BEGIN/COMMIT on a single connection.
type Transactor struct {
	pool *Pool
	exec *Executor
	sink Sink
	log  *slog.Logger
}

// NewTransactor creates a Transactor. Statements inside a transaction are
// run and recorded through exec.
func NewTransactor(pool *Pool, exec *Executor, sink Sink, log *slog.Logger) *Transactor {
	if log == nil {
		log = logger.Discard()
	}
	return &Transactor{
		pool: pool,
		exec: exec,
		sink: sinkOrNop(sink),
		log:  log.With("component", "db.tx"),
	}
}

// RunInTx leases one connection, issues BEGIN and calls work with a Tx bound
// to that connection. When work returns nil the transaction is committed.
// When it returns an error or panics the transaction is rolled back and the
// original error (or panic) is propagated. The connection is released exactly
// once in every case.
//
// Calling RunInTx with a context that already carries a transaction fails
// with ErrNestedTx.
func (t *Transactor) RunInTx(ctx context.Context, work func(ctx context.Context, tx *Tx) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return ErrNestedTx
	}

	start := time.Now()
	ok := false
	defer func() {
		t.sink.RecordOperation(TxOperation, time.Since(start), ok)
	}()

	lease, err := t.pool.Lease(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	if err := t.control(ctx, lease, "BEGIN"); err != nil {
		return err
	}

	tx := &Tx{exec: t.exec, lease: lease}

	completed := false
	defer func() {
		if completed {
			return
		}
		tx.finish()
		t.rollback(ctx, lease)
	}()

	werr := work(context.WithValue(ctx, txKey{}, tx), tx)
	completed = true
	tx.finish()

	if werr != nil {
		t.rollback(ctx, lease)
		return werr
	}

	if err := t.control(ctx, lease, "COMMIT"); err != nil {
		return err
	}
	ok = true
	return nil
}

// InTx is RunInTx for work that produces a value.
func InTx[T any](ctx context.Context, t *Transactor, work func(ctx context.Context, tx *Tx) (T, error)) (T, error) {
	var out T
	err := t.RunInTx(ctx, func(ctx context.Context, tx *Tx) error {
		v, err := work(ctx, tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// InTransaction reports whether ctx was derived inside RunInTx.
func InTransaction(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

func (t *Transactor) control(ctx context.Context, lease *Lease, sql string) error {
	conn, done, err := lease.conn()
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := lease.bind(ctx)
	defer cancel()

	if err := conn.Exec(ctx, sql); err != nil {
		if IsConnectionError(err) || conn.IsClosed() {
			lease.MarkBroken()
		}
		return err
	}
	return nil
}

func (t *Transactor) rollback(ctx context.Context, lease *Lease) {
	// A broken connection is closed on release and the server aborts the
	// transaction with it.
	if lease.Broken() {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	if err := t.control(ctx, lease, "ROLLBACK"); err != nil {
		t.log.Error("rollback failed, discarding connection", "conn_id", lease.ID(), "error", err)
		lease.MarkBroken()
	}
}
