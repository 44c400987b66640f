package db_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluxocaixa/src/infra/db"
	"fluxocaixa/src/infra/db/dbtest"
)

func newExecutor(t *testing.T, cfg db.PoolConfig) (*db.Executor, *db.Pool, *dbtest.Backend, *dbtest.Sink) {
	t.Helper()
	pool, backend, sink := newPool(t, cfg)
	return db.NewExecutor(pool, sink, nil), pool, backend, sink
}

func TestExecuteSuccess(t *testing.T) {
	exec, pool, backend, sink := newExecutor(t, db.PoolConfig{MaxSize: 2})
	backend.Set("a", 1)

	res, err := exec.Execute(context.Background(), db.NewStatement("get", "GET a"))
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, 1, res.First()["value"])
	assert.Equal(t, int64(1), res.RowCount)

	samples := sink.Samples()
	require.Len(t, samples, 1)
	assert.Equal(t, "get", samples[0].Operation)
	assert.True(t, samples[0].Success)

	assert.Equal(t, 0, pool.ActiveLeases())
	assert.Equal(t, int32(1), pool.Stats().Idle)
}

func TestExecutePassesBackendErrorThrough(t *testing.T) {
	exec, pool, backend, sink := newExecutor(t, db.PoolConfig{MaxSize: 1})

	want := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	backend.Handle(func(_ context.Context, sql string, _ []any) (*db.Result, error) {
		if sql == "INSERT dup" {
			return nil, want
		}
		return nil, dbtest.ErrSkip
	})

	_, err := exec.Execute(context.Background(), db.NewStatement("insert", "INSERT dup"))
	assert.Same(t, want, err)

	samples := sink.Samples()
	require.Len(t, samples, 1)
	assert.False(t, samples[0].Success)

	// A statement error does not cost the connection.
	assert.Equal(t, 0, pool.ActiveLeases())
	_, err = exec.Execute(context.Background(), db.NewStatement("get", "GET a"))
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Dials())
}

func TestExecuteRecordsLeaseFailure(t *testing.T) {
	exec, pool, _, sink := newExecutor(t, db.PoolConfig{MaxSize: 1, ConnectionTimeout: 50 * time.Millisecond})

	held, err := pool.Lease(context.Background())
	require.NoError(t, err)
	defer held.Release()

	_, err = exec.Execute(context.Background(), db.NewStatement("get", "GET a"))
	require.ErrorIs(t, err, db.ErrPoolExhausted)

	samples := sink.Samples()
	require.Len(t, samples, 1)
	assert.Equal(t, "get", samples[0].Operation)
	assert.False(t, samples[0].Success)
	assert.GreaterOrEqual(t, samples[0].Duration, 40*time.Millisecond)
}

func TestExecuteOnSuppliedLease(t *testing.T) {
	exec, pool, backend, sink := newExecutor(t, db.PoolConfig{MaxSize: 2})
	ctx := context.Background()

	lease, err := pool.Lease(ctx)
	require.NoError(t, err)

	_, err = exec.ExecuteOn(ctx, lease, db.NewStatement("put", "PUT a", 1))
	require.NoError(t, err)
	_, err = exec.ExecuteOn(ctx, lease, db.NewStatement("fail", "FAIL"))
	require.Error(t, err)

	samples := sink.Samples()
	require.Len(t, samples, 2)
	assert.True(t, samples[0].Success)
	assert.False(t, samples[1].Success)

	assert.Equal(t, 1, pool.ActiveLeases(), "ExecuteOn must not release the lease")
	assert.Equal(t, 1, backend.Dials())

	lease.Release()
	_, err = exec.ExecuteOn(ctx, lease, db.NewStatement("get", "GET a"))
	require.ErrorIs(t, err, db.ErrLeaseReleased)
	assert.Len(t, sink.Samples(), 3)
}

func TestExecuteDiscardsBrokenConnection(t *testing.T) {
	exec, pool, backend, _ := newExecutor(t, db.PoolConfig{MaxSize: 1})
	ctx := context.Background()

	_, err := exec.Execute(ctx, db.NewStatement("break", "BREAK"))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	require.Eventually(t, func() bool { return pool.Stats().Total == 0 }, time.Second, 5*time.Millisecond)

	_, err = exec.Execute(ctx, db.NewStatement("get", "GET a"))
	require.NoError(t, err)
	assert.Equal(t, 2, backend.Dials())
}

func TestStatementArgsAreCopied(t *testing.T) {
	exec, _, backend, _ := newExecutor(t, db.PoolConfig{MaxSize: 1})

	args := []any{"first"}
	stmt := db.NewStatement("put", "PUT k", args...)
	args[0] = "changed"

	_, err := exec.Execute(context.Background(), stmt)
	require.NoError(t, err)

	v, ok := backend.Get("k")
	require.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestExecuteParallelNeverSharesConnections(t *testing.T) {
	exec, pool, backend, sink := newExecutor(t, db.PoolConfig{MaxSize: 4, ConnectionTimeout: 5 * time.Second})

	var wg sync.WaitGroup
	for n := 0; n < 50; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := exec.Execute(context.Background(), db.NewStatement("sleep", "SLEEP 2ms"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, backend.Overlaps())
	assert.LessOrEqual(t, backend.Dials(), 4)
	assert.Len(t, sink.SamplesFor("sleep"), 50)
	assert.Equal(t, 0, pool.ActiveLeases())
}
