// Package db provides PostgreSQL connection pooling, statement execution and
// transaction management.
//
// This package is responsible for:
//   - a bounded connection pool with lease timeouts and graceful shutdown
//   - single statement execution with per-operation instrumentation
//   - BEGIN/COMMIT/ROLLBACK around statement sequences on one connection
//
// Example usage:
//
//	pg, err := db.New(ctx, cfg.Database, metrics, log)
//	if err != nil {
//	    return err
//	}
//	defer pg.Close(ctx)
//
//	res, err := pg.Executor.Execute(ctx, db.NewStatement("get_saldo", "SELECT * FROM vw_saldo_atual"))
//
//	err = pg.Transactor.RunInTx(ctx, func(ctx context.Context, tx *db.Tx) error {
//	    _, err := tx.Execute(ctx, insert)
//	    return err
//	})
//
// Backend errors are returned unmodified. Pool failures are reported as
// ErrPoolExhausted or ErrPoolUnavailable.
package db
