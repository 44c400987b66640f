package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fluxocaixa/src/core/ports"
	"fluxocaixa/src/infra/config"
)

var _ ports.Database = (*Postgres)(nil)

// Postgres owns the connection pool and the executor and transactor built
// on it. There is one per process.
type Postgres struct {
	Pool       *Pool
	Executor   *Executor
	Transactor *Transactor

	grace time.Duration
	log   *slog.Logger
}

// New opens a PostgreSQL-backed pool and verifies it can reach the server.
// A failed verification is returned as an error and nothing is left open.
func New(ctx context.Context, cfg config.DatabaseConfig, sink Sink, log *slog.Logger) (*Postgres, error) {
	connector, err := NewPgxConnector(cfg.DSN(), log)
	if err != nil {
		return nil, err
	}
	return Open(ctx, connector, cfg, sink, log)
}

// Open is New with an explicit connector.
func Open(ctx context.Context, connector Connector, cfg config.DatabaseConfig, sink Sink, log *slog.Logger) (*Postgres, error) {
	pool, err := NewPool(connector, PoolConfig{
		MaxSize:           int32(cfg.PoolMax),
		IdleTimeout:       cfg.IdleTimeout(),
		ConnectionTimeout: cfg.ConnectionTimeout(),
	}, sink, log)
	if err != nil {
		return nil, err
	}

	probe, err := pool.VerifyConnectivity(ctx)
	if err != nil {
		_ = pool.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to verify database connectivity: %w", err)
	}

	log.Info("database connection established",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Name,
		"pool_max", cfg.PoolMax,
		"server_time", probe.Now,
		"server_version", probe.Version,
	)

	exec := NewExecutor(pool, sink, log, WithSlowThreshold(cfg.SlowQueryThreshold))
	return &Postgres{
		Pool:       pool,
		Executor:   exec,
		Transactor: NewTransactor(pool, exec, sink, log),
		grace:      cfg.ShutdownGrace,
		log:        log,
	}, nil
}

// Close shuts the pool down, giving in-flight work the configured grace
// period. Call this during graceful shutdown.
func (p *Postgres) Close(ctx context.Context) error {
	if p.grace > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.grace)
		defer cancel()
	}

	if err := p.Pool.Shutdown(ctx); err != nil {
		p.log.Error("database pool shutdown incomplete", "error", err)
		return err
	}
	p.log.Info("database connection closed")
	return nil
}

// Ping runs a connectivity probe.
func (p *Postgres) Ping(ctx context.Context) (*ports.DatabaseProbe, error) {
	probe, err := p.Pool.VerifyConnectivity(ctx)
	if err != nil {
		return nil, err
	}
	return &ports.DatabaseProbe{ServerTime: probe.Now, Version: probe.Version}, nil
}

// PoolSnapshot reports current pool usage.
func (p *Postgres) PoolSnapshot() ports.PoolSnapshot {
	s := p.Pool.Stats()
	return ports.PoolSnapshot{Max: s.Max, Total: s.Total, Idle: s.Idle, Active: s.Active}
}
