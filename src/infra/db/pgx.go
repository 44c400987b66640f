package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/shopspring/decimal"
)

// PgxConnector opens PostgreSQL connections with pgx.
type PgxConnector struct {
	cfg *pgx.ConnConfig
}

// NewPgxConnector parses dsn. When log has debug enabled every statement is
// traced through it.
func NewPgxConnector(dsn string, log *slog.Logger) (*PgxConnector, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if log != nil && log.Enabled(context.Background(), slog.LevelDebug) {
		cfg.Tracer = &tracelog.TraceLog{
			Logger:   slogTracer(log.With("component", "pgx")),
			LogLevel: tracelog.LogLevelDebug,
		}
	}

	return &PgxConnector{cfg: cfg}, nil
}

// Connect implements Connector.
func (c *PgxConnector) Connect(ctx context.Context) (Conn, error) {
	conn, err := pgx.ConnectConfig(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	return &pgxConn{conn: conn}, nil
}

func slogTracer(log *slog.Logger) tracelog.Logger {
	return tracelog.LoggerFunc(func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		attrs := make([]slog.Attr, 0, len(data))
		for k, v := range data {
			attrs = append(attrs, slog.Any(k, v))
		}
		log.LogAttrs(ctx, slogLevel(level), msg, attrs...)
	})
}

func slogLevel(level tracelog.LogLevel) slog.Level {
	switch level {
	case tracelog.LogLevelError:
		return slog.LevelError
	case tracelog.LogLevelWarn:
		return slog.LevelWarn
	case tracelog.LogLevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

type pgxConn struct {
	conn *pgx.Conn
}

func (c *pgxConn) Query(ctx context.Context, sql string, args ...any) (*Result, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Rows:     make([]Row, len(maps)),
		RowCount: rows.CommandTag().RowsAffected(),
	}
	for i, m := range maps {
		for k, v := range m {
			m[k] = normalizeValue(v)
		}
		res.Rows[i] = Row(m)
	}
	return res, nil
}

func (c *pgxConn) Exec(ctx context.Context, sql string) error {
	_, err := c.conn.Exec(ctx, sql)
	return err
}

func (c *pgxConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

func (c *pgxConn) IsClosed() bool {
	return c.conn.IsClosed()
}

// normalizeValue turns pgx's wire types into the types callers work with:
// UUIDs become strings and NUMERIC becomes decimal.Decimal.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		if x.NaN || x.InfinityModifier != pgtype.Finite || x.Int == nil {
			f, err := x.Float64Value()
			if err != nil {
				return nil
			}
			return f.Float64
		}
		return decimal.NewFromBigInt(x.Int, x.Exp)
	}
	return v
}
