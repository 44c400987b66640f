package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DatabaseProbe is the result of a database round trip.
type DatabaseProbe struct {
	ServerTime time.Time
	Version    string
}

// PoolSnapshot describes connection pool usage.
type PoolSnapshot struct {
	Max    int32 `json:"max"`
	Total  int32 `json:"total"`
	Idle   int32 `json:"idle"`
	Active int32 `json:"active"`
}

// Database is the health surface of the database adapter.
type Database interface {
	// Ping runs a round trip against the server.
	Ping(ctx context.Context) (*DatabaseProbe, error)

	// PoolSnapshot reports current pool usage.
	PoolSnapshot() PoolSnapshot
}

// LedgerMetrics receives business events.
type LedgerMetrics interface {
	RecordTransaction(tipo, status string, valor decimal.Decimal)
	SetBalance(saldo decimal.Decimal)
}
