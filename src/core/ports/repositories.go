// Package ports defines interfaces (ports) that connect core domain to infrastructure.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern.
//
// Ports are defined here in the core layer, while implementations (adapters)
// live in src/infra. This ensures the core has no dependency on infrastructure.
package ports

import (
	"context"

	"fluxocaixa/src/core/domain"
)

// TransacaoRepository stores and reads ledger transactions.
type TransacaoRepository interface {
	// List returns transactions matching f, newest first.
	List(ctx context.Context, f domain.FiltroTransacoes) ([]domain.Record, error)

	// Get returns one transaction with its category and user names.
	// Returns domain.ErrNotFound when id does not exist.
	Get(ctx context.Context, id int64) (domain.Record, error)

	// Create stores n and reads the resulting balance atomically.
	Create(ctx context.Context, n domain.NovaTransacao) (*domain.TransacaoCriada, error)

	// InsertBatch hands the whole batch to the database in one call.
	InsertBatch(ctx context.Context, batch []domain.NovaTransacao) error
}

// RelatorioRepository runs the reporting views and functions.
type RelatorioRepository interface {
	Saldo(ctx context.Context) (domain.Record, error)

	// RelatorioMensal returns every month, or only p when it is not nil.
	RelatorioMensal(ctx context.Context, p *domain.Periodo) ([]domain.Record, error)

	BuscarPorTags(ctx context.Context, tags []string) ([]domain.Record, error)
	EstatisticasPeriodo(ctx context.Context, i domain.IntervaloDatas) (domain.Record, error)

	// ConsolidarMes returns the procedure output parameters, or nil.
	ConsolidarMes(ctx context.Context, p domain.Periodo) (domain.Record, error)
}
