// Package usecase contains the application workflows. Services validate
// input, call the repository ports and report business metrics.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"fluxocaixa/src/core/domain"
	"fluxocaixa/src/core/ports"
)

// TransacaoService handles ledger transaction workflows.
type TransacaoService struct {
	repo    ports.TransacaoRepository
	metrics ports.LedgerMetrics
	log     *slog.Logger
}

func NewTransacaoService(repo ports.TransacaoRepository, metrics ports.LedgerMetrics, log *slog.Logger) *TransacaoService {
	return &TransacaoService{repo: repo, metrics: metrics, log: log}
}

// List returns transactions matching f after applying its defaults.
func (s *TransacaoService) List(ctx context.Context, f domain.FiltroTransacoes) ([]domain.Record, error) {
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f)
}

// Get returns a single transaction.
func (s *TransacaoService) Get(ctx context.Context, id int64) (domain.Record, error) {
	if id <= 0 {
		return nil, domain.NewValidationError("id", "must be a positive integer")
	}
	return s.repo.Get(ctx, id)
}

// Create validates and stores a transaction, then updates the ledger
// metrics with the new entry and balance.
func (s *TransacaoService) Create(ctx context.Context, n domain.NovaTransacao) (*domain.TransacaoCriada, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransaction(string(n.Tipo), domain.StatusConfirmada, n.Valor)
	if saldo, ok := balanceOf(created.Saldo); ok {
		s.metrics.SetBalance(saldo)
	}

	s.log.Info("transacao criada",
		"id", created.Transacao["id"],
		"tipo", n.Tipo,
		"valor", n.Valor.String(),
	)
	return created, nil
}

// InsertBatch validates every entry and submits the batch in one call.
// It returns the number of entries submitted.
func (s *TransacaoService) InsertBatch(ctx context.Context, batch []domain.NovaTransacao) (int, error) {
	if len(batch) == 0 {
		return 0, domain.NewValidationError("transacoes", "must be a non-empty array")
	}
	if len(batch) > domain.MaxBatchSize {
		return 0, domain.NewValidationError("transacoes", fmt.Sprintf("must not exceed %d entries", domain.MaxBatchSize))
	}

	for i := range batch {
		if err := batch[i].Validate(); err != nil {
			var de *domain.DomainError
			if errors.As(err, &de) {
				de.Field = fmt.Sprintf("transacoes[%d].%s", i, de.Field)
			}
			return 0, err
		}
	}

	if err := s.repo.InsertBatch(ctx, batch); err != nil {
		return 0, err
	}

	for _, n := range batch {
		s.metrics.RecordTransaction(string(n.Tipo), domain.StatusConfirmada, n.Valor)
	}
	return len(batch), nil
}

// balanceOf reads the balance column of a vw_saldo_atual row.
func balanceOf(r domain.Record) (decimal.Decimal, bool) {
	for _, key := range []string{"saldo_atual", "saldo"} {
		switch v := r[key].(type) {
		case decimal.Decimal:
			return v, true
		case float64:
			return decimal.NewFromFloat(v), true
		case int64:
			return decimal.NewFromInt(v), true
		case string:
			if d, err := decimal.NewFromString(v); err == nil {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}
