package usecase

import (
	"context"
	"log/slog"

	"fluxocaixa/src/core/domain"
	"fluxocaixa/src/core/ports"
)

// RelatorioService handles balance, report and consolidation queries.
type RelatorioService struct {
	repo    ports.RelatorioRepository
	metrics ports.LedgerMetrics
	log     *slog.Logger
}

func NewRelatorioService(repo ports.RelatorioRepository, metrics ports.LedgerMetrics, log *slog.Logger) *RelatorioService {
	return &RelatorioService{repo: repo, metrics: metrics, log: log}
}

// Saldo returns the current balance and refreshes the balance gauge.
func (s *RelatorioService) Saldo(ctx context.Context) (domain.Record, error) {
	saldo, err := s.repo.Saldo(ctx)
	if err != nil {
		return nil, err
	}
	if v, ok := balanceOf(saldo); ok {
		s.metrics.SetBalance(v)
	}
	return saldo, nil
}

// RelatorioMensal returns the monthly report. mes and ano filter it only
// when both are given.
func (s *RelatorioService) RelatorioMensal(ctx context.Context, mes, ano *int) ([]domain.Record, error) {
	switch {
	case mes == nil && ano == nil:
		return s.repo.RelatorioMensal(ctx, nil)
	case mes == nil:
		return nil, domain.NewValidationError("mes", "is required when ano is given")
	case ano == nil:
		return nil, domain.NewValidationError("ano", "is required when mes is given")
	}

	p := domain.Periodo{Mes: *mes, Ano: *ano}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.repo.RelatorioMensal(ctx, &p)
}

// BuscarPorTags searches transactions by a comma separated tag list.
func (s *RelatorioService) BuscarPorTags(ctx context.Context, csv string) ([]domain.Record, error) {
	tags := domain.ParseTags(csv)
	if len(tags) == 0 {
		return nil, domain.NewValidationError("tags", "is required")
	}
	return s.repo.BuscarPorTags(ctx, tags)
}

// EstatisticasPeriodo returns aggregated figures for a date range.
func (s *RelatorioService) EstatisticasPeriodo(ctx context.Context, i domain.IntervaloDatas) (domain.Record, error) {
	if err := i.Validate(); err != nil {
		return nil, err
	}
	return s.repo.EstatisticasPeriodo(ctx, i)
}

// ConsolidarMes runs the monthly consolidation.
func (s *RelatorioService) ConsolidarMes(ctx context.Context, p domain.Periodo) (domain.Record, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out, err := s.repo.ConsolidarMes(ctx, p)
	if err != nil {
		return nil, err
	}
	s.log.Info("mes consolidado", "ano", p.Ano, "mes", p.Mes)
	return out, nil
}
