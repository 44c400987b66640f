package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluxocaixa/src/core/domain"
	"fluxocaixa/src/infra/logger"
)

func newRelatorioService() (*RelatorioService, *fakeRepo, *fakeMetrics) {
	repo := &fakeRepo{}
	m := &fakeMetrics{}
	return NewRelatorioService(repo, m, logger.Discard()), repo, m
}

func intp(v int) *int { return &v }

func TestSaldoUpdatesGauge(t *testing.T) {
	svc, repo, m := newRelatorioService()
	repo.saldo = domain.Record{"saldo_atual": decimal.RequireFromString("-3.10")}

	got, err := svc.Saldo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repo.saldo, got)
	require.NotNil(t, m.balance)
	assert.Equal(t, "-3.1", m.balance.String())
}

func TestRelatorioMensalFilters(t *testing.T) {
	svc, repo, _ := newRelatorioService()
	ctx := context.Background()

	_, err := svc.RelatorioMensal(ctx, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, repo.gotPeriodo)

	_, err = svc.RelatorioMensal(ctx, intp(4), intp(2024))
	require.NoError(t, err)
	require.NotNil(t, repo.gotPeriodo)
	assert.Equal(t, domain.Periodo{Mes: 4, Ano: 2024}, *repo.gotPeriodo)

	_, err = svc.RelatorioMensal(ctx, intp(4), nil)
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.RelatorioMensal(ctx, nil, intp(2024))
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.RelatorioMensal(ctx, intp(13), intp(2024))
	assert.True(t, domain.IsValidationError(err))
}

func TestBuscarPorTags(t *testing.T) {
	svc, repo, _ := newRelatorioService()

	_, err := svc.BuscarPorTags(context.Background(), " , ")
	assert.True(t, domain.IsValidationError(err))
	assert.Zero(t, repo.calls)

	_, err = svc.BuscarPorTags(context.Background(), "casa, mercado")
	require.NoError(t, err)
	assert.Equal(t, []string{"casa", "mercado"}, repo.gotTags)
}

func TestEstatisticasPeriodo(t *testing.T) {
	svc, repo, _ := newRelatorioService()
	inicio := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.EstatisticasPeriodo(context.Background(), domain.IntervaloDatas{Inicio: inicio, Fim: inicio.AddDate(0, 0, -1)})
	assert.True(t, domain.IsValidationError(err))

	i := domain.IntervaloDatas{Inicio: inicio, Fim: inicio.AddDate(0, 1, 0)}
	_, err = svc.EstatisticasPeriodo(context.Background(), i)
	require.NoError(t, err)
	assert.Equal(t, i, repo.gotInterval)
}

func TestConsolidarMes(t *testing.T) {
	svc, repo, _ := newRelatorioService()
	repo.consol = domain.Record{"p_total_transacoes": int64(3)}

	_, err := svc.ConsolidarMes(context.Background(), domain.Periodo{Mes: 0, Ano: 2024})
	assert.True(t, domain.IsValidationError(err))

	got, err := svc.ConsolidarMes(context.Background(), domain.Periodo{Mes: 2, Ano: 2024})
	require.NoError(t, err)
	assert.Equal(t, repo.consol, got)
}
