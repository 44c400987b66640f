package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluxocaixa/src/core/domain"
	"fluxocaixa/src/infra/logger"
)

func newTransacaoService() (*TransacaoService, *fakeRepo, *fakeMetrics) {
	repo := &fakeRepo{}
	m := &fakeMetrics{}
	return NewTransacaoService(repo, m, logger.Discard()), repo, m
}

func TestTransacaoListAppliesDefaults(t *testing.T) {
	svc, repo, _ := newTransacaoService()
	repo.list = []domain.Record{{"id": int64(1)}}

	got, err := svc.List(context.Background(), domain.FiltroTransacoes{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, domain.StatusConfirmada, repo.gotFiltro.Status)
	assert.Equal(t, domain.DefaultListLimit, repo.gotFiltro.Limit)
}

func TestTransacaoListRejectsBadFilter(t *testing.T) {
	svc, repo, _ := newTransacaoService()

	_, err := svc.List(context.Background(), domain.FiltroTransacoes{Limit: 5000})
	assert.True(t, domain.IsValidationError(err))
	assert.Zero(t, repo.calls)
}

func TestTransacaoGet(t *testing.T) {
	svc, repo, _ := newTransacaoService()

	_, err := svc.Get(context.Background(), 0)
	assert.True(t, domain.IsValidationError(err))
	assert.Zero(t, repo.calls)

	_, err = svc.Get(context.Background(), 9)
	assert.True(t, domain.IsNotFound(err))

	repo.get = domain.Record{"id": int64(9)}
	got, err := svc.Get(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got["id"])
}

func TestTransacaoCreateRecordsMetrics(t *testing.T) {
	svc, repo, m := newTransacaoService()
	repo.created = &domain.TransacaoCriada{
		Transacao: domain.Record{"id": int64(3)},
		Saldo:     domain.Record{"saldo_atual": decimal.RequireFromString("120.50")},
	}

	got, err := svc.Create(context.Background(), domain.NovaTransacao{
		Descricao: "  Venda  ",
		Valor:     decimal.RequireFromString("20.50"),
		Tipo:      domain.TipoCredito,
	})
	require.NoError(t, err)
	assert.Same(t, repo.created, got)

	require.Len(t, m.txs, 1)
	assert.Equal(t, "C", m.txs[0].tipo)
	assert.Equal(t, domain.StatusConfirmada, m.txs[0].status)
	assert.True(t, m.txs[0].valor.Equal(decimal.RequireFromString("20.5")))

	require.NotNil(t, m.balance)
	assert.Equal(t, "120.5", m.balance.String())
}

func TestTransacaoCreateValidation(t *testing.T) {
	svc, repo, m := newTransacaoService()

	_, err := svc.Create(context.Background(), domain.NovaTransacao{
		Descricao: "x", Valor: decimal.NewFromInt(-1), Tipo: domain.TipoDebito,
	})
	assert.True(t, domain.IsValidationError(err))
	assert.Zero(t, repo.calls)
	assert.Empty(t, m.txs)
}

func TestTransacaoCreateRepoError(t *testing.T) {
	svc, repo, m := newTransacaoService()
	repo.err = errors.New("boom")

	_, err := svc.Create(context.Background(), domain.NovaTransacao{
		Descricao: "x", Valor: decimal.NewFromInt(1), Tipo: domain.TipoDebito,
	})
	assert.Same(t, repo.err, err)
	assert.Empty(t, m.txs)
	assert.Nil(t, m.balance)
}

func TestInsertBatch(t *testing.T) {
	svc, repo, m := newTransacaoService()

	batch := []domain.NovaTransacao{
		{Descricao: "a", Valor: decimal.NewFromInt(1), Tipo: domain.TipoCredito},
		{Descricao: "b", Valor: decimal.NewFromInt(2), Tipo: domain.TipoDebito},
	}
	n, err := svc.InsertBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, repo.gotBatch, 2)
	assert.Len(t, m.txs, 2)
}

func TestInsertBatchValidation(t *testing.T) {
	svc, repo, _ := newTransacaoService()
	ctx := context.Background()

	_, err := svc.InsertBatch(ctx, nil)
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.InsertBatch(ctx, make([]domain.NovaTransacao, domain.MaxBatchSize+1))
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.InsertBatch(ctx, []domain.NovaTransacao{
		{Descricao: "ok", Valor: decimal.NewFromInt(1), Tipo: domain.TipoCredito},
		{Descricao: "bad", Valor: decimal.NewFromInt(1), Tipo: "X"},
	})
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "transacoes[1].tipo", de.Field)

	assert.Zero(t, repo.calls)
}

func TestBalanceOf(t *testing.T) {
	tests := []struct {
		name string
		rec  domain.Record
		want string
		ok   bool
	}{
		{"decimal", domain.Record{"saldo_atual": decimal.NewFromInt(5)}, "5", true},
		{"float", domain.Record{"saldo": 2.5}, "2.5", true},
		{"string", domain.Record{"saldo_atual": "10.25"}, "10.25", true},
		{"missing", domain.Record{"total": 1}, "0", false},
		{"nil record", nil, "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := balanceOf(tt.rec)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
