package usecase

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"fluxocaixa/src/core/domain"
	"fluxocaixa/src/core/ports"
)

type fakeRepo struct {
	mu sync.Mutex

	list    []domain.Record
	get     domain.Record
	created *domain.TransacaoCriada
	saldo   domain.Record
	report  []domain.Record
	stats   domain.Record
	consol  domain.Record
	err     error

	gotFiltro   domain.FiltroTransacoes
	gotBatch    []domain.NovaTransacao
	gotPeriodo  *domain.Periodo
	gotTags     []string
	gotInterval domain.IntervaloDatas
	calls       int
}

func (f *fakeRepo) record() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeRepo) List(_ context.Context, filtro domain.FiltroTransacoes) ([]domain.Record, error) {
	f.record()
	f.gotFiltro = filtro
	return f.list, f.err
}

func (f *fakeRepo) Get(_ context.Context, _ int64) (domain.Record, error) {
	f.record()
	if f.get == nil && f.err == nil {
		return nil, domain.NewNotFoundError("transacao")
	}
	return f.get, f.err
}

func (f *fakeRepo) Create(_ context.Context, _ domain.NovaTransacao) (*domain.TransacaoCriada, error) {
	f.record()
	return f.created, f.err
}

func (f *fakeRepo) InsertBatch(_ context.Context, batch []domain.NovaTransacao) error {
	f.record()
	f.gotBatch = batch
	return f.err
}

func (f *fakeRepo) Saldo(context.Context) (domain.Record, error) {
	f.record()
	return f.saldo, f.err
}

func (f *fakeRepo) RelatorioMensal(_ context.Context, p *domain.Periodo) ([]domain.Record, error) {
	f.record()
	f.gotPeriodo = p
	return f.report, f.err
}

func (f *fakeRepo) BuscarPorTags(_ context.Context, tags []string) ([]domain.Record, error) {
	f.record()
	f.gotTags = tags
	return f.report, f.err
}

func (f *fakeRepo) EstatisticasPeriodo(_ context.Context, i domain.IntervaloDatas) (domain.Record, error) {
	f.record()
	f.gotInterval = i
	return f.stats, f.err
}

func (f *fakeRepo) ConsolidarMes(_ context.Context, p domain.Periodo) (domain.Record, error) {
	f.record()
	f.gotPeriodo = &p
	return f.consol, f.err
}

type recordedTx struct {
	tipo, status string
	valor        decimal.Decimal
}

type fakeMetrics struct {
	txs     []recordedTx
	balance *decimal.Decimal
}

func (m *fakeMetrics) RecordTransaction(tipo, status string, valor decimal.Decimal) {
	m.txs = append(m.txs, recordedTx{tipo: tipo, status: status, valor: valor})
}

func (m *fakeMetrics) SetBalance(saldo decimal.Decimal) {
	m.balance = &saldo
}

type fakeDB struct {
	probe *ports.DatabaseProbe
	err   error
	pool  ports.PoolSnapshot
}

func (d *fakeDB) Ping(context.Context) (*ports.DatabaseProbe, error) {
	return d.probe, d.err
}

func (d *fakeDB) PoolSnapshot() ports.PoolSnapshot {
	return d.pool
}
