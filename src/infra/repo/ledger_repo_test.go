package repo

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluxocaixa/src/core/domain"
	"fluxocaixa/src/infra/db"
	"fluxocaixa/src/infra/db/dbtest"
	"fluxocaixa/src/infra/logger"
)

type call struct {
	sql  string
	args []any
}

type fixture struct {
	repo    *LedgerRepository
	backend *dbtest.Backend
	sink    *dbtest.Sink

	mu    sync.Mutex
	calls []call
}

// newFixture answers statements containing a key of responses with the
// mapped result or error.
func newFixture(t *testing.T, responses map[string]any) *fixture {
	t.Helper()

	f := &fixture{backend: dbtest.New(), sink: &dbtest.Sink{}}
	f.backend.Handle(func(_ context.Context, sql string, args []any) (*db.Result, error) {
		for key, resp := range responses {
			if !strings.Contains(sql, key) {
				continue
			}
			f.mu.Lock()
			f.calls = append(f.calls, call{sql: sql, args: args})
			f.mu.Unlock()

			switch v := resp.(type) {
			case error:
				return nil, v
			case *db.Result:
				return v, nil
			}
		}
		return nil, dbtest.ErrSkip
	})

	log := logger.Discard()
	pool, err := db.NewPool(f.backend, db.PoolConfig{MaxSize: 2}, f.sink, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	exec := db.NewExecutor(pool, f.sink, log)
	f.repo = NewLedgerRepository(exec, db.NewTransactor(pool, exec, f.sink, log), log)
	return f
}

func (f *fixture) lastCall(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func rows(r ...db.Row) *db.Result {
	return &db.Result{Rows: r, RowCount: int64(len(r))}
}

func TestListAppliesFilters(t *testing.T) {
	f := newFixture(t, map[string]any{
		"FROM transacoes t": rows(db.Row{"id": int64(1)}, db.Row{"id": int64(2)}),
	})

	got, err := f.repo.List(context.Background(), domain.FiltroTransacoes{
		Status: "confirmada", Tipo: domain.TipoCredito, Limit: 10, Offset: 20,
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	c := f.lastCall(t)
	assert.Contains(t, c.sql, "WHERE t.status = $1 AND t.tipo = $2")
	assert.Contains(t, c.sql, "ORDER BY t.data_transacao DESC LIMIT 10 OFFSET 20")
	assert.Equal(t, []any{"confirmada", "C"}, c.args)

	samples := f.sink.SamplesFor(OpListTransacoes)
	require.Len(t, samples, 1)
	assert.True(t, samples[0].Success)
}

func TestListWithoutTipo(t *testing.T) {
	f := newFixture(t, map[string]any{"FROM transacoes t": rows()})

	_, err := f.repo.List(context.Background(), domain.FiltroTransacoes{Status: "pendente", Limit: 50})
	require.NoError(t, err)

	c := f.lastCall(t)
	assert.NotContains(t, c.sql, "t.tipo =")
	assert.Equal(t, []any{"pendente"}, c.args)
}

func TestGet(t *testing.T) {
	f := newFixture(t, map[string]any{
		"WHERE t.id = $1": rows(db.Row{"id": int64(7), "descricao": "Salario"}),
	})

	got, err := f.repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Salario", got["descricao"])
	assert.Equal(t, []any{int64(7)}, f.lastCall(t).args)
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(t, map[string]any{"WHERE t.id = $1": rows()})

	_, err := f.repo.Get(context.Background(), 404)
	assert.True(t, domain.IsNotFound(err))
}

func TestCreateRunsInOneTransaction(t *testing.T) {
	f := newFixture(t, map[string]any{
		"INSERT INTO transacoes": rows(db.Row{"id": int64(10), "tipo": "C"}),
		"vw_saldo_atual":         rows(db.Row{"saldo_atual": decimal.RequireFromString("250.00")}),
	})

	n := domain.NovaTransacao{
		Descricao: "Venda",
		Valor:     decimal.RequireFromString("250.00"),
		Tipo:      domain.TipoCredito,
		Tags:      []string{"loja"},
	}
	got, err := f.repo.Create(context.Background(), n)
	require.NoError(t, err)

	assert.Equal(t, int64(10), got.Transacao["id"])
	assert.Equal(t, "250", got.Saldo["saldo_atual"].(decimal.Decimal).String())

	stmts := f.backend.Statements()
	require.Len(t, stmts, 4)
	assert.Equal(t, "BEGIN", stmts[0])
	assert.Contains(t, stmts[1], "INSERT INTO transacoes")
	assert.Contains(t, stmts[2], "vw_saldo_atual")
	assert.Equal(t, "COMMIT", stmts[3])

	f.mu.Lock()
	insertArgs := f.calls[0].args
	f.mu.Unlock()
	require.Len(t, insertArgs, 8)
	assert.Equal(t, "Venda", insertArgs[0])
	assert.Equal(t, "C", insertArgs[2])
	assert.Equal(t, domain.StatusConfirmada, insertArgs[7])

	assert.Len(t, f.sink.SamplesFor(db.TxOperation), 1)
	assert.Len(t, f.sink.SamplesFor(OpCreateTransacao), 1)
}

func TestCreateRollsBackWhenBalanceFails(t *testing.T) {
	viewErr := &pgconn.PgError{Code: "42P01", Message: `relation "vw_saldo_atual" does not exist`}
	f := newFixture(t, map[string]any{
		"INSERT INTO transacoes": rows(db.Row{"id": int64(10)}),
		"vw_saldo_atual":         viewErr,
	})

	_, err := f.repo.Create(context.Background(), domain.NovaTransacao{
		Descricao: "Venda", Valor: decimal.NewFromInt(1), Tipo: domain.TipoCredito,
	})
	assert.Same(t, viewErr, err)

	stmts := f.backend.Statements()
	assert.Equal(t, "ROLLBACK", stmts[len(stmts)-1])
}

func TestCreateMapsUniqueViolationToConflict(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "transacoes_uuid_key"`}
	f := newFixture(t, map[string]any{"INSERT INTO transacoes": dup})

	_, err := f.repo.Create(context.Background(), domain.NovaTransacao{
		Descricao: "Venda", Valor: decimal.NewFromInt(1), Tipo: domain.TipoCredito,
	})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.Contains(t, err.Error(), "transacoes_uuid_key")

	stmts := f.backend.Statements()
	assert.Equal(t, "ROLLBACK", stmts[len(stmts)-1])
}

func TestInsertBatchSendsJSON(t *testing.T) {
	f := newFixture(t, map[string]any{"sp_inserir_lote_transacoes": rows()})

	batch := []domain.NovaTransacao{
		{Descricao: "A", Valor: decimal.RequireFromString("10.50"), Tipo: domain.TipoCredito},
		{Descricao: "B", Valor: decimal.RequireFromString("3"), Tipo: domain.TipoDebito, Tags: []string{"x"}},
	}
	require.NoError(t, f.repo.InsertBatch(context.Background(), batch))

	c := f.lastCall(t)
	require.Len(t, c.args, 1)

	payload := c.args[0].(string)
	assert.Contains(t, payload, `"valor":10.5,`)
	assert.Contains(t, payload, `"valor":3,`)

	var sent []map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &sent))
	require.Len(t, sent, 2)
	assert.Equal(t, "A", sent[0]["descricao"])
	assert.Equal(t, 10.5, sent[0]["valor"])
	assert.Equal(t, "D", sent[1]["tipo"])
	assert.NotContains(t, sent[0], "tags")
}

func TestRelatorioMensal(t *testing.T) {
	f := newFixture(t, map[string]any{"vw_relatorio_mensal": rows(db.Row{"mes": "2024-03-01"})})

	_, err := f.repo.RelatorioMensal(context.Background(), nil)
	require.NoError(t, err)
	c := f.lastCall(t)
	assert.NotContains(t, c.sql, "WHERE")
	assert.Contains(t, c.sql, "ORDER BY mes DESC, tipo, categoria")

	got, err := f.repo.RelatorioMensal(context.Background(), &domain.Periodo{Mes: 3, Ano: 2024})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	c = f.lastCall(t)
	assert.Contains(t, c.sql, "EXTRACT(MONTH FROM mes) = $1 AND EXTRACT(YEAR FROM mes) = $2")
	assert.Equal(t, []any{3, 2024}, c.args)
}

func TestReportFunctions(t *testing.T) {
	f := newFixture(t, map[string]any{
		"fn_buscar_por_tags":      rows(db.Row{"id": int64(1)}),
		"fn_estatisticas_periodo": rows(db.Row{"total_creditos": decimal.NewFromInt(5)}),
		"sp_consolidar_mes":       rows(db.Row{"p_total": decimal.NewFromInt(9)}),
		"SELECT * FROM vw_saldo":  rows(db.Row{"saldo_atual": decimal.NewFromInt(1)}),
	})
	ctx := context.Background()

	found, err := f.repo.BuscarPorTags(ctx, []string{"casa", "mercado"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, []any{[]string{"casa", "mercado"}}, f.lastCall(t).args)

	inicio := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fim := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	stats, err := f.repo.EstatisticasPeriodo(ctx, domain.IntervaloDatas{Inicio: inicio, Fim: fim})
	require.NoError(t, err)
	assert.Contains(t, stats, "total_creditos")
	assert.Equal(t, []any{inicio, fim}, f.lastCall(t).args)

	out, err := f.repo.ConsolidarMes(ctx, domain.Periodo{Mes: 2, Ano: 2024})
	require.NoError(t, err)
	assert.Contains(t, out, "p_total")
	assert.Equal(t, []any{2024, 2}, f.lastCall(t).args)

	saldo, err := f.repo.Saldo(ctx)
	require.NoError(t, err)
	assert.Contains(t, saldo, "saldo_atual")
}

func TestBackendErrorsPassThrough(t *testing.T) {
	want := &pgconn.PgError{Code: "22007", Message: "invalid date"}
	f := newFixture(t, map[string]any{"fn_estatisticas_periodo": want})

	_, err := f.repo.EstatisticasPeriodo(context.Background(), domain.IntervaloDatas{
		Inicio: time.Now(), Fim: time.Now(),
	})
	assert.Same(t, want, err)

	samples := f.sink.SamplesFor(OpEstatisticasPeriodo)
	require.Len(t, samples, 1)
	assert.False(t, samples[0].Success)
}
