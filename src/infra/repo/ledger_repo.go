package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"fluxocaixa/src/core/domain"
	"fluxocaixa/src/core/ports"
	"fluxocaixa/src/infra/db"
)

// Operation labels reported with every statement.
const (
	OpListTransacoes      = "list_transacoes"
	OpGetTransacao        = "get_transacao"
	OpCreateTransacao     = "create_transacao"
	OpInsertLote          = "insert_lote"
	OpGetSaldo            = "get_saldo"
	OpRelatorioMensal     = "relatorio_mensal"
	OpBuscarPorTags       = "buscar_por_tags"
	OpEstatisticasPeriodo = "estatisticas_periodo"
	OpConsolidarMes       = "consolidar_mes"
)

// psql builds statements with PostgreSQL positional placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	getTransacaoSQL = `
		SELECT t.*, c.nome AS categoria, u.nome AS usuario, u.email AS usuario_email
		FROM transacoes t
		LEFT JOIN categorias c ON t.categoria_id = c.id
		LEFT JOIN usuarios u ON t.usuario_id = u.id
		WHERE t.id = $1
	`

	insertTransacaoSQL = `
		INSERT INTO transacoes (descricao, valor, tipo, categoria_id, usuario_id, observacoes, tags, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *
	`

	saldoSQL         = `SELECT * FROM vw_saldo_atual`
	insertLoteSQL    = `CALL sp_inserir_lote_transacoes($1)`
	consolidarMesSQL = `CALL sp_consolidar_mes($1, $2, NULL, NULL, NULL, NULL)`
	buscarPorTagsSQL = `SELECT * FROM fn_buscar_por_tags($1)`
	estatisticasSQL  = `SELECT * FROM fn_estatisticas_periodo($1, $2)`
)

// LedgerRepository implements the transaction and report ports on top of
// the db executor and transactor.
type LedgerRepository struct {
	exec *db.Executor
	tx   *db.Transactor
	log  *slog.Logger
}

var (
	_ ports.TransacaoRepository = (*LedgerRepository)(nil)
	_ ports.RelatorioRepository = (*LedgerRepository)(nil)
)

// NewLedgerRepository constructs a repository.
func NewLedgerRepository(exec *db.Executor, tx *db.Transactor, log *slog.Logger) *LedgerRepository {
	return &LedgerRepository{
		exec: exec,
		tx:   tx,
		log:  log,
	}
}

func records(res *db.Result) []domain.Record {
	out := make([]domain.Record, len(res.Rows))
	for i, row := range res.Rows {
		out[i] = domain.Record(row)
	}
	return out
}

func (r *LedgerRepository) query(ctx context.Context, op string, b sq.SelectBuilder) ([]domain.Record, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}
	res, err := r.exec.Execute(ctx, db.NewStatement(op, sql, args...))
	if err != nil {
		return nil, err
	}
	return records(res), nil
}

// Transactions

func (r *LedgerRepository) List(ctx context.Context, f domain.FiltroTransacoes) ([]domain.Record, error) {
	b := psql.
		Select(
			"t.id", "t.uuid", "t.descricao", "t.valor", "t.tipo", "t.data_transacao",
			"t.status", "t.observacoes", "t.tags", "c.nome AS categoria", "u.nome AS usuario",
		).
		From("transacoes t").
		LeftJoin("categorias c ON t.categoria_id = c.id").
		LeftJoin("usuarios u ON t.usuario_id = u.id").
		Where(sq.Eq{"t.status": f.Status})

	if f.Tipo != "" {
		b = b.Where(sq.Eq{"t.tipo": string(f.Tipo)})
	}

	b = b.OrderBy("t.data_transacao DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))

	return r.query(ctx, OpListTransacoes, b)
}

func (r *LedgerRepository) Get(ctx context.Context, id int64) (domain.Record, error) {
	res, err := r.exec.Execute(ctx, db.NewStatement(OpGetTransacao, getTransacaoSQL, id))
	if err != nil {
		return nil, err
	}
	row := res.First()
	if row == nil {
		return nil, domain.NewNotFoundError("transacao")
	}
	return domain.Record(row), nil
}

// Create inserts the transaction and reads the balance on the same
// connection, so the balance reflects the insert.
func (r *LedgerRepository) Create(ctx context.Context, n domain.NovaTransacao) (*domain.TransacaoCriada, error) {
	return db.InTx(ctx, r.tx, func(ctx context.Context, tx *db.Tx) (*domain.TransacaoCriada, error) {
		inserted, err := tx.Execute(ctx, db.NewStatement(OpCreateTransacao, insertTransacaoSQL,
			n.Descricao, n.Valor, string(n.Tipo), n.CategoriaID, n.UsuarioID, n.Observacoes, n.Tags,
			domain.StatusConfirmada,
		))
		if err != nil {
			return nil, conflictOr(err)
		}
		row := inserted.First()
		if row == nil {
			return nil, errors.New("insert transacao returned no row")
		}

		saldo, err := tx.Execute(ctx, db.NewStatement(OpGetSaldo, saldoSQL))
		if err != nil {
			return nil, err
		}

		return &domain.TransacaoCriada{
			Transacao: domain.Record(row),
			Saldo:     domain.Record(saldo.First()),
		}, nil
	})
}

// loteItem is one element of the sp_inserir_lote_transacoes payload. The
// procedure casts valor with ::DECIMAL, so it goes out as a JSON number.
type loteItem struct {
	Descricao   string      `json:"descricao"`
	Valor       json.Number `json:"valor"`
	Tipo        string      `json:"tipo"`
	CategoriaID *int64      `json:"categoria_id,omitempty"`
	UsuarioID   *int64      `json:"usuario_id,omitempty"`
	Observacoes *string     `json:"observacoes,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

func encodeLote(batch []domain.NovaTransacao) ([]byte, error) {
	items := make([]loteItem, len(batch))
	for i, n := range batch {
		items[i] = loteItem{
			Descricao:   n.Descricao,
			Valor:       json.Number(n.Valor.String()),
			Tipo:        string(n.Tipo),
			CategoriaID: n.CategoriaID,
			UsuarioID:   n.UsuarioID,
			Observacoes: n.Observacoes,
			Tags:        n.Tags,
		}
	}
	return json.Marshal(items)
}

// InsertBatch runs the batch procedure as one autocommit statement; the
// procedure owns its own transaction handling.
func (r *LedgerRepository) InsertBatch(ctx context.Context, batch []domain.NovaTransacao) error {
	payload, err := encodeLote(batch)
	if err != nil {
		return fmt.Errorf("encode lote: %w", err)
	}
	if _, err := r.exec.Execute(ctx, db.NewStatement(OpInsertLote, insertLoteSQL, string(payload))); err != nil {
		return err
	}

	r.log.Info("lote de transacoes processado", "count", len(batch))
	return nil
}

// conflictOr turns a unique violation into a domain conflict and returns
// any other error unchanged.
func conflictOr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.NewConflictError(pgErr.Message)
	}
	return err
}

// Reports

func (r *LedgerRepository) Saldo(ctx context.Context) (domain.Record, error) {
	res, err := r.exec.Execute(ctx, db.NewStatement(OpGetSaldo, saldoSQL))
	if err != nil {
		return nil, err
	}
	return domain.Record(res.First()), nil
}

func (r *LedgerRepository) RelatorioMensal(ctx context.Context, p *domain.Periodo) ([]domain.Record, error) {
	b := psql.Select("*").From("vw_relatorio_mensal")
	if p != nil {
		b = b.Where(sq.Expr("EXTRACT(MONTH FROM mes) = ?", p.Mes)).
			Where(sq.Expr("EXTRACT(YEAR FROM mes) = ?", p.Ano))
	}
	b = b.OrderBy("mes DESC", "tipo", "categoria")

	return r.query(ctx, OpRelatorioMensal, b)
}

func (r *LedgerRepository) BuscarPorTags(ctx context.Context, tags []string) ([]domain.Record, error) {
	res, err := r.exec.Execute(ctx, db.NewStatement(OpBuscarPorTags, buscarPorTagsSQL, tags))
	if err != nil {
		return nil, err
	}
	return records(res), nil
}

func (r *LedgerRepository) EstatisticasPeriodo(ctx context.Context, i domain.IntervaloDatas) (domain.Record, error) {
	res, err := r.exec.Execute(ctx, db.NewStatement(OpEstatisticasPeriodo, estatisticasSQL, i.Inicio, i.Fim))
	if err != nil {
		return nil, err
	}
	return domain.Record(res.First()), nil
}

// ConsolidarMes runs the consolidation procedure and returns its output
// parameters, if any.
func (r *LedgerRepository) ConsolidarMes(ctx context.Context, p domain.Periodo) (domain.Record, error) {
	res, err := r.exec.Execute(ctx, db.NewStatement(OpConsolidarMes, consolidarMesSQL, p.Ano, p.Mes))
	if err != nil {
		return nil, err
	}
	return domain.Record(res.First()), nil
}
