package dto

import (
	"github.com/shopspring/decimal"

	"fluxocaixa/src/core/domain"
)

// CreateTransacaoRequest is the payload for POST /api/transacoes.
type CreateTransacaoRequest struct {
	Descricao   string           `json:"descricao" binding:"required"`
	Valor       *decimal.Decimal `json:"valor" binding:"required"`
	Tipo        string           `json:"tipo" binding:"required,oneof=C D"`
	CategoriaID *int64           `json:"categoria_id" binding:"omitempty,min=1"`
	UsuarioID   *int64           `json:"usuario_id" binding:"omitempty,min=1"`
	Observacoes *string          `json:"observacoes"`
	Tags        []string         `json:"tags"`
}

// ToDomain converts the request into a domain input.
func (r CreateTransacaoRequest) ToDomain() domain.NovaTransacao {
	n := domain.NovaTransacao{
		Descricao:   r.Descricao,
		Tipo:        domain.TipoTransacao(r.Tipo),
		CategoriaID: r.CategoriaID,
		UsuarioID:   r.UsuarioID,
		Observacoes: r.Observacoes,
		Tags:        r.Tags,
	}
	if r.Valor != nil {
		n.Valor = *r.Valor
	}
	return n
}

// LoteRequest is the payload for POST /api/transacoes/lote. Entries are
// checked one by one by the use case so errors can name their index.
type LoteRequest struct {
	Transacoes []CreateTransacaoRequest `json:"transacoes" binding:"required"`
}

// ToDomain converts every entry.
func (r LoteRequest) ToDomain() []domain.NovaTransacao {
	out := make([]domain.NovaTransacao, len(r.Transacoes))
	for i, t := range r.Transacoes {
		out[i] = t.ToDomain()
	}
	return out
}

// ListTransacoesQuery binds the listing query string.
type ListTransacoesQuery struct {
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
	Tipo   string `form:"tipo" binding:"omitempty,oneof=C D"`
	Status string `form:"status"`
}

// ToDomain converts the query into a listing filter.
func (q ListTransacoesQuery) ToDomain() domain.FiltroTransacoes {
	return domain.FiltroTransacoes{
		Status: q.Status,
		Tipo:   domain.TipoTransacao(q.Tipo),
		Limit:  q.Limit,
		Offset: q.Offset,
	}
}

// TransacaoURI binds /api/transacoes/:id.
type TransacaoURI struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// RelatorioMensalQuery binds the optional month filter.
type RelatorioMensalQuery struct {
	Mes *int `form:"mes" binding:"omitempty,min=1,max=12"`
	Ano *int `form:"ano" binding:"omitempty,min=1900,max=9999"`
}

// TagsQuery binds the comma separated tag list.
type TagsQuery struct {
	Tags string `form:"tags" binding:"required"`
}

// EstatisticasQuery binds the statistics date range. Dates are YYYY-MM-DD.
type EstatisticasQuery struct {
	DataInicio string `form:"data_inicio" binding:"required"`
	DataFim    string `form:"data_fim" binding:"required"`
}

// ConsolidarURI binds /api/transacoes/consolidar/:ano/:mes.
type ConsolidarURI struct {
	Ano int `uri:"ano" binding:"required,min=1900,max=9999"`
	Mes int `uri:"mes" binding:"required,min=1,max=12"`
}

// ToDomain converts the path into a period.
func (u ConsolidarURI) ToDomain() domain.Periodo {
	return domain.Periodo{Mes: u.Mes, Ano: u.Ano}
}
