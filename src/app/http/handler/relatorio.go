package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fluxocaixa/src/app/http/dto"
	"fluxocaixa/src/app/http/response"
	"fluxocaixa/src/core/domain"
	"fluxocaixa/src/core/usecase"
)

const dateLayout = "2006-01-02"

// RelatorioHandler serves balance, report and consolidation endpoints.
type RelatorioHandler struct {
	service *usecase.RelatorioService
}

func NewRelatorioHandler(service *usecase.RelatorioService) *RelatorioHandler {
	return &RelatorioHandler{service: service}
}

// Saldo handles GET /api/transacoes/consultas/saldo.
func (h *RelatorioHandler) Saldo(c *gin.Context) {
	saldo, err := h.service.Saldo(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, saldo)
}

// RelatorioMensal handles GET /api/transacoes/consultas/relatorio-mensal.
func (h *RelatorioHandler) RelatorioMensal(c *gin.Context) {
	var q dto.RelatorioMensalQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	rows, err := h.service.RelatorioMensal(c.Request.Context(), q.Mes, q.Ano)
	if err != nil {
		fail(c, err)
		return
	}
	response.List(c, rows)
}

// BuscarPorTags handles GET /api/transacoes/consultas/tags.
func (h *RelatorioHandler) BuscarPorTags(c *gin.Context) {
	var q dto.TagsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	rows, err := h.service.BuscarPorTags(c.Request.Context(), q.Tags)
	if err != nil {
		fail(c, err)
		return
	}
	response.List(c, rows)
}

// Estatisticas handles GET /api/transacoes/consultas/estatisticas.
func (h *RelatorioHandler) Estatisticas(c *gin.Context) {
	var q dto.EstatisticasQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	inicio, err := time.Parse(dateLayout, q.DataInicio)
	if err != nil {
		fail(c, domain.NewValidationError("data_inicio", "must be a date in YYYY-MM-DD format"))
		return
	}
	fim, err := time.Parse(dateLayout, q.DataFim)
	if err != nil {
		fail(c, domain.NewValidationError("data_fim", "must be a date in YYYY-MM-DD format"))
		return
	}

	stats, err := h.service.EstatisticasPeriodo(c.Request.Context(), domain.IntervaloDatas{Inicio: inicio, Fim: fim})
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, stats)
}

// ConsolidarMes handles POST /api/transacoes/consolidar/:ano/:mes.
func (h *RelatorioHandler) ConsolidarMes(c *gin.Context) {
	var uri dto.ConsolidarURI
	if err := c.ShouldBindUri(&uri); err != nil {
		bindFailed(c, err)
		return
	}

	out, err := h.service.ConsolidarMes(c.Request.Context(), uri.ToDomain())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success{Data: out, Message: "mes consolidado com sucesso"})
}
