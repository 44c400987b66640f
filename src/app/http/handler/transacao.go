package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"fluxocaixa/src/app/http/dto"
	"fluxocaixa/src/app/http/response"
	"fluxocaixa/src/core/usecase"
)

// TransacaoHandler serves the transaction endpoints.
type TransacaoHandler struct {
	service *usecase.TransacaoService
}

func NewTransacaoHandler(service *usecase.TransacaoService) *TransacaoHandler {
	return &TransacaoHandler{service: service}
}

// List handles GET /api/transacoes.
func (h *TransacaoHandler) List(c *gin.Context) {
	var q dto.ListTransacoesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	rows, err := h.service.List(c.Request.Context(), q.ToDomain())
	if err != nil {
		fail(c, err)
		return
	}
	response.List(c, rows)
}

// Get handles GET /api/transacoes/:id.
func (h *TransacaoHandler) Get(c *gin.Context) {
	var uri dto.TransacaoURI
	if err := c.ShouldBindUri(&uri); err != nil {
		bindFailed(c, err)
		return
	}

	row, err := h.service.Get(c.Request.Context(), uri.ID)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, row)
}

// Create handles POST /api/transacoes.
func (h *TransacaoHandler) Create(c *gin.Context) {
	var req dto.CreateTransacaoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), req.ToDomain())
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, created, "transacao criada com sucesso")
}

// InsertBatch handles POST /api/transacoes/lote.
func (h *TransacaoHandler) InsertBatch(c *gin.Context) {
	var req dto.LoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	n, err := h.service.InsertBatch(c.Request.Context(), req.ToDomain())
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"count": n}, fmt.Sprintf("lote de %d transacoes processado", n))
}
