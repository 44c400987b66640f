package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Index answers GET / with the API name, version and main endpoints.
func Index(version string) gin.HandlerFunc {
	body := gin.H{
		"message": "API Fluxo de Caixa",
		"version": version,
		"endpoints": gin.H{
			"health":     "/health",
			"metrics":    "/metrics",
			"transacoes": "/api/transacoes",
			"saldo":      "/api/transacoes/consultas/saldo",
			"relatorio":  "/api/transacoes/consultas/relatorio-mensal",
		},
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, body)
	}
}
