// Package handler contains HTTP handlers for the API.
// Handlers are responsible for:
// - Parsing and validating HTTP requests
// - Calling use case methods
// - Converting results to HTTP responses
package handler

import (
	"github.com/gin-gonic/gin"

	"fluxocaixa/src/app/http/dto"
	"fluxocaixa/src/app/http/response"
	"fluxocaixa/src/app/middleware"
)

func fail(c *gin.Context, err error) {
	response.FromError(c, err, middleware.GetRequestID(c))
}

func bindFailed(c *gin.Context, err error) {
	fail(c, dto.BindError(err))
}
