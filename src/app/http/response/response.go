// Package response defines consistent HTTP response structures.
// All API responses should use these types for consistency.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"

	"fluxocaixa/src/core/domain"
	"fluxocaixa/src/infra/db"
)

// retryAfterSeconds is sent with 503 responses caused by pool exhaustion.
const retryAfterSeconds = "1"

// Success represents a successful response with data.
type Success struct {
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
}

// Error represents an error response.
type Error struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	// Code is a machine-readable error code (e.g., "NOT_FOUND", "VALIDATION_ERROR")
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Field is the field that caused the error (for validation errors)
	Field string `json:"field,omitempty"`

	// RequestID is the request ID for debugging
	RequestID string `json:"request_id,omitempty"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Success{Data: data})
}

// List sends a 200 response with rows and their count.
func List[T any](c *gin.Context, rows []T) {
	if rows == nil {
		rows = []T{}
	}
	n := len(rows)
	c.JSON(http.StatusOK, Success{Data: rows, Count: &n})
}

// Created sends a 201 response with the created resource.
func Created(c *gin.Context, data any, message string) {
	c.JSON(http.StatusCreated, Success{Data: data, Message: message})
}

func fail(c *gin.Context, status int, code, message, field, requestID string) {
	c.JSON(status, Error{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Field:     field,
			RequestID: requestID,
		},
	})
}

// BadRequest sends a 400 response.
func BadRequest(c *gin.Context, message string, requestID string) {
	fail(c, http.StatusBadRequest, "BAD_REQUEST", message, "", requestID)
}

// ValidationError sends a 400 response for validation failures.
func ValidationError(c *gin.Context, field, message, requestID string) {
	fail(c, http.StatusBadRequest, "VALIDATION_ERROR", message, field, requestID)
}

// NotFound sends a 404 response.
func NotFound(c *gin.Context, message, requestID string) {
	fail(c, http.StatusNotFound, "NOT_FOUND", message, "", requestID)
}

// Conflict sends a 409 response.
func Conflict(c *gin.Context, message, requestID string) {
	fail(c, http.StatusConflict, "CONFLICT", message, "", requestID)
}

// ServiceUnavailable sends a 503 response.
func ServiceUnavailable(c *gin.Context, message, requestID string) {
	fail(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, "", requestID)
}

// InternalError sends a 500 response.
func InternalError(c *gin.Context, requestID string) {
	fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", "", requestID)
}

// FromError converts a domain, pool or backend error to an HTTP response.
// Unknown errors become a generic 500 and are attached to the gin context
// for the logging middleware.
func FromError(c *gin.Context, err error, requestID string) {
	var pgErr *pgconn.PgError

	switch {
	case domain.IsNotFound(err):
		NotFound(c, err.Error(), requestID)
	case domain.IsValidationError(err):
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			ValidationError(c, domainErr.Field, domainErr.Message, requestID)
		} else {
			BadRequest(c, err.Error(), requestID)
		}
	case domain.IsConflict(err):
		Conflict(c, err.Error(), requestID)

	case errors.Is(err, db.ErrPoolExhausted):
		c.Header("Retry-After", retryAfterSeconds)
		ServiceUnavailable(c, "database is busy, retry shortly", requestID)
	case errors.Is(err, db.ErrPoolUnavailable), errors.Is(err, db.ErrConnectionBroken):
		_ = c.Error(err)
		ServiceUnavailable(c, "database unavailable", requestID)

	case errors.As(err, &pgErr):
		fromPgError(c, pgErr, requestID)

	default:
		_ = c.Error(err)
		InternalError(c, requestID)
	}
}

func fromPgError(c *gin.Context, pgErr *pgconn.PgError, requestID string) {
	switch pgErr.Code {
	case "23505":
		Conflict(c, pgErr.Message, requestID)
	case "23502", "23503", "23514":
		ValidationError(c, pgErr.ColumnName, pgErr.Message, requestID)
	case "22P02", "22007", "22008":
		BadRequest(c, pgErr.Message, requestID)
	default:
		_ = c.Error(pgErr)
		InternalError(c, requestID)
	}
}
