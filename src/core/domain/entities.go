package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TipoTransacao is the direction of a ledger entry.
type TipoTransacao string

const (
	TipoCredito TipoTransacao = "C"
	TipoDebito  TipoTransacao = "D"
)

// Valid reports whether t is C or D.
func (t TipoTransacao) Valid() bool {
	return t == TipoCredito || t == TipoDebito
}

// StatusConfirmada is the status of every transaction created through the API
// and the default listing filter.
const StatusConfirmada = "confirmada"

const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
	MaxBatchSize     = 1000
)

// Record is one row produced by the database, keyed by column name.
// Views and functions own the exact column set.
type Record map[string]any

// NovaTransacao is the input for creating a ledger transaction.
type NovaTransacao struct {
	Descricao   string          `json:"descricao"`
	Valor       decimal.Decimal `json:"valor"`
	Tipo        TipoTransacao   `json:"tipo"`
	CategoriaID *int64          `json:"categoria_id,omitempty"`
	UsuarioID   *int64          `json:"usuario_id,omitempty"`
	Observacoes *string         `json:"observacoes,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

// Validate checks the rules every new transaction must satisfy.
func (n *NovaTransacao) Validate() error {
	n.Descricao = strings.TrimSpace(n.Descricao)
	if n.Descricao == "" {
		return NewValidationError("descricao", "is required")
	}
	if !n.Tipo.Valid() {
		return NewValidationError("tipo", "must be C (credito) or D (debito)")
	}
	if !n.Valor.IsPositive() {
		return NewValidationError("valor", "must be positive")
	}
	return nil
}

// TransacaoCriada is the stored transaction together with the balance read
// in the same database transaction.
type TransacaoCriada struct {
	Transacao Record `json:"transacao"`
	Saldo     Record `json:"saldo"`
}

// FiltroTransacoes selects transactions for listing.
type FiltroTransacoes struct {
	Status string
	Tipo   TipoTransacao // empty means any
	Limit  int
	Offset int
}

// Normalize applies defaults and validates the filter.
func (f *FiltroTransacoes) Normalize() error {
	if f.Status == "" {
		f.Status = StatusConfirmada
	}
	if f.Limit == 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit < 1 || f.Limit > MaxListLimit {
		return NewValidationError("limit", "must be between 1 and 1000")
	}
	if f.Offset < 0 {
		return NewValidationError("offset", "must not be negative")
	}
	if f.Tipo != "" && !f.Tipo.Valid() {
		return NewValidationError("tipo", "must be C (credito) or D (debito)")
	}
	return nil
}

// Periodo is a calendar month.
type Periodo struct {
	Mes int
	Ano int
}

// Validate checks the month and year ranges.
func (p Periodo) Validate() error {
	if p.Mes < 1 || p.Mes > 12 {
		return NewValidationError("mes", "must be between 1 and 12")
	}
	if p.Ano < 1900 || p.Ano > 9999 {
		return NewValidationError("ano", "must be a four digit year")
	}
	return nil
}

// IntervaloDatas is a closed date range.
type IntervaloDatas struct {
	Inicio time.Time
	Fim    time.Time
}

// Validate rejects ranges that end before they start.
func (i IntervaloDatas) Validate() error {
	if i.Inicio.IsZero() {
		return NewValidationError("data_inicio", "is required")
	}
	if i.Fim.IsZero() {
		return NewValidationError("data_fim", "is required")
	}
	if i.Fim.Before(i.Inicio) {
		return NewValidationError("data_fim", "must not be before data_inicio")
	}
	return nil
}

// ParseTags splits a comma separated list, trimming blanks and dropping empty
// entries.
func ParseTags(csv string) []string {
	var tags []string
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
