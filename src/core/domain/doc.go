// Package domain contains the cash-flow ledger model.
//
// This package defines:
//   - Transacao inputs (NovaTransacao) and their validation rules
//   - Query filters for listings, reports and statistics
//   - Record, the read model returned by database views and functions
//   - Domain errors
//
// Wire names are kept in Portuguese (descricao, valor, tipo, ...) because
// they match the database schema and the public API.
//
// Rules for this package:
//   - No infrastructure concerns (database, HTTP, etc.)
//   - Inputs validate their own invariants
package domain
