// Package dto contains request payloads and query bindings for the HTTP API.
//
// DTOs carry gin binding tags for shape checks. Business rules stay in the
// domain types they convert into.
package dto
