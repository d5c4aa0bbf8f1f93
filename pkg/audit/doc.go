// Package audit implements the append-only audit trail every security
// state change feeds into.
//
// Entries are recorded through a Logger that fills in identity and client
// details from the request context, queried through a Reader with
// conjunctive filters and pagination, and exported as deterministic CSV.
// The action taxonomy is closed: unknown actions fail validation, so the
// vocabulary only grows through the constants in actions.go.
//
// Rows are never updated. The single deletion path is Reader.Purge, an
// explicit operator-invoked retention cut, never a background job.
package audit
