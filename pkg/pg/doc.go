// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// retrying startup, embedded goose migrations, a health probe, and error
// classification helpers shared by the store implementations.
package pg
