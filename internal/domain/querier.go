package domain

import (
	"context"
	"database/sql"
)

// Querier abstracts *sql.DB and *sql.Tx so repositories can run both inside
// and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
