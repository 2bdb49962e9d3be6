// Package tx lets store methods join a transaction that an outer call has
// already opened, so a ledger mutation and its reads share one snapshot.
package tx

import (
	"context"
	"database/sql"
)

type boundKey struct{}

// Querier is what store methods need to run statements. Both *sql.DB and
// *sql.Tx satisfy it.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Bind attaches an open transaction to ctx. A nil tx returns ctx as is.
func Bind(ctx context.Context, sqlTx *sql.Tx) context.Context {
	if sqlTx == nil {
		return ctx
	}
	return context.WithValue(ctx, boundKey{}, sqlTx)
}

// Bound reports the transaction attached to ctx, if any.
func Bound(ctx context.Context) (*sql.Tx, bool) {
	sqlTx, ok := ctx.Value(boundKey{}).(*sql.Tx)
	return sqlTx, ok
}

// Pick returns the bound transaction, or db when ctx carries none.
func Pick(ctx context.Context, db *sql.DB) Querier {
	if sqlTx, ok := Bound(ctx); ok {
		return sqlTx
	}
	return db
}
