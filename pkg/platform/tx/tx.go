// Package tx passes a SQL transaction through context so stores that are
// normally pool-backed can join a caller's transaction without changing
// their signatures.
package tx

import (
	"context"
	"database/sql"
	"fmt"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a transaction in context. Stores check From before falling
// back to their own pool handle.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts the transaction a caller opened, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Run executes fn inside a transaction, committing on success and rolling
// back on error. The transaction rides in fn's context, so any store call
// inside fn joins it automatically.
func Run(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	txn, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer txn.Rollback()

	if err := fn(WithTx(ctx, txn)); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
