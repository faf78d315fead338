package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// maxTxAttempts bounds retries of serialization failures and deadlocks
const maxTxAttempts = 3

// TxFunc is the body of a transaction. It may run more than once.
type TxFunc func(tx *sqlx.Tx) error

// WithTx runs fn inside a transaction, committing on success and rolling back
// on any error or panic. Serialization failures and deadlocks are retried.
func WithTx(ctx context.Context, db *sqlx.DB, fn TxFunc) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = runTx(ctx, db, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", maxTxAttempts, err)
}

func runTx(ctx context.Context, db *sqlx.DB, fn TxFunc) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
