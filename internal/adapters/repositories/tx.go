package repositories

import (
	"context"
	"database/sql"

	"sameday-dispatch-service/internal/domain"
)

// InTx runs fn inside a transaction: commit on success, rollback on
// any error, releasing the transaction on every exit path.
func InTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StorageErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.StorageErr("commit transaction", err)
	}
	return nil
}
