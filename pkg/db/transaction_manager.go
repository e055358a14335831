// pkg/db/transaction_manager.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// TxController defines methods for controlling a database transaction.
// *sqlx.Tx implicitly implements this interface.
type TxController interface {
	Commit() error
	Rollback() error
}

// DBTxBeginner defines the interface for beginning transactions.
// *sqlx.DB implements this.
type DBTxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// BeginTx starts a new database transaction.
func BeginTx(ctx context.Context, dbConn DBTxBeginner) (*sqlx.Tx, error) {
	tx, err := dbConn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CommitTx commits the transaction.
func CommitTx(tx TxController) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTx rolls back the transaction. It is safe to call after a commit.
func RollbackTx(tx TxController) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		// Typically deferred; the error that caused the rollback matters more.
		slog.Warn("Error rolling back transaction", "error", err)
	}
}

// WithTx runs fn inside one transaction. It commits when fn returns nil and
// rolls back when fn returns an error or panics. The error returned by fn is
// handed back untouched and a panic is re-raised after the rollback.
func WithTx(ctx context.Context, dbConn DBTxBeginner, fn func(ctx context.Context, tx *sqlx.Tx) error) (err error) {
	tx, err := BeginTx(ctx, dbConn)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			RollbackTx(tx)
			panic(p)
		}
		if err != nil {
			RollbackTx(tx)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	return CommitTx(tx)
}
