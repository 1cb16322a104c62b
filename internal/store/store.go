// Package store holds the persistence operations for the catalog, the
// instance ledger, the operation log, return requests and users.
//
// Every function takes the storage handle explicitly. Passing a *sqlx.Tx
// instead of the *sqlx.DB makes a call part of the caller's transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
)

// Queryer is implemented by both *sqlx.DB and *sqlx.Tx.
type Queryer interface {
	sqlx.ExtContext
}

// WithTx runs fn inside a transaction, committing if fn returns nil.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		if IsBusy(err) {
			return fmt.Errorf("beginning transaction: %w: %v", model.ErrConcurrencyConflict, err)
		}
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		if IsBusy(err) {
			return fmt.Errorf("committing transaction: %w: %v", model.ErrConcurrencyConflict, err)
		}
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// IsBusy reports whether err is SQLite refusing a write lock.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, model.ErrDuplicateName)
}

// notFound turns sql.ErrNoRows into model.ErrNotFound.
func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, model.ErrNotFound)
	}
	return fmt.Errorf("getting %s: %w", what, err)
}

// expectRows checks that an update touched exactly n rows. Fewer means
// another writer got there first.
func expectRows(res sql.Result, n int64, what string) error {
	got, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if got != n {
		return fmt.Errorf("%s: updated %d of %d rows: %w", what, got, n, model.ErrConcurrencyConflict)
	}
	return nil
}
