// Package store holds the SQL data access functions. Every function takes the
// database handle explicitly; mutating operations run in a single transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/kalcki/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// inTx runs fn in a transaction, committing if it returns nil.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// versionedUpdate runs an UPDATE guarded by owner and version, bumping the
// version. An empty set clause only bumps it. When no row matches it tells a
// missing row (ErrNotFound) apart from a stale version (ErrConflict).
func versionedUpdate(ctx context.Context, q querier, table string, ownerID, id, version int64, set string, args ...any) error {
	assign := `version = version + 1, updated_at = CURRENT_TIMESTAMP`
	if set != "" {
		assign = set + `, ` + assign
	}
	query := `UPDATE ` + table + ` SET ` + assign + ` WHERE id = ? AND owner_id = ? AND version = ?`
	args = append(args, id, ownerID, version)

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating %s: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}

	var count int
	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE id = ? AND owner_id = ?`, id, ownerID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking %s: %w", table, err)
	}
	if count == 0 {
		return fmt.Errorf("%s %d: %w", table, id, model.ErrNotFound)
	}
	return fmt.Errorf("%s %d at version %d: %w", table, id, version, model.ErrConflict)
}

// nullString maps an empty string to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
