// Package sqlstore implements the repositories on top of sqlx, for postgres (lib/pq) and sqlite (modernc).
// Timestamps are stored as UTC epoch milliseconds so both engines share one schema.
package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func millis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t time.Time) null.Int64 {
	return null.NewInt64(millis(t), !t.IsZero())
}

func fromNullMillis(ms null.Int64) time.Time {
	if !ms.Valid {
		return time.Time{}
	}
	return fromMillis(ms.Int64)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// trapNoRowsErr maps "no rows" errors to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// nextSequence increments the named counter and returns its new value.
func nextSequence(ctx context.Context, db sqlx.ExtContext, name string) (int64, error) {
	q := db.Rebind(`
		INSERT INTO counters (name, seq) VALUES (?, 1)
		ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq`)
	var seq int64
	if err := sqlx.GetContext(ctx, db, &seq, q, name); err != nil {
		return 0, errors.Wrapf(err, "incrementing %q sequence", name)
	}
	return seq, nil
}

// inTx runs fn in a transaction, committed when fn returns nil and rolled back otherwise.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// SeedCounter sets the current value of a sequence.
func SeedCounter(ctx context.Context, db *sqlx.DB, name string, value int64) error {
	q := db.Rebind(`
		INSERT INTO counters (name, seq) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET seq = excluded.seq`)
	_, err := db.ExecContext(ctx, q, name, value)
	return errors.Wrapf(err, "seeding %q sequence", name)
}
