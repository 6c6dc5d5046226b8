// Package repository provides SQL-backed and in-memory persistence for
// tickets, rules, SLA policies, calendars, and execution records.
package repository

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned when an optimistic save loses the race
	// against a concurrent writer.
	ErrVersionConflict = errors.New("version conflict")
)

// insertStatement rebinds an INSERT for the connection's driver. lib/pq does
// not implement LastInsertId, so postgres statements gain a RETURNING clause
// and the ID comes back through the row instead.
func insertStatement(db *sqlx.DB, query string) string {
	if db.DriverName() == "postgres" {
		query += " RETURNING id"
	}
	return db.Rebind(query)
}

// insertID runs an INSERT and returns the generated row ID on every
// supported driver.
func insertID(ctx context.Context, db *sqlx.DB, query string, args ...interface{}) (int64, error) {
	stmt := insertStatement(db, query)
	if db.DriverName() == "postgres" {
		var id int64
		if err := db.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	result, err := db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}
