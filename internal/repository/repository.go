// Package repository implements all database queries for the workshop
// enrollment system. It uses pgx directly (no ORM).
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrWorkshopNotFound is returned by Enroll when the workshop is missing or inactive.
var ErrWorkshopNotFound = errors.New("workshop not found or inactive")

// ErrWorkshopFull is returned when a workshop has no remaining seats.
var ErrWorkshopFull = errors.New("workshop is full")

// ErrAlreadyEnrolled is returned when the student already holds an active enrollment.
var ErrAlreadyEnrolled = errors.New("student already has an active enrollment")

// ErrCapacityBelowActive is returned when a capacity change would drop below
// the number of active enrollments.
var ErrCapacityBelowActive = errors.New("capacity is below the number of active enrollments")

// ErrDuplicate is returned when a unique attribute is already taken.
var ErrDuplicate = errors.New("already exists")

const pgUniqueViolation = "23505"

// querier is the subset of pgxpool.Pool and pgx.Tx used by the scan helpers.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// uniqueViolation returns the violated constraint name when err is a
// Postgres unique violation.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func duplicate(field string) error {
	return fmt.Errorf("%s %w", field, ErrDuplicate)
}

// whereBuilder collects fixed SQL conditions with positional arguments.
// Callers only ever pass literal condition text; values go through args.
type whereBuilder struct {
	conds []string
	args  []any
}

// add appends a condition whose single placeholder is written as %d.
func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	out := " WHERE " + w.conds[0]
	for _, c := range w.conds[1:] {
		out += " AND " + c
	}
	return out
}

// page appends LIMIT/OFFSET placeholders and returns their SQL.
func (w *whereBuilder) page(limit, offset int) string {
	w.args = append(w.args, limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(w.args)-1, len(w.args))
}
