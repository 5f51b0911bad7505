// Package repository defines the data access layer and the error values
// shared by every repository. Handlers use these sentinels to choose the
// HTTP status: ErrNotFound maps to 404, ErrConflict and ErrDuplicate to
// 409, ErrForbidden to 403 and the validation errors to 400.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update hits a unique key.
var ErrDuplicate = errors.New("duplicate")

// ErrInsufficientStock is returned by checkout when a variant cannot cover
// the requested quantity.
var ErrInsufficientStock = errors.New("insufficient stock")

// InUseError reports that a row is still referenced and cannot be deleted.
// Handlers answer it with 400 and the message.
type InUseError struct {
	What   string
	Counts map[string]int
}

func (e *InUseError) Error() string {
	parts := make([]string, 0, len(e.Counts))
	for _, k := range []string{"products", "subcategories", "orders"} {
		if n := e.Counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, k))
		}
	}
	return fmt.Sprintf("%s is still in use (%s)", e.What, strings.Join(parts, ", "))
}

// isDuplicateKey recognises unique violations from MySQL (error 1062) and
// from sqlite, which the tests run against.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// notFound converts sql.ErrNoRows into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction. The transaction is rolled back when
// fn returns an error or panics and committed otherwise.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// affectedOrNotFound returns ErrNotFound when an UPDATE or DELETE touched
// nothing.
func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// likeArg wraps a search term for a LIKE comparison.
func likeArg(s string) string {
	return "%" + strings.TrimSpace(s) + "%"
}

// placeholders returns "?,?,?" with n marks.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
