// Package repository implements persistence on MySQL through database/sql.
// Sentinel values in this file let higher layers such as handlers
// distinguish between different failure scenarios.  Lock contention is
// reported with reservation.ErrConflict so the engines can surface it as a
// retryable error.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/bus-seat-reservation/internal/reservation"
)

// ErrLayoutFinalized is returned when a seat layout regeneration is
// requested for a bus whose layout is finalized or already booked.
// Handlers should translate this into an HTTP 409 response.
var ErrLayoutFinalized = errors.New("seat layout is finalized")

// ErrUsernameExists is returned when registering a username that is taken.
var ErrUsernameExists = errors.New("username already exists")

// MySQL server error numbers the repositories react to.
const (
	mysqlDuplicateEntry   = 1062
	mysqlLockWaitTimeout  = 1205
	mysqlDeadlockDetected = 1213
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// translateLockErr maps lock wait timeouts and deadlocks to
// reservation.ErrConflict and leaves every other error untouched.
func translateLockErr(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlLockWaitTimeout, mysqlDeadlockDetected:
			return fmt.Errorf("%w (%s)", reservation.ErrConflict, me.Message)
		}
	}
	return err
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// placeholders returns "?, ?, ?" for n arguments together with the ids
// converted to driver arguments.
func placeholders(ids []uint64) (string, []any) {
	args := make([]any, 0, len(ids))
	q := make([]byte, 0, len(ids)*3)
	for i, id := range ids {
		if i > 0 {
			q = append(q, ", "...)
		}
		q = append(q, '?')
		args = append(args, id)
	}
	return string(q), args
}
