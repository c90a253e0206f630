// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking engine and handlers to distinguish between different failure
// scenarios. For example, ErrSessionFull signals that the conditional
// capacity update matched no row, while ErrConflict signals that an
// operation cannot proceed due to existing dependent records (e.g.
// deleting a session that still has open reservations).
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a session that still has open reservations or shrinking
// its capacity below the seats already taken.
var ErrConflict = errors.New("conflict")

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrSessionFull is returned when the capacity-guarded increment
	// affected no row: the session filled up or was deactivated.
	ErrSessionFull = errors.New("session is full")

	// ErrDuplicateReservation is returned when the (user_id, session_id)
	// unique key rejects an insert.
	ErrDuplicateReservation = errors.New("reservation already exists")

	// ErrNoTrainingSessions is returned when the consume update found the
	// member's personal training counter already at zero.
	ErrNoTrainingSessions = errors.New("no personal training sessions remaining")

	// ErrNotOpen is returned when a state transition found the reservation
	// no longer confirmed-and-unsettled.
	ErrNotOpen = errors.New("reservation is not open")

	ErrEmailExists = errors.New("email already exists")
)

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isDuplicateKey reports whether err is a unique-key violation from either
// supported driver.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsLockContention reports whether err means the statement lost a lock
// race: a MySQL deadlock or lock wait timeout, or a busy SQLite database.
// The transaction has been rolled back and the operation can be retried.
func IsLockContention(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// notFound maps sql.ErrNoRows to the given sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}
